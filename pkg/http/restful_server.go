// Package http is the read-only REST surface over the monitor's state:
// live plant readings, raised alarms and delivery outcomes. Configuration
// writes belong to the external administration surface, not here.
package http

import (
	"github.com/gin-gonic/gin"

	"liyu1981.xyz/water-alarm-service/pkg/db"
	"liyu1981.xyz/water-alarm-service/pkg/historian"
	"liyu1981.xyz/water-alarm-service/pkg/monitor"
	"liyu1981.xyz/water-alarm-service/pkg/shiftcal"
	"liyu1981.xyz/water-alarm-service/pkg/tagmap"
	"liyu1981.xyz/water-alarm-service/pkg/totalizer"
)

type RestfulServer struct {
	Server       *gin.Engine
	Db           db.DB
	Monitor      *monitor.Monitor
	Catalog      tagmap.Catalog
	Calc         *shiftcal.Calculator
	Engine       *totalizer.Engine
	NewHistorian historian.Factory
	NewRouter    monitor.RouterFactory
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)

	api := rs.Server.Group("/api")
	{
		api.GET("/live-data", rs.GetLiveData)
		api.GET("/alarms", rs.GetAlarms)
		api.GET("/deliveries", rs.GetDeliveries)
		api.GET("/monitor/status", rs.GetMonitorStatus)
		api.POST("/test-sms", rs.PostTestSms)
	}
}
