package main

import (
	"context"
	"errors"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"liyu1981.xyz/water-alarm-service/pkg/common"
	"liyu1981.xyz/water-alarm-service/pkg/db"
	"liyu1981.xyz/water-alarm-service/pkg/historian"
	waterHttp "liyu1981.xyz/water-alarm-service/pkg/http"
	"liyu1981.xyz/water-alarm-service/pkg/monitor"
	"liyu1981.xyz/water-alarm-service/pkg/shiftcal"
	"liyu1981.xyz/water-alarm-service/pkg/sms"
	"liyu1981.xyz/water-alarm-service/pkg/sysconfig"
	"liyu1981.xyz/water-alarm-service/pkg/tagmap"
	"liyu1981.xyz/water-alarm-service/pkg/totalizer"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file, copy .env.example to .env first if in development")
	}

	var dbInstance *db.DB
	waterDbType := os.Getenv(common.EnvKeyWaterDBType)
	switch waterDbType {
	case "file":
		dbInstance = db.GetInstance(db.UseSqliteDialector())
	case "memory":
		dbInstance = db.GetInstance(db.UseMemorySqliteDialector())
	default:
		log.Fatal("Unknown WATER_DB_TYPE: " + waterDbType)
	}

	logger := common.GetLogger()

	if err := dbInstance.InitDefaultData(); err != nil {
		log.Fatalf("failed to seed system config: %v", err)
	}

	settings, err := sysconfig.Load(dbInstance.Conn)
	if err != nil {
		log.Fatalf("failed to load system config: %v", err)
	}

	catalog, err := tagmap.Load(os.Getenv(common.EnvKeyWaterTagMapPath))
	if err != nil {
		logger.Warn("Tag map load failed, using built-in catalog", zap.Error(err))
	}

	tables, err := totalizer.LoadTables(os.Getenv(common.EnvKeyWaterTotalizerTablePath))
	if err != nil {
		logger.Warn("Totalizer tables load failed, using built-in tables", zap.Error(err))
	}

	calc, err := shiftcal.NewForTimezone(settings.Timezone)
	if err != nil {
		log.Fatalf("bad timezone in system config: %v", err)
	}

	newHistorian := func(ctx context.Context) (historian.Client, error) {
		client, err := historian.Connect(ctx, historian.Config{
			Server:   settings.HistorianServer,
			Database: settings.HistorianDatabase,
			Username: settings.HistorianUsername,
			Password: settings.HistorianPassword,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	limiters := sms.NewSendLimiterStore(smsLimiterFromEnv())

	newRouter := func(s sysconfig.Settings) (*sms.Router, error) {
		var transport sms.Transport
		if s.TwilioSid != "" && s.TwilioToken != "" {
			t, err := sms.NewTwilioTransport(s.TwilioSid, s.TwilioToken)
			if err != nil {
				return nil, err
			}
			transport = t
		}
		return sms.NewRouter(*dbInstance, catalog, s, transport, limiters)
	}

	engine := totalizer.NewEngine(tables)

	mon := monitor.New(*dbInstance, calc, engine, catalog, newHistorian, newRouter)
	if seconds, err := strconv.Atoi(os.Getenv(common.EnvKeyWaterCheckInterval)); err == nil && seconds > 0 {
		mon.Interval = time.Duration(seconds) * time.Second
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mon.Start(ctx); err != nil {
		log.Fatalf("failed to start monitor: %v", err)
	}
	logger.Info("Monitor started",
		zap.Duration("interval", mon.Interval),
		zap.Bool("test_mode", settings.TestMode),
		zap.String("timezone", settings.Timezone))

	httpHostPort := strings.TrimSpace(os.Getenv(common.EnvKeyWaterHttpHostPort))
	if httpHostPort == "" {
		httpHostPort = ":1080"
	}

	rs := &waterHttp.RestfulServer{
		Server:       gin.Default(),
		Db:           *dbInstance,
		Monitor:      mon,
		Catalog:      catalog,
		Calc:         calc,
		Engine:       engine,
		NewHistorian: newHistorian,
		NewRouter:    newRouter,
	}
	rs.Setup()

	srv := &stdhttp.Server{Addr: httpHostPort, Handler: rs.Server}
	go func() {
		logger.Info("Starting HTTP server on " + httpHostPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	mon.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

// smsLimiterFromEnv reads the per-recipient send rate. Defaults keep a runaway
// alarm storm from burning SMS credit: 1 message every 10s, burst 3.
func smsLimiterFromEnv() (rate.Limit, int) {
	sendRate := rate.Limit(0.1)
	if v, err := strconv.ParseFloat(os.Getenv(common.EnvKeyWaterSmsRate), 64); err == nil && v > 0 {
		sendRate = rate.Limit(v)
	}
	burst := 3
	if v, err := strconv.Atoi(os.Getenv(common.EnvKeyWaterSmsBurst)); err == nil && v > 0 {
		burst = v
	}
	return sendRate, burst
}
