package http

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"liyu1981.xyz/water-alarm-service/pkg/common"
	"liyu1981.xyz/water-alarm-service/pkg/historian"
	"liyu1981.xyz/water-alarm-service/pkg/models"
	"liyu1981.xyz/water-alarm-service/pkg/shiftcal"
	"liyu1981.xyz/water-alarm-service/pkg/sysconfig"
	"liyu1981.xyz/water-alarm-service/pkg/totalizer"
)

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// LiveDataRow is one meter's dashboard line: the current reading plus the
// usage accumulated so far in the running shift and accounting day.
type LiveDataRow struct {
	TagName     string                `json:"tag_name"`
	Description string                `json:"description"`
	Line        string                `json:"line"`
	Unit        string                `json:"unit"`
	Current     historian.Sample      `json:"current"`
	ShiftUsage  totalizer.DeltaResult `json:"shift_usage"`
	DayUsage    totalizer.DeltaResult `json:"day_usage"`
}

type LiveDataResponse struct {
	ShiftName   string        `json:"shift_name"`
	ShiftWindow string        `json:"shift_window"`
	DayWindow   string        `json:"day_window"`
	Rows        []LiveDataRow `json:"rows"`
}

func (rs *RestfulServer) GetLiveData(c *gin.Context) {
	client, err := rs.NewHistorian(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer client.Close()

	now := time.Now()
	shift := rs.Calc.CurrentShift(now)
	day := rs.Calc.CurrentDay(now)

	names := rs.Catalog.Names()
	sort.Strings(names)

	histTags := common.Mapper(names, rs.Catalog.HistorianTag)
	currents := client.BatchCurrentValues(c.Request.Context(), histTags)

	rows := make([]LiveDataRow, 0, len(names))
	for _, name := range names {
		info := rs.Catalog.Info(name)
		histTag := info.HistorianTag

		current, ok := currents[histTag]
		if !ok {
			current = historian.AbsentSample(histTag, "not in batch result")
		}

		shiftStart, shiftEnd := client.WindowSamples(c.Request.Context(), histTag, shift.Start, shift.End)
		dayStart, dayEnd := client.WindowSamples(c.Request.Context(), histTag, day.Start, day.End)

		rows = append(rows, LiveDataRow{
			TagName:     name,
			Description: info.Description,
			Line:        info.Line,
			Unit:        info.Unit,
			Current:     current,
			ShiftUsage:  rs.Engine.Delta(shiftStart.ValuePtr(), shiftEnd.ValuePtr(), histTag),
			DayUsage:    rs.Engine.Delta(dayStart.ValuePtr(), dayEnd.ValuePtr(), histTag),
		})
	}

	c.JSON(http.StatusOK, LiveDataResponse{
		ShiftName:   shift.Name,
		ShiftWindow: shiftcal.FormatRange(shift.Start, shift.End),
		DayWindow:   shiftcal.FormatRange(day.Start, day.End),
		Rows:        rows,
	})
}

func (rs *RestfulServer) GetAlarms(c *gin.Context) {
	var alarms []models.AlarmLog
	if err := rs.Db.Conn.
		Order("triggered_at DESC").
		Limit(queryLimit(c)).
		Find(&alarms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alarms)
}

func (rs *RestfulServer) GetDeliveries(c *gin.Context) {
	var deliveries []models.DeliveryLog
	if err := rs.Db.Conn.
		Order("sent_at DESC").
		Limit(queryLimit(c)).
		Find(&deliveries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, deliveries)
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		return 50
	}
	return limit
}

func (rs *RestfulServer) GetMonitorStatus(c *gin.Context) {
	settings, err := sysconfig.Load(rs.Db.Conn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	shift := rs.Calc.CurrentShift(now)

	c.JSON(http.StatusOK, gin.H{
		"running":          rs.Monitor.IsRunning(),
		"interval_seconds": int(rs.Monitor.Interval.Seconds()),
		"timezone":         settings.Timezone,
		"test_mode":        settings.TestMode,
		"current_shift":    shift.Name,
		"shift_window":     shiftcal.FormatRange(shift.Start, shift.End),
	})
}

type TestSmsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

var testSmsRequestSchema = z.Struct(z.Shape{
	"To":      z.String().Required(),
	"Message": z.String().Required(),
})

// PostTestSms sends one ad-hoc message through the router, honoring test mode
// and the override number the same way an alarm would.
func (rs *RestfulServer) PostTestSms(c *gin.Context) {
	var req TestSmsRequest
	if err := testSmsRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	settings, err := sysconfig.Load(rs.Db.Conn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	router, err := rs.NewRouter(settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status, messageID := router.SendDirect(c.Request.Context(), req.To, req.Message)
	c.JSON(http.StatusOK, gin.H{"status": status, "message_id": messageID})
}
