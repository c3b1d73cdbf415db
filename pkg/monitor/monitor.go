// Package monitor runs the evaluation loop: every interval it reloads the
// system settings, reads the relevant historian samples, computes usage for
// each enabled threshold and raises alarms for violations, subject to a
// per-threshold cooldown.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"liyu1981.xyz/water-alarm-service/pkg/common"
	"liyu1981.xyz/water-alarm-service/pkg/db"
	"liyu1981.xyz/water-alarm-service/pkg/historian"
	"liyu1981.xyz/water-alarm-service/pkg/models"
	"liyu1981.xyz/water-alarm-service/pkg/shiftcal"
	"liyu1981.xyz/water-alarm-service/pkg/sms"
	"liyu1981.xyz/water-alarm-service/pkg/sysconfig"
	"liyu1981.xyz/water-alarm-service/pkg/tagmap"
	"liyu1981.xyz/water-alarm-service/pkg/totalizer"
)

const (
	DefaultInterval = 30 * time.Second

	warnCooldown     = 15 * time.Minute
	criticalCooldown = 30 * time.Minute

	stopJoinTimeout = 5 * time.Second
)

// RouterFactory builds a notification router from the cycle's settings
// snapshot, so settings edits take effect on the next cycle.
type RouterFactory func(settings sysconfig.Settings) (*sms.Router, error)

type Monitor struct {
	Db           db.DB
	Calc         *shiftcal.Calculator
	Engine       *totalizer.Engine
	Catalog      tagmap.Catalog
	NewHistorian historian.Factory
	NewRouter    RouterFactory
	Interval     time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func New(database db.DB, calc *shiftcal.Calculator, engine *totalizer.Engine, catalog tagmap.Catalog, newHistorian historian.Factory, newRouter RouterFactory) *Monitor {
	return &Monitor{
		Db:           database,
		Calc:         calc,
		Engine:       engine,
		Catalog:      catalog,
		NewHistorian: newHistorian,
		NewRouter:    newRouter,
		Interval:     DefaultInterval,
	}
}

// Start launches the loop. It returns an error if the monitor is already
// running. The first cycle runs immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("monitor already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.loop(loopCtx)
	return nil
}

// Stop cancels the loop and waits for the current cycle to finish, bounded so
// a stuck historian query cannot hang shutdown.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		common.GetLogger().Warn("Monitor stop timed out waiting for cycle to finish")
	}
}

func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	logger := common.GetLoggerWith(
		common.LoggerNameAlarmMonitor,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryCycle),
	)
	logger.Info("Monitor loop started", zap.Duration("interval", m.Interval))

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	m.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Monitor loop stopped")
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// runCycle is the panic boundary: a bug in one cycle must not kill the loop.
func (m *Monitor) runCycle(ctx context.Context) {
	logger := common.GetLoggerWith(
		common.LoggerNameAlarmMonitor,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryCycle),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Cycle panicked", zap.Any("panic", r))
		}
	}()

	if err := m.CheckThresholds(ctx); err != nil {
		logger.Error("Cycle failed", zap.Error(err))
	}
}

// CheckThresholds runs one full evaluation cycle against a fresh settings
// snapshot and a historian client scoped to the cycle.
func (m *Monitor) CheckThresholds(ctx context.Context) error {
	settings, err := sysconfig.Load(m.Db.Conn)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	router, err := m.NewRouter(settings)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	client, err := m.NewHistorian(ctx)
	if err != nil {
		return fmt.Errorf("connect historian: %w", err)
	}
	defer client.Close()

	var thresholds []models.Threshold
	if err := m.Db.Conn.Where("enabled = ?", true).Find(&thresholds).Error; err != nil {
		return fmt.Errorf("load thresholds: %w", err)
	}

	// one id per cycle, to correlate the threshold and alarm log lines below
	logger := common.GetLoggerWith(
		common.LoggerNameAlarmMonitor,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryCycle),
		zap.String("cycle_id", uuid.NewString()),
	)
	logger.Info("Evaluating thresholds", zap.Int("count", len(thresholds)))

	now := time.Now()
	for _, threshold := range thresholds {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.evaluateThreshold(ctx, client, router, threshold, now); err != nil {
			logger.Warn("Threshold evaluation failed, continuing",
				zap.String("threshold_ref", threshold.ThresholdRef), zap.Error(err))
		}
	}

	return nil
}

// evaluateThreshold resolves the threshold's value, checks it against the
// limit and raises an alarm on violation.
func (m *Monitor) evaluateThreshold(ctx context.Context, client historian.Client, router *sms.Router, threshold models.Threshold, now time.Time) error {
	logger := common.GetLoggerWith(
		common.LoggerNameAlarmMonitor,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryThreshold),
		zap.String("threshold_ref", threshold.ThresholdRef),
	)

	baseName := baseTagName(threshold.ThresholdRef)
	histTag := m.Catalog.HistorianTag(baseName)

	var value float64
	var shiftStart, shiftEnd *time.Time

	switch threshold.Target {
	case models.TargetAbsoluteValue:
		sample := client.CurrentValue(ctx, histTag)
		if sample.Absent {
			logger.Warn("No current value, skipping", zap.String("reason", sample.Err))
			return nil
		}
		value = sample.Value

	case models.TargetShiftTotal, models.TargetDayTotal:
		var start, end time.Time
		if threshold.Target == models.TargetShiftTotal {
			window := m.Calc.CurrentShift(now)
			start, end = window.Start, window.End
		} else {
			window := m.Calc.CurrentDay(now)
			start, end = window.Start, window.End
		}

		startSample, endSample := client.WindowSamples(ctx, histTag, start, end)
		result := m.Engine.Delta(startSample.ValuePtr(), endSample.ValuePtr(), histTag)
		if result.Quality != totalizer.QualityGood && result.Quality != totalizer.QualitySuspect {
			logger.Warn("Usage not computable, skipping",
				zap.String("quality", string(result.Quality)),
				zap.String("method", string(result.Method)))
			return nil
		}
		value = result.Delta
		shiftStart, shiftEnd = &start, &end

	default:
		return fmt.Errorf("unknown target type %q", threshold.Target)
	}

	violated, err := compareValue(threshold.ComparisonOperator, value, threshold.LimitValue)
	if err != nil {
		return err
	}
	if !violated {
		return nil
	}

	if suppressed, err := m.inCooldown(threshold, now); err != nil {
		return err
	} else if suppressed {
		logger.Info("Violation within cooldown, suppressed", zap.Float64("value", value))
		return nil
	}

	return m.raiseAlarm(ctx, router, threshold, value, shiftStart, shiftEnd, now)
}

// baseTagName strips the aggregation suffix a threshold ref carries, leaving
// the display tag name, e.g. "WRP26_FT5101_shift" -> "WRP26_FT5101".
func baseTagName(thresholdRef string) string {
	for _, suffix := range []string{"_shift", "_day"} {
		if strings.HasSuffix(thresholdRef, suffix) {
			return strings.TrimSuffix(thresholdRef, suffix)
		}
	}
	return thresholdRef
}

func compareValue(operator string, value, limit float64) (bool, error) {
	switch operator {
	case ">":
		return value > limit, nil
	case ">=":
		return value >= limit, nil
	case "<":
		return value < limit, nil
	case "<=":
		return value <= limit, nil
	case "==":
		return value == limit, nil
	case "!=":
		return value != limit, nil
	default:
		return false, fmt.Errorf("unknown comparison operator %q", operator)
	}
}

// inCooldown reports whether an alarm for the same threshold was already
// raised within the severity's cooldown window.
func (m *Monitor) inCooldown(threshold models.Threshold, now time.Time) (bool, error) {
	cooldown := warnCooldown
	if threshold.Severity == models.SeverityCritical {
		cooldown = criticalCooldown
	}

	var count int64
	err := m.Db.Conn.Model(&models.AlarmLog{}).
		Where("threshold_ref = ? AND triggered_at >= ?", threshold.ThresholdRef, now.Add(-cooldown)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *Monitor) raiseAlarm(ctx context.Context, router *sms.Router, threshold models.Threshold, value float64, shiftStart, shiftEnd *time.Time, now time.Time) error {
	logger := common.GetLoggerWith(
		common.LoggerNameAlarmMonitor,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAlarm),
		zap.String("threshold_ref", threshold.ThresholdRef),
	)

	baseName := baseTagName(threshold.ThresholdRef)
	action := sms.AlertAction{
		Threshold: threshold,
		Value:     value,
		PlcName:   baseName,
		TagInfo:   m.Catalog.Info(baseName),
		// group rules key off the historian tag, which carries the line prefix
		Group: m.Catalog.GroupFor(m.Catalog.HistorianTag(baseName)),
	}

	message, err := router.FormatMessage(action)
	if err != nil {
		return fmt.Errorf("format alarm message: %w", err)
	}

	alarm := models.AlarmLog{
		ThresholdRef: threshold.ThresholdRef,
		Value:        value,
		LimitValue:   threshold.LimitValue,
		Severity:     threshold.Severity,
		Message:      message,
		TargetType:   threshold.Target,
		ShiftStart:   shiftStart,
		ShiftEnd:     shiftEnd,
		TriggeredAt:  now,
	}
	if err := m.Db.Conn.Create(&alarm).Error; err != nil {
		return fmt.Errorf("persist alarm: %w", err)
	}

	logger.Warn("Alarm raised",
		zap.Float64("value", value),
		zap.Float64("limit", threshold.LimitValue),
		zap.String("severity", string(threshold.Severity)))

	action.AlarmLogID = alarm.ID
	if _, err := router.SendAlert(ctx, action); err != nil {
		return fmt.Errorf("dispatch alarm: %w", err)
	}
	return nil
}
