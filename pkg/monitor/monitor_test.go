package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/water-alarm-service/pkg/common"
	"liyu1981.xyz/water-alarm-service/pkg/db"
	"liyu1981.xyz/water-alarm-service/pkg/historian"
	"liyu1981.xyz/water-alarm-service/pkg/historian/mocks"
	"liyu1981.xyz/water-alarm-service/pkg/models"
	"liyu1981.xyz/water-alarm-service/pkg/shiftcal"
	"liyu1981.xyz/water-alarm-service/pkg/sms"
	"liyu1981.xyz/water-alarm-service/pkg/sysconfig"
	"liyu1981.xyz/water-alarm-service/pkg/tagmap"
	_ "liyu1981.xyz/water-alarm-service/pkg/testing"
	"liyu1981.xyz/water-alarm-service/pkg/totalizer"
)

func newTestMonitor(t *testing.T, client historian.Client) *Monitor {
	t.Helper()
	common.SetTestLoggerNop()

	instance := db.GetInstance(db.UseMemorySqliteDialector())
	for _, model := range []any{
		&models.Threshold{}, &models.AlarmLog{}, &models.DeliveryLog{},
		&models.Contact{}, &models.SystemConfig{},
	} {
		require.NoError(t, instance.Conn.Where("1 = 1").Delete(model).Error)
	}

	factory := func(ctx context.Context) (historian.Client, error) {
		return client, nil
	}
	newRouter := func(settings sysconfig.Settings) (*sms.Router, error) {
		settings.Timezone = "UTC"
		return sms.NewRouter(*instance, tagmap.Default(), settings, nil, nil)
	}

	m := New(*instance, shiftcal.New(time.UTC), totalizer.NewEngine(totalizer.DefaultTables()),
		tagmap.Default(), factory, newRouter)
	m.Interval = 20 * time.Millisecond
	return m
}

func sampleOf(tag string, value float64) historian.Sample {
	return historian.Sample{TagName: tag, Timestamp: time.Now(), Value: value, Quality: "Good"}
}

func TestCheckThresholdsRaisesAlarmAndDelivers(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		WindowSamples(gomock.Any(), "WRP26_FT5101_Total", gomock.Any(), gomock.Any()).
		Return(sampleOf("WRP26_FT5101_Total", 500), sampleOf("WRP26_FT5101_Total", 1600))
	client.EXPECT().Close().Return(nil)

	m := newTestMonitor(t, client)
	require.NoError(t, m.Db.Conn.Create(&models.Threshold{
		ThresholdRef:       "FT5101_TotalLts_day",
		LimitValue:         1000,
		ComparisonOperator: ">=",
		Target:             models.TargetDayTotal,
		Severity:           models.SeverityWarn,
		MessageTemplate:    "{tag_desc} daily usage {value}{unit} over {limit}",
		Enabled:            true,
	}).Error)

	require.NoError(t, m.CheckThresholds(context.Background()))

	var alarms []models.AlarmLog
	require.NoError(t, m.Db.Conn.Find(&alarms).Error)
	require.Len(t, alarms, 1)
	assert.Equal(t, "FT5101_TotalLts_day", alarms[0].ThresholdRef)
	assert.Equal(t, 1100.0, alarms[0].Value)
	assert.Contains(t, alarms[0].Message, "1100")
	assert.Contains(t, alarms[0].Message, "PC Barrel Washer")
	require.NotNil(t, alarms[0].ShiftStart)
	require.NotNil(t, alarms[0].ShiftEnd)
	assert.Equal(t, 24*time.Hour, alarms[0].ShiftEnd.Sub(*alarms[0].ShiftStart))

	// default test-mode routing: one delivery per default test number
	var deliveries []models.DeliveryLog
	require.NoError(t, m.Db.Conn.Find(&deliveries).Error)
	require.Len(t, deliveries, 1)
	assert.Equal(t, alarms[0].ID, deliveries[0].AlarmLogID)
	assert.Equal(t, "test-mode", deliveries[0].Status)
}

func TestCheckThresholdsBelowLimitNoAlarm(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		WindowSamples(gomock.Any(), "WRP26_FT5201_Total", gomock.Any(), gomock.Any()).
		Return(sampleOf("WRP26_FT5201_Total", 500), sampleOf("WRP26_FT5201_Total", 600))
	client.EXPECT().Close().Return(nil)

	m := newTestMonitor(t, client)
	require.NoError(t, m.Db.Conn.Create(&models.Threshold{
		ThresholdRef:       "FT5201_TotalLts_shift",
		LimitValue:         1000,
		ComparisonOperator: ">=",
		Target:             models.TargetShiftTotal,
		Severity:           models.SeverityWarn,
		Enabled:            true,
	}).Error)

	require.NoError(t, m.CheckThresholds(context.Background()))

	var count int64
	require.NoError(t, m.Db.Conn.Model(&models.AlarmLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckThresholdsIncompleteDataNeverAlarms(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		WindowSamples(gomock.Any(), "WRP26_FT5101_Total", gomock.Any(), gomock.Any()).
		Return(historian.AbsentSample("WRP26_FT5101_Total", "no sample"), sampleOf("WRP26_FT5101_Total", 1600))
	client.EXPECT().Close().Return(nil)

	m := newTestMonitor(t, client)
	require.NoError(t, m.Db.Conn.Create(&models.Threshold{
		ThresholdRef:       "FT5101_TotalLts_shift",
		LimitValue:         0,
		ComparisonOperator: ">=",
		Target:             models.TargetShiftTotal,
		Severity:           models.SeverityCritical,
		Enabled:            true,
	}).Error)

	require.NoError(t, m.CheckThresholds(context.Background()))

	var count int64
	require.NoError(t, m.Db.Conn.Model(&models.AlarmLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckThresholdsAbsoluteValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		CurrentValue(gomock.Any(), "BoilerHL_9_4").
		Return(sampleOf("BoilerHL_9_4", 95))
	client.EXPECT().Close().Return(nil)

	m := newTestMonitor(t, client)
	require.NoError(t, m.Db.Conn.Create(&models.Threshold{
		ThresholdRef:       "BoilerHL_9_4",
		LimitValue:         90,
		ComparisonOperator: ">",
		Target:             models.TargetAbsoluteValue,
		Severity:           models.SeverityMedium,
		Enabled:            true,
	}).Error)

	require.NoError(t, m.CheckThresholds(context.Background()))

	var alarms []models.AlarmLog
	require.NoError(t, m.Db.Conn.Find(&alarms).Error)
	require.Len(t, alarms, 1)
	assert.Equal(t, 95.0, alarms[0].Value)
	assert.Nil(t, alarms[0].ShiftStart)
}

func TestSecondViolationWithinCooldownSuppressed(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().
		CurrentValue(gomock.Any(), "BoilerHL_9_4").
		Return(sampleOf("BoilerHL_9_4", 95)).
		Times(2)
	client.EXPECT().Close().Return(nil).Times(2)

	m := newTestMonitor(t, client)
	require.NoError(t, m.Db.Conn.Create(&models.Threshold{
		ThresholdRef:       "BoilerHL_9_4",
		LimitValue:         90,
		ComparisonOperator: ">",
		Target:             models.TargetAbsoluteValue,
		Severity:           models.SeverityWarn,
		Enabled:            true,
	}).Error)

	require.NoError(t, m.CheckThresholds(context.Background()))
	require.NoError(t, m.CheckThresholds(context.Background()))

	var count int64
	require.NoError(t, m.Db.Conn.Model(&models.AlarmLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCooldownWindows(t *testing.T) {
	m := newTestMonitor(t, nil)

	now := time.Now()
	require.NoError(t, m.Db.Conn.Create(&models.AlarmLog{
		ThresholdRef: "FT5101_TotalLts_shift",
		Severity:     models.SeverityWarn,
		Message:      "x",
		TriggeredAt:  now.Add(-20 * time.Minute),
	}).Error)

	// 20 minutes is past the 15-minute warn cooldown but inside the
	// 30-minute critical cooldown
	suppressed, err := m.inCooldown(models.Threshold{
		ThresholdRef: "FT5101_TotalLts_shift", Severity: models.SeverityWarn,
	}, now)
	require.NoError(t, err)
	assert.False(t, suppressed)

	suppressed, err = m.inCooldown(models.Threshold{
		ThresholdRef: "FT5101_TotalLts_shift", Severity: models.SeverityCritical,
	}, now)
	require.NoError(t, err)
	assert.True(t, suppressed)

	// a different threshold ref is never suppressed by this alarm
	suppressed, err = m.inCooldown(models.Threshold{
		ThresholdRef: "FT5201_TotalLts_shift", Severity: models.SeverityCritical,
	}, now)
	require.NoError(t, err)
	assert.False(t, suppressed)
}

func TestCompareValue(t *testing.T) {
	cases := []struct {
		op     string
		value  float64
		limit  float64
		expect bool
	}{
		{">", 5, 4, true},
		{">", 4, 4, false},
		{">=", 4, 4, true},
		{"<", 3, 4, true},
		{"<=", 4, 4, true},
		{"==", 4, 4, true},
		{"!=", 5, 4, true},
	}
	for _, c := range cases {
		got, err := compareValue(c.op, c.value, c.limit)
		require.NoError(t, err)
		assert.Equal(t, c.expect, got, "%v %s %v", c.value, c.op, c.limit)
	}

	_, err := compareValue("~=", 1, 2)
	assert.Error(t, err)
}

func TestBaseTagName(t *testing.T) {
	assert.Equal(t, "FT5101_TotalLts", baseTagName("FT5101_TotalLts_shift"))
	assert.Equal(t, "FT5101_TotalLts", baseTagName("FT5101_TotalLts_day"))
	assert.Equal(t, "BoilerHL_9_4", baseTagName("BoilerHL_9_4"))
}

func TestStartStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Close().Return(nil).AnyTimes()

	m := newTestMonitor(t, client)

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.Start(context.Background()), "second start must be rejected")

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return within a second")
	}
	assert.False(t, m.IsRunning())

	// stopping again is a no-op
	m.Stop()
}
