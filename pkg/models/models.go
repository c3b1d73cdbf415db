package models

import "time"

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarn     Severity = "warn"
	SeverityMedium   Severity = "medium"
	SeverityInfo     Severity = "info"
)

type TargetType string

const (
	TargetShiftTotal    TargetType = "shift_total"
	TargetDayTotal      TargetType = "day_total"
	TargetAbsoluteValue TargetType = "absolute_value"
)

// Contact is an on-call recipient with a day-of-week/time-window schedule.
// Dow is either "ALL" or a comma separated list of 3-letter days, e.g. "MON,TUE".
// A window with start > end wraps midnight.
type Contact struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;not null"`
	Msisdn      string `gorm:"size:20;not null"`
	Group       string `gorm:"size:50;not null"`
	Role        string `gorm:"size:50"`
	Dow         string `gorm:"size:20;default:ALL"`
	WindowStart string `gorm:"size:5;default:'00:00'"`
	WindowEnd   string `gorm:"size:5;default:'23:59'"`
	Enabled     bool   `gorm:"default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Threshold struct {
	ID                 uint       `gorm:"primaryKey"`
	ThresholdRef       string     `gorm:"size:100;uniqueIndex;not null"`
	LimitValue         float64    `gorm:"not null"`
	ComparisonOperator string     `gorm:"size:10;not null"`
	Target             TargetType `gorm:"type:varchar(50);not null;check:target IN ('shift_total','day_total','absolute_value')"`
	Severity           Severity   `gorm:"type:varchar(20);not null"`
	MessageTemplate    string     `gorm:"type:text;not null"`
	Enabled            bool       `gorm:"default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AlarmLog is append-only; the acknowledged fields are written by the
// administration surface, never by the monitor.
type AlarmLog struct {
	ID             uint       `gorm:"primaryKey"`
	ThresholdRef   string     `gorm:"size:100;index;not null"`
	Value          float64    `gorm:"not null"`
	LimitValue     float64    `gorm:"not null"`
	Severity       Severity   `gorm:"type:varchar(20);not null"`
	Message        string     `gorm:"type:text;not null"`
	TargetType     TargetType `gorm:"type:varchar(50)"`
	ShiftStart     *time.Time
	ShiftEnd       *time.Time
	TriggeredAt    time.Time `gorm:"index"`
	Acknowledged   bool      `gorm:"default:false"`
	AcknowledgedAt *time.Time
	AcknowledgedBy string `gorm:"size:100"`
}

type DeliveryLog struct {
	ID          uint   `gorm:"primaryKey"`
	AlarmLogID  uint   `gorm:"index"`
	Msisdn      string `gorm:"size:20;not null"`
	MessageID   string `gorm:"size:100"`
	Status      string `gorm:"size:50;not null"`
	PlcName     string `gorm:"size:100"`
	TagName     string `gorm:"size:100"`
	Severity    Severity
	SentAt      time.Time
	DeliveredAt *time.Time
}

type SystemConfig struct {
	ID          uint   `gorm:"primaryKey"`
	Key         string `gorm:"size:100;uniqueIndex;not null"`
	Value       string `gorm:"type:text"`
	Description string `gorm:"type:text"`
	UpdatedAt   time.Time
}
