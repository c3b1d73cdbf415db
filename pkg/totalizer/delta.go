// Package totalizer turns two point samples of a monotonic plant counter into
// a usage figure, correcting for register rollover and hard resets. The
// engine never returns an error: every anomaly degrades to a safe zero or
// clamped value, because a transient data glitch must not block the
// evaluation loop.
package totalizer

import (
	"go.uber.org/zap"
	"liyu1981.xyz/water-alarm-service/pkg/common"
)

type Quality string

const (
	QualityGood       Quality = "Good"
	QualityNoData     Quality = "No Data"
	QualityIncomplete Quality = "Incomplete Data"
	QualitySuspect    Quality = "Suspect"
	QualityError      Quality = "Error"
)

type Method string

const (
	MethodNormal   Method = "normal"
	MethodRollover Method = "rollover"
	MethodReset    Method = "reset"
	MethodError    Method = "error"
)

// DeltaResult reports the computed usage together with how it was computed.
// Delta is always >= 0.
type DeltaResult struct {
	Delta      float64  `json:"delta"`
	StartValue *float64 `json:"start_value"`
	EndValue   *float64 `json:"end_value"`
	Quality    Quality  `json:"quality"`
	Method     Method   `json:"method"`
}

type Engine struct {
	Tables Tables
}

func NewEngine(tables Tables) *Engine {
	return &Engine{Tables: tables}
}

// Delta computes the usage between two samples of tagName's counter.
//
// Policy, in order: missing samples give a zero, non-alarming result; a
// non-decreasing counter is plain subtraction; a decreasing counter near the
// top of its register is treated as a rollover when the wrapped usage is
// believable; anything else is a hard reset where the end reading is itself
// the period's usage. A final per-prefix ceiling clamp keeps data noise from
// turning into an alarm storm.
func (e *Engine) Delta(startValue, endValue *float64, tagName string) DeltaResult {
	result := DeltaResult{StartValue: startValue, EndValue: endValue}

	if startValue == nil && endValue == nil {
		result.Quality = QualityNoData
		result.Method = MethodError
		return result
	}
	if startValue == nil || endValue == nil {
		result.Quality = QualityIncomplete
		result.Method = MethodError
		return result
	}

	start, end := *startValue, *endValue

	switch {
	case end >= start:
		result.Delta = end - start
		result.Quality = QualityGood
		result.Method = MethodNormal

	default: // end < start: the register wrapped or was reset
		registerMax := e.Tables.RegisterMaxFor(tagName)

		if start > registerMax*e.Tables.RolloverArmFraction {
			wrapped := (registerMax - start) + end
			if wrapped <= registerMax*e.Tables.RolloverAcceptFraction {
				result.Delta = wrapped
				result.Quality = QualityGood
				result.Method = MethodRollover
				break
			}
			// wrap delta not believable, fall through to reset handling
		}

		if end < 0 {
			result.Quality = QualityError
			result.Method = MethodError
			return result
		}

		// restart/maintenance reset: the post-reset reading is the usage
		result.Delta = end
		result.Quality = QualityGood
		result.Method = MethodReset
	}

	return e.clamp(result, tagName)
}

func (e *Engine) clamp(result DeltaResult, tagName string) DeltaResult {
	limit := e.Tables.UsageCeilingFor(tagName) * e.Tables.CeilingMultiplier
	if result.Delta <= limit {
		return result
	}

	common.GetLoggerWith(
		common.LoggerNameTotalizer,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryDelta),
	).Warn("Suspect totalizer delta clamped",
		zap.String("tag_name", tagName),
		zap.Float64("delta", result.Delta),
		zap.Float64("limit", limit),
	)

	result.Delta = limit
	result.Quality = QualitySuspect
	return result
}
