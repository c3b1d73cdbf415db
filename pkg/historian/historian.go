// Package historian reads point-in-time tag samples from the plant's
// WonderWare historian. Missing data is a normal, reportable outcome: read
// operations return a Sample with Absent set instead of an error, so a quiet
// tag can never abort an evaluation cycle.
package historian

import (
	"context"
	"time"
)

// Sample is one point reading of a tag. When Absent is true the value is
// meaningless and Err carries the reason, if known.
type Sample struct {
	TagName   string    `json:"tag_name"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Quality   string    `json:"quality"`
	Absent    bool      `json:"absent"`
	Err       string    `json:"error,omitempty"`
}

// ValuePtr adapts a sample for the delta engine: nil when absent.
func (s Sample) ValuePtr() *float64 {
	if s.Absent {
		return nil
	}
	v := s.Value
	return &v
}

func AbsentSample(tagName, reason string) Sample {
	return Sample{TagName: tagName, Absent: true, Err: reason}
}

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks liyu1981.xyz/water-alarm-service/pkg/historian Client

// Client is the read contract against the time-series source. Implementations
// are scoped to one evaluation cycle: acquire, query, Close, never held
// across sleep intervals.
type Client interface {
	// CurrentValue returns the most recent sample within a 24h look-back.
	CurrentValue(ctx context.Context, tagName string) Sample

	// WindowSamples returns the nearest sample at/after start (short
	// look-ahead) and the nearest sample at/before end (short look-back).
	// A missing end sample falls back to CurrentValue.
	WindowSamples(ctx context.Context, tagName string, start, end time.Time) (Sample, Sample)

	// BatchCurrentValues fetches current values for many tags in one round
	// trip. Tags with no recent sample are present in the result as absent.
	BatchCurrentValues(ctx context.Context, tagNames []string) map[string]Sample

	// HistoricalData returns up to maxPoints samples in [start, end].
	HistoricalData(ctx context.Context, tagName string, start, end time.Time, maxPoints int) ([]Sample, error)

	Close() error
}

// Factory opens a client for one evaluation cycle.
type Factory func(ctx context.Context) (Client, error)
