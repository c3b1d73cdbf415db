package totalizer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables holds the per-tag-prefix bounds the delta engine works with. The
// numbers are operator-tuned for the plant's equipment; new tag families are
// covered by editing the table, not the code.
type Tables struct {
	// RegisterMax maps a tag name prefix to the assumed maximum of its
	// bounded monotonic register.
	RegisterMax map[string]float64 `yaml:"register_max"`
	// UsageCeiling maps a tag name prefix to a reasonable totalizer reading
	// for one period; the final clamp is CeilingMultiplier times this.
	UsageCeiling map[string]float64 `yaml:"usage_ceiling"`

	DefaultRegisterMax  float64 `yaml:"default_register_max"`
	DefaultUsageCeiling float64 `yaml:"default_usage_ceiling"`

	// RolloverArmFraction of RegisterMax the start value must exceed before a
	// wrap is considered; RolloverAcceptFraction of RegisterMax is the most a
	// wrap delta may be to be believed.
	RolloverArmFraction    float64 `yaml:"rollover_arm_fraction"`
	RolloverAcceptFraction float64 `yaml:"rollover_accept_fraction"`

	CeilingMultiplier float64 `yaml:"ceiling_multiplier"`
}

// DefaultTables carries the values the plant runs with today. Flow totalizers
// (FT/FM families) are 32-bit registers; anything unrecognized is assumed to
// be a 24-bit register with a 1M-unit ceiling.
func DefaultTables() Tables {
	return Tables{
		RegisterMax: map[string]float64{
			"FT": 4294967295, // 2^32 - 1
			"FM": 4294967295, // 2^32 - 1
		},
		UsageCeiling: map[string]float64{
			"WRP26_FT5101": 50000,  // PC Barrel Washer
			"WRP26_FT5201": 10000,  // Peelers
			"WRP26_FT5301": 75000,  // Slicers
			"WRP26_FT5402": 200000, // Speed-Wash & ROCD
			"WRTC_FT":      500000,
			"WREP_FM":      100000,
			"WRCKNEW_FT":   50000,
		},
		DefaultRegisterMax:     16777215, // 2^24 - 1, conservative
		DefaultUsageCeiling:    1000000,
		RolloverArmFraction:    0.8,
		RolloverAcceptFraction: 0.1,
		CeilingMultiplier:      10,
	}
}

// LoadTables reads overrides from a YAML file on top of the defaults. An
// empty path returns the defaults unchanged.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return tables, fmt.Errorf("read totalizer tables: %w", err)
	}
	if err := yaml.Unmarshal(raw, &tables); err != nil {
		return tables, fmt.Errorf("parse totalizer tables: %w", err)
	}
	return tables, nil
}

// RegisterMaxFor picks the register maximum by the longest prefix matching
// tagName, falling back to the conservative default.
func (t Tables) RegisterMaxFor(tagName string) float64 {
	return lookupByPrefix(t.RegisterMax, tagName, t.DefaultRegisterMax)
}

// UsageCeilingFor picks the reasonable-totalizer ceiling the same way.
func (t Tables) UsageCeilingFor(tagName string) float64 {
	return lookupByPrefix(t.UsageCeiling, tagName, t.DefaultUsageCeiling)
}

func lookupByPrefix(table map[string]float64, tagName string, fallback float64) float64 {
	best := -1
	value := fallback
	for prefix, v := range table {
		if len(prefix) > best && len(prefix) <= len(tagName) && tagName[:len(prefix)] == prefix {
			best = len(prefix)
			value = v
		}
	}
	return value
}
