// Package tagmap is the static catalog tying threshold/display tag names to
// historian tag names, descriptions, alert groups and units. Tag naming is
// supplied as configuration: unknown tags pass through unchanged with
// defaults, so a new meter is a data change.
package tagmap

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type TagInfo struct {
	HistorianTag string `yaml:"historian_tag" json:"historian_tag"`
	Description  string `yaml:"description" json:"description"`
	Line         string `yaml:"line" json:"line"`
	Unit         string `yaml:"unit" json:"unit"`
}

// GroupRule assigns an alert group to any tag whose name contains one of the
// listed substrings. Rules are evaluated in order, first match wins.
type GroupRule struct {
	Group      string   `yaml:"group"`
	Substrings []string `yaml:"substrings"`
}

type Catalog struct {
	Tags         map[string]TagInfo `yaml:"tags"`
	GroupRules   []GroupRule        `yaml:"group_rules"`
	DefaultGroup string             `yaml:"default_group"`
	DefaultUnit  string             `yaml:"default_unit"`
}

// Default returns the catalog for the plant's current meter set.
func Default() Catalog {
	return Catalog{
		Tags: map[string]TagInfo{
			// PC line
			"FT5101_TotalLts": {HistorianTag: "WRP26_FT5101_Total", Description: "PC Barrel Washer", Line: "PC Line", Unit: "L"},
			"FT5201_TotalLts": {HistorianTag: "WRP26_FT5201_Total", Description: "Peelers", Line: "PC Line", Unit: "L"},
			"FT5301_TotalLts": {HistorianTag: "WRP26_FT5301_Total", Description: "Slicers", Line: "PC Line", Unit: "L"},
			"FT5402_TotalLts": {HistorianTag: "WRP26_FT5402_Total", Description: "Speed-Wash & ROCD", Line: "PC Line", Unit: "L"},
			"FT5240_Total_m3": {HistorianTag: "WRP26_FT5240_Total_m3", Description: "TOMRA", Line: "PC Line", Unit: "m3"},
			"FT5241_Total_m3": {HistorianTag: "WRP26_FT5241_Total_m3", Description: "TOMRA/Sormac/Auto Halver Hot Water", Line: "PC Line", Unit: "m3"},
			"FT5242_Total_m3": {HistorianTag: "WRP26_FT5242_Total_m3", Description: "DAF Cold Water", Line: "PC Line", Unit: "m3"},
			// CK line
			"FT3101_Totalizer1": {HistorianTag: "WRCKNEW_FT3101_Totalizer1", Description: "CK Peeler Fresh Water", Line: "CK Line", Unit: "L"},
			"FT3104_Totalizer1": {HistorianTag: "WRCKNEW_FT3104_Totalizer1", Description: "CK Peeler Water", Line: "CK Line", Unit: "L"},
			"FT3105_Totalizer1": {HistorianTag: "WRCKNEW_FT3105_Totalizer1", Description: "CK Peeler Water", Line: "CK Line", Unit: "L"},
			"FT3106_Totalizer1": {HistorianTag: "WRCKNEW_FT3106_Totalizer1", Description: "CK Peeler Water", Line: "CK Line", Unit: "L"},
			"FT3503_l1_Process_variables_Totalizer1": {HistorianTag: "WRCKNEW_FT3503_Usage.NonErasable", Description: "CK Slicers / Slide / ROCD / Hoses", Line: "CK Line", Unit: "L"},
			"HotWater_Total_lit":                     {HistorianTag: "WRCKNEW_HotWaterRMF_Value", Description: "CK Hot Water", Line: "CK Line", Unit: "L"},
			"CK_Line1_HotWater_NettTotal":            {HistorianTag: "CK_Line1_HotWater_NettTotal", Description: "CK Hot Water", Line: "CK Line", Unit: "L"},
			// TC line
			"FT2102_Usage_NonErasable":  {HistorianTag: "WRTC_FT2102_Total", Description: "TC Water Usage", Line: "TC Line", Unit: "L"},
			"FT2104_Usage_NonErasable":  {HistorianTag: "WRTC_FT2104_Total", Description: "TC Water Usage", Line: "TC Line", Unit: "L"},
			"FT2201_Usage_NonErasable":  {HistorianTag: "WRTC_FT2201_Total", Description: "TC Water Usage", Line: "TC Line", Unit: "L"},
			"FT2301_Usage2_NonErasable": {HistorianTag: "WRTC_FT2301_Total", Description: "TC Water Usage", Line: "TC Line", Unit: "L"},
			"FT2302_Usage2_NonErasable": {HistorianTag: "WRTC_FT2302_Total", Description: "TC Water Usage", Line: "TC Line", Unit: "L"},
			// EP line
			"FM8201Total_Actual": {HistorianTag: "WREP_FM8201Total", Description: "EP Water Usage", Line: "EP Line", Unit: "L"},
			// utilities
			"BoilerHL_9_4": {HistorianTag: "BoilerHL_9_4", Description: "Boiler Hot Loop", Line: "Utilities", Unit: "L"},
		},
		GroupRules: []GroupRule{
			{Group: "PC and CK", Substrings: []string{"PC", "CK", "FT51", "FT31"}},
			{Group: "TC and Ext", Substrings: []string{"TC", "Ext", "FT41", "FT35"}},
			{Group: "DAF and Hot water", Substrings: []string{"DAF", "Hot", "FM82"}},
		},
		DefaultGroup: "operations",
		DefaultUnit:  "L",
	}
}

// Load reads a catalog from YAML; an empty path returns the default catalog.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("read tag map: %w", err)
	}

	catalog := Catalog{}
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return Default(), fmt.Errorf("parse tag map: %w", err)
	}
	if catalog.DefaultGroup == "" {
		catalog.DefaultGroup = "operations"
	}
	if catalog.DefaultUnit == "" {
		catalog.DefaultUnit = "L"
	}
	return catalog, nil
}

// HistorianTag maps a display tag name to its historian tag name. Unknown
// names pass through unchanged.
func (c Catalog) HistorianTag(name string) string {
	if info, ok := c.Tags[name]; ok && info.HistorianTag != "" {
		return info.HistorianTag
	}
	return name
}

// Info returns the catalog entry for name, synthesizing a pass-through entry
// for unknown tags.
func (c Catalog) Info(name string) TagInfo {
	if info, ok := c.Tags[name]; ok {
		if info.Unit == "" {
			info.Unit = c.DefaultUnit
		}
		return info
	}
	return TagInfo{
		HistorianTag: name,
		Description:  name,
		Line:         "Unknown",
		Unit:         c.DefaultUnit,
	}
}

// GroupFor classifies a tag into an alert group by the substring rules,
// falling back to the default group. Callers should pass the historian tag
// name, which carries the line prefix the rules key off.
func (c Catalog) GroupFor(ref string) string {
	for _, rule := range c.GroupRules {
		for _, sub := range rule.Substrings {
			if strings.Contains(ref, sub) {
				return rule.Group
			}
		}
	}
	return c.DefaultGroup
}

// Names lists all catalog tag names, for the dashboard batch query.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.Tags))
	for name := range c.Tags {
		names = append(names, name)
	}
	return names
}
