// Package sysconfig is the typed view over the system_config key/value table.
// The monitor loads a fresh snapshot every cycle, so settings edited on the
// administration surface take effect without a restart.
package sysconfig

import (
	"strings"

	"gorm.io/gorm"
	"liyu1981.xyz/water-alarm-service/pkg/models"
)

type Settings struct {
	TwilioSid   string
	TwilioToken string
	TwilioFrom  string

	Timezone       string
	TestMode       bool
	TestNumbers    []string
	OverrideNumber string

	HistorianServer   string
	HistorianDatabase string
	HistorianUsername string
	HistorianPassword string
}

// Load reads all system config rows into a Settings snapshot, applying the
// same defaults the seeder writes.
func Load(conn *gorm.DB) (Settings, error) {
	var rows []models.SystemConfig
	if err := conn.Find(&rows).Error; err != nil {
		return Settings{}, err
	}

	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	settings := Settings{
		TwilioSid:         values["twilio_sid"],
		TwilioToken:       values["twilio_token"],
		TwilioFrom:        values["twilio_from"],
		Timezone:          getOr(values, "timezone", "Pacific/Auckland"),
		TestMode:          strings.EqualFold(getOr(values, "test_mode", "true"), "true"),
		OverrideNumber:    strings.TrimSpace(values["override_number"]),
		HistorianServer:   getOr(values, "historian_server", "192.168.10.236"),
		HistorianDatabase: getOr(values, "historian_database", "Runtime"),
		HistorianUsername: getOr(values, "historian_username", "wwUser"),
		HistorianPassword: getOr(values, "historian_password", "wwUser"),
	}

	for _, number := range strings.Split(getOr(values, "test_numbers", "+64123456789"), ",") {
		if number = strings.TrimSpace(number); number != "" {
			settings.TestNumbers = append(settings.TestNumbers, number)
		}
	}

	return settings, nil
}

func getOr(values map[string]string, key, fallback string) string {
	if v, ok := values[key]; ok && v != "" {
		return v
	}
	return fallback
}
