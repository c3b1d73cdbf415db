package common

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyWaterDBType string = "WATER_DB_TYPE"
	EnvKeyWaterDbPath string = "WATER_DB_PATH"

	EnvKeyWaterHttpHostPort string = "WATER_HTTP_HOST_PORT"

	EnvKeyWaterTagMapPath         string = "WATER_TAG_MAP_PATH"
	EnvKeyWaterTotalizerTablePath string = "WATER_TOTALIZER_TABLE_PATH"

	EnvKeyWaterCheckInterval string = "WATER_CHECK_INTERVAL_SECONDS"

	EnvKeyWaterSmsRate  string = "WATER_SMS_RATE"
	EnvKeyWaterSmsBurst string = "WATER_SMS_BURST"

	EnvKeyTwilioAccountSid string = "TWILIO_ACCOUNT_SID"
	EnvKeyTwilioAuthToken  string = "TWILIO_AUTH_TOKEN"
	EnvKeyTwilioFromNumber string = "TWILIO_FROM_NUMBER"

	LoggerNameAlarmMonitor  string = "alarm_monitor"
	LoggerNameRestfulServer string = "restful_server"
	LoggerNameHistorian     string = "historian"
	LoggerNameSmsRouter     string = "sms_router"
	LoggerNameTotalizer     string = "totalizer"

	LoggerFieldCategory     string = "category"
	LoggerCategoryCycle     string = "cycle"
	LoggerCategoryThreshold string = "threshold"
	LoggerCategoryAlarm     string = "alarm"
	LoggerCategoryDelivery  string = "delivery"
	LoggerCategoryDelta     string = "delta"
)
