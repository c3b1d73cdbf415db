package db

import (
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"liyu1981.xyz/water-alarm-service/pkg/common"
	"liyu1981.xyz/water-alarm-service/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

func GetInstance(dialector gorm.Dialector) *DB {
	var logger = common.GetLogger()
	once.Do(func() {
		conn, err := gorm.Open(dialector, &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}

		logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

		instance = &DB{Conn: conn}

		err = instance.Conn.AutoMigrate(
			&models.Contact{},
			&models.Threshold{},
			&models.AlarmLog{},
			&models.DeliveryLog{},
			&models.SystemConfig{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}

		logger.Info("Database migration completed")

		if err := instance.Conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			log.Fatal("Failed to enable sqlite foreign key support", err)
		}

		// WAL lets the administration surface read/write catalogs while the
		// monitor loop holds its own connection.
		if err := instance.Conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			log.Fatal("Failed to set sqlite journal mode", err)
		}
	})
	return instance
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyWaterDbPath); !found {
		dbPath = "water_monitoring.db"
	}
	return sqlite.Open(dbPath)
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

// InitDefaultData seeds the system_config table on first run. Twilio
// credentials default from the environment so a fresh install can send
// without touching the settings page.
func (d *DB) InitDefaultData() error {
	var count int64
	if err := d.Conn.Model(&models.SystemConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := []models.SystemConfig{
		{Key: "twilio_sid", Value: os.Getenv(common.EnvKeyTwilioAccountSid), Description: "Twilio Account SID"},
		{Key: "twilio_token", Value: os.Getenv(common.EnvKeyTwilioAuthToken), Description: "Twilio Auth Token"},
		{Key: "twilio_from", Value: os.Getenv(common.EnvKeyTwilioFromNumber), Description: "Twilio From Number"},
		{Key: "timezone", Value: "Pacific/Auckland", Description: "System Timezone"},
		{Key: "test_mode", Value: "true", Description: "Enable test mode"},
		{Key: "test_numbers", Value: "+64123456789", Description: "Test phone numbers (comma separated)"},
		{Key: "override_number", Value: "", Description: "Number delivered for real even in test mode"},
		{Key: "historian_server", Value: "192.168.10.236", Description: "SQL Server hostname/IP"},
		{Key: "historian_database", Value: "Runtime", Description: "Historian database name"},
		{Key: "historian_username", Value: "wwUser", Description: "Database username"},
		{Key: "historian_password", Value: "wwUser", Description: "Database password"},
	}

	return d.Conn.Create(&defaults).Error
}
