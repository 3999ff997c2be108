package database

import (
	"fmt"

	"github.com/glamqueue/glamqueue/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Conf contains Postgres connection fields.
type Conf struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// Connect opens a Postgres connection. TranslateError is on so
// duplicate-key violations surface as gorm.ErrDuplicatedKey, which the
// account layer relies on for conflict recovery.
func Connect(c Conf) (*gorm.DB, error) {
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode)

	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

// Migrate auto-migrates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Salon{},
		&models.Service{},
		&models.Booking{},
	)
}
