package db

import (
	"log/slog"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
)

// Connect opens the postgres connection used by every repository.
func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not open database")
	}
	slog.Info("database connected")
	return gdb, nil
}

// Migrate creates or updates every table the application owns.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.UserMessage{},
		&models.Profile{},
		&models.Project{},
		&models.Chat{},
		&models.ChatMessage{},
		&models.Job{},
		&models.Review{},
		&models.Dispute{},
		&models.Testimonial{},
	)
}
