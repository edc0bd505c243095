package database

import (
	"fmt"

	"taskmanager/backend/internal/config"
	"taskmanager/backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens the task store. PostgreSQL is used when a DB host is configured,
// otherwise a local SQLite file keeps development and tests self-contained.
func New(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)

	if cfg.Database.Host != "" {
		db, err = gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), gormConfig)
	} else {
		db, err = gorm.Open(sqlite.Open(cfg.Database.SQLitePath), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.Token{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}
