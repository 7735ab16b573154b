package database

import (
	"fmt"

	"catalog/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM and migrates the
// schema. The unique indexes on products.name and approval_requests.product_id
// back the service checks, so a failed migration is fatal.
func NewConnection(dsn string, log *logrus.Entry) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// unique violations come back as gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		// AutoMigrate is the first round trip
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	log.Debug("database schema migrated")

	return db, nil
}

// Products first: approval_requests carries the FK
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Product{}, &model.ApprovalRequest{}); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}
