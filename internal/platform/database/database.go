package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherai-docchat/internal/config"
	"gopherai-docchat/internal/model"
	mysqlClient "gopherai-docchat/internal/platform/mysql"
	sqliteClient "gopherai-docchat/internal/platform/sqlite"
)

// Open connects to the configured driver and migrates the schema.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err = sqliteClient.New(ctx, cfg.Database.SQLitePath)
	default:
		db, err = mysqlClient.New(ctx, cfg.MySQLDSN())
	}
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Document{}, &model.ChatRecord{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}
