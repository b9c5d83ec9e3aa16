package database

import (
	"fmt"
	"restaurant_manager/config"
	"restaurant_manager/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectRemote opens the hosted Postgres that is the authoritative copy of tables,
// orders and the menu.
func ConnectRemote(s config.Settings, log logrus.FieldLogger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=5", s.DBHost, s.DBPort, s.DBUser, s.DBPassword, s.DBName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect remote database: %w", err)
	}
	log.Info("Connection opened to remote database")

	if err := MigrateRemote(db); err != nil {
		return nil, err
	}
	log.Info("Remote database migrated")

	SeedData(db, s.SeedTables, log)
	return db, nil
}

func MigrateRemote(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Table{},
		&model.MenuItem{},
		&model.Order{},
	); err != nil {
		return fmt.Errorf("migrate remote database: %w", err)
	}
	return nil
}

// OpenLocal opens the on-device SQLite file backing the cache store.
// The cache store migrates its own tables.
func OpenLocal(path string, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open local cache %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	log.WithField("path", path).Info("Local cache opened")
	return db, nil
}
