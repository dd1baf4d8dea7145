package dbhelper

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"tryonstudio/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBConfig selects the backing database. Driver is "sqlite" (default,
// Path is the database file) or "postgres".
type DBConfig struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
}

func dialector(cfg DBConfig) gorm.Dialector {
	switch cfg.Driver {
	case "postgres":
		return postgres.Open(
			fmt.Sprintf(
				"postgres://%s:%s@%s:%s/%s",
				cfg.Username,
				cfg.Password,
				cfg.Host,
				cfg.Port,
				cfg.Name,
			),
		)
	default:
		path := cfg.Path
		if path == "" {
			path = "tryonstudio.db"
		}
		return sqlite.Open(path + "?_journal_mode=WAL&_busy_timeout=5000")
	}
}

func SetupDB(cfg DBConfig) *gorm.DB {
	db, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	if db.Dialector.Name() == "sqlite" {
		// single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
	}
	sqlDB.SetConnMaxLifetime(time.Minute * 5)
	MigrateAll(db)
	return db
}

var testDBSeq atomic.Int64

// SetupTestDB opens a private in-memory sqlite database per call.
func SetupTestDB() *gorm.DB {
	name := fmt.Sprintf("file:tryonstudio_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to open test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	MigrateAll(db)
	return db
}

func MigrateAll(db *gorm.DB) {
	Migrate(db, &models.WardrobeItem{})
	Migrate(db, &models.ProfilePhoto{})
	Migrate(db, &models.Composition{})
	Migrate(db, &models.Setting{})
}
