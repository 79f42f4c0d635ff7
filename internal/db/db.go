package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"calibration-tracker/config"
	"calibration-tracker/internal/logging"
	"calibration-tracker/internal/model"
)

// Init opens the configured database and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	logMode := logger.Warn
	if cfg.LogSQL {
		logMode = logger.Info
	}
	db, err := gorm.Open(dialector, GormConfig(logger.Default.LogMode(logMode)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// GormConfig stamps rows in UTC and translates driver errors into gorm's sentinels.
// Stored times share one zone so range filters compare correctly on every dialect.
func GormConfig(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:         l,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates every table the tracker uses.
func Migrate(db *gorm.DB) error {
	log := logging.L()
	log.Info("running database migrations")
	if err := db.AutoMigrate(
		&model.Department{},
		&model.Location{},
		&model.User{},
		&model.Equipment{},
		&model.IncomingRecord{},
		&model.OutgoingRecord{},
		&model.TrackingRecord{},
		&model.PushSubscription{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		log.Info("applying postgres-specific indexes")
		if err := applyPostgresDDL(db); err != nil {
			log.WithError(err).Warn("failed to apply some postgres DDL, continuing without them")
		}
	}

	log.Info("database initialization complete")
	return nil
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		// At most one open self-service loan per piece of equipment.
		"CREATE UNIQUE INDEX IF NOT EXISTS tracking_records_one_open_per_equipment " +
			"ON tracking_records (equipment_id) WHERE date_in IS NULL AND deleted_at IS NULL;",

		// Report default ordering.
		"CREATE INDEX IF NOT EXISTS idx_incoming_records_date_in_desc ON incoming_records (date_in DESC, id DESC);",

		// Open cycles per equipment.
		"CREATE INDEX IF NOT EXISTS idx_incoming_records_open ON incoming_records (equipment_id) " +
			"WHERE date_out IS NULL AND deleted_at IS NULL;",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
