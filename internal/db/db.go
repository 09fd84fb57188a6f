package db

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/FlexiFlizz/sonphonor/internal/models"
)

// Models lists every persisted entity, in dependency order. Shared by
// AutoMigrate here and by the test helpers.
func Models() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Equipment{},
		&models.DamageReport{},
		&models.FlightCase{},
		&models.FlightCaseItem{},
		&models.Quote{},
		&models.QuoteItem{},
		&models.Event{},
		&models.EventEquipmentAssignment{},
		&models.EventTechnicianAssignment{},
	}
}

// ConnectAndMigrate opens the Postgres connection (with retries, the database
// may still be starting) and brings the schema up to date. MIGRATIONS=true
// runs the SQL files in ./migrations via golang-migrate; otherwise AutoMigrate
// keeps the dev loop simple.
func ConnectAndMigrate(rawDSN string, runSQL bool, log *zap.Logger) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel), TranslateError: true}

	var conn *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.Warn("retrying DB connection", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Info("connected to PostgreSQL", zap.String("dsn", MaskDSN(dsn)))

	if runSQL {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
		return conn, nil
	}
	for _, m := range Models() {
		if migErr := conn.AutoMigrate(m); migErr != nil {
			return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
		}
	}
	return conn, nil
}
