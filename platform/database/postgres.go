package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"go_branch_chat/config"
	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

type DB struct {
	database *gorm.DB
}

func InitPostgres(cfg *config.Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=prefer TimeZone=UTC",
		cfg.Host,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logging.Logger.Error().Err(err).Msg("failed to connect to database")
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		logging.Logger.Error().Err(err).Msg("failed to connect to database")
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logging.Logger.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Msg("Connected to Postgres")
	return &DB{database: db}, nil
}

func (db *DB) AutoMigrate() error {
	for _, model := range []interface{}{
		&models.ConversationRecord{},
		&models.ChatNodeRecord{},
		&models.SettingsRecord{},
	} {
		if err := db.database.AutoMigrate(model); err != nil {
			logging.Logger.Error().Err(err).Msgf("auto migration failed for %T", model)
			return err
		}
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.database.DB()
	if err != nil {
		logging.Logger.Error().Err(err).Msg("failed to close database")
		return err
	}
	return sqlDB.Close()
}

func (db *DB) GetDatabase() *gorm.DB {
	return db.database
}

func (db *DB) Ping() error {
	sqlDB, err := db.database.DB()
	if err != nil {
		logging.Logger.Error().Err(err).Msg("failed to ping database")
		return err
	}
	return sqlDB.Ping()
}
