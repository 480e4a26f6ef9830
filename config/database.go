package config

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// DSN builds the driver-specific connection string.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Jakarta",
			c.Host, c.Port, c.Username, c.Password, c.Database)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func dialector(c DatabaseConfig) gorm.Dialector {
	if c.Driver == "postgres" {
		return postgres.Open(c.DSN())
	}
	return mysql.Open(c.DSN())
}

// InitDB opens the database described by cfg and stores it in DB.
func InitDB(cfg *Config) error {
	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := logger.Info
	if cfg.IsProduction() && !cfg.Database.DebugSQL {
		logLevel = logger.Warn
	}

	sqlLog := zap.NewStdLog(Logger.Named("gorm"))
	db, err := gorm.Open(dialector(cfg.Database), &gorm.Config{
		Logger:         logger.New(sqlLog, logger.Config{LogLevel: logLevel, IgnoreRecordNotFoundError: true}),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	Logger.Info("Database connected successfully",
		zap.String("driver", cfg.Database.Driver),
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))
	return nil
}
