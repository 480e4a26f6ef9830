// Creates the schema and seeds the role and scheme lookups.
// cmd/migrate/main.go
package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"proposal-management-api/config"
	"proposal-management-api/repositories"
)

func main() {
	seed := flag.Bool("seed", true, "insert missing roles and schemes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if f, err := config.InitLogging(cfg); err == nil && f != nil {
		defer f.Close()
	}
	logger := config.Logger.Named("migrate")

	if err := config.InitDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := repositories.Migrate(config.DB); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Schema is up to date")

	if *seed {
		if err := repositories.SeedLookups(config.DB); err != nil {
			logger.Fatal("Seeding failed", zap.Error(err))
		}
		logger.Info("Lookups seeded")
	}
}
