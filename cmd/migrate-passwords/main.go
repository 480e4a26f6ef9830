// Migration script to hash existing passwords
// cmd/migrate-passwords/main.go
package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"proposal-management-api/config"
	"proposal-management-api/models"
	"proposal-management-api/utils"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report plaintext passwords without updating them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if f, err := config.InitLogging(cfg); err == nil && f != nil {
		defer f.Close()
	}
	logger := config.Logger.Named("migrate-passwords")

	if err := config.InitDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	var users []models.User
	if err := config.DB.Where("delete_at IS NULL").Find(&users).Error; err != nil {
		logger.Fatal("Failed to fetch users", zap.Error(err))
	}

	var updated, skipped, failed int
	for _, user := range users {
		if user.Password == "" || utils.IsBcryptHash(user.Password) {
			skipped++
			continue
		}
		if *dryRun {
			logger.Info("Plaintext password found", zap.String("email", user.Email))
			continue
		}

		hashedPassword, err := utils.HashPassword(user.Password)
		if err != nil {
			logger.Warn("Failed to hash password", zap.String("email", user.Email), zap.Error(err))
			failed++
			continue
		}

		if err := config.DB.Model(&models.User{}).
			Where("user_id = ? AND password = ?", user.UserID, user.Password).
			Update("password", hashedPassword).Error; err != nil {
			logger.Warn("Failed to update password", zap.String("email", user.Email), zap.Error(err))
			failed++
			continue
		}
		updated++
	}

	logger.Info("Password migration completed",
		zap.Int("updated", updated), zap.Int("skipped", skipped), zap.Int("failed", failed))
}
