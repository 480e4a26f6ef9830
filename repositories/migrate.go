package repositories

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"proposal-management-api/models"
)

// Migrate creates or updates every table the API owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Scheme{},
		&models.Proposal{},
		&models.Member{},
		&models.Review{},
		&models.ProposalStatusHistory{},
		&models.ProposalDocument{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

var defaultRoles = []models.Role{
	{RoleID: models.RoleDosen, Role: "dosen"},
	{RoleID: models.RoleMahasiswa, Role: "mahasiswa"},
	{RoleID: models.RoleAdmin, Role: "admin"},
	{RoleID: models.RoleReviewer, Role: "reviewer"},
}

var defaultSchemes = []models.Scheme{
	{Code: "PDP", Name: "Penelitian Dosen Pemula", DisplayOrder: 1, IsActive: true},
	{Code: "PF", Name: "Penelitian Fundamental", DisplayOrder: 2, IsActive: true},
	{Code: "PT", Name: "Penelitian Terapan", DisplayOrder: 3, IsActive: true},
	{Code: "PKM", Name: "Pengabdian kepada Masyarakat", DisplayOrder: 4, IsActive: true},
}

// SeedLookups inserts the role and scheme rows that are missing. Existing
// rows are left untouched.
func SeedLookups(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaultRoles).Error; err != nil {
			return fmt.Errorf("seed roles: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&defaultSchemes).Error; err != nil {
			return fmt.Errorf("seed schemes: %w", err)
		}
		return nil
	})
}
