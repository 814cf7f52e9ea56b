package database

import (
	"gorm.io/gorm"

	"inspectra/internal/models"
)

// MigrateSchema creates or updates the tables for properties and snapshots
func MigrateSchema(db *gorm.DB) error {
	return db.AutoMigrate(&models.Property{}, &models.PropertySnapshot{})
}

func (d *Database) RunMigrations() error {
	d.logger.Info("Running database migrations...")
	return MigrateSchema(d.db)
}
