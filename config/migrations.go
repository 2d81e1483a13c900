package config

import "p9e.in/hallfix/models"

// Migrate creates or updates the documents table backing the store.
func Migrate() {
	if err := DB.AutoMigrate(&models.Document{}); err != nil {
		Log.WithError(err).Fatal("migration failed")
	}
	Log.Info("Migrations applied")
}
