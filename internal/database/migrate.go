package database

import (
	"fmt"

	"chat-relay/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the tables the relay reads and writes.
func Migrate(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.User{},
		&models.Friendship{},
		&models.Message{},
	}

	for _, model := range modelsToMigrate {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return nil
}
