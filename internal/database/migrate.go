package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/matchfyn/matchfyn-api/internal/models"
)

// Migrate applies the schema for every persisted model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Interest{},
		&models.UserInterest{},
		&models.Match{},
		&models.Room{},
		&models.RoomParticipant{},
		&models.Message{},
		&models.MessageReaction{},
		&models.VoiceSession{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate schema: %w", err)
	}
	return nil
}
