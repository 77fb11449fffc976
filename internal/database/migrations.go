package database

import (
	"gorm.io/gorm"

	"github.com/hiredeck/hiredeck/internal/models"
)

// AutoMigrate creates or updates the database schema for all models. The unique
// indexes declared on the models are structural parts of the booking design,
// not incidental performance indexes.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Candidate{},
		&models.Slot{},
		&models.ReservationLock{},
		&models.SlotConfirmation{},
		&models.SlotAssignment{},
		&models.ActionToken{},
		&models.RescheduleRequest{},
		&models.OutboxNotification{},
	)
}
