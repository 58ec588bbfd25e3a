package database

import (
	"github.com/azusa-tani/kajishift-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Booking{},
		&models.Payment{},
		&models.Review{},
		&models.Notification{},
	)
	if err != nil {
		return err
	}

	// Enum-style check constraints; gorm tags don't cover these
	if db.Migrator().HasTable(&models.User{}) {
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`)
		if err := db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('CUSTOMER', 'WORKER', 'ADMIN'))`).Error; err != nil {
			return err
		}
	}

	if db.Migrator().HasTable(&models.Booking{}) {
		db.Exec(`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_status_check`)
		if err := db.Exec(`ALTER TABLE bookings ADD CONSTRAINT bookings_status_check CHECK (status IN ('PENDING', 'CONFIRMED', 'IN_PROGRESS', 'COMPLETED', 'CANCELLED'))`).Error; err != nil {
			return err
		}

		db.Exec(`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_duration_check`)
		if err := db.Exec(`ALTER TABLE bookings ADD CONSTRAINT bookings_duration_check CHECK (duration >= 1 AND duration <= 24)`).Error; err != nil {
			return err
		}

		// A booking without a worker can only be PENDING or CANCELLED
		db.Exec(`ALTER TABLE bookings DROP CONSTRAINT IF EXISTS bookings_worker_status_check`)
		if err := db.Exec(`ALTER TABLE bookings ADD CONSTRAINT bookings_worker_status_check CHECK (worker_id IS NOT NULL OR status IN ('PENDING', 'CANCELLED'))`).Error; err != nil {
			return err
		}
	}

	if db.Migrator().HasTable(&models.Review{}) {
		db.Exec(`ALTER TABLE reviews DROP CONSTRAINT IF EXISTS reviews_rating_check`)
		if err := db.Exec(`ALTER TABLE reviews ADD CONSTRAINT reviews_rating_check CHECK (rating >= 1 AND rating <= 5)`).Error; err != nil {
			return err
		}
	}

	return nil
}
