package models

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// Valid reports whether s is one of the five booking statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type Booking struct {
	gorm.Model
	CustomerID    uint          `gorm:"not null;index" json:"customerId"`
	Customer      User          `json:"customer"`
	WorkerID      *uint         `gorm:"index" json:"workerId"`
	Worker        *User         `json:"worker,omitempty"`
	ServiceType   string        `gorm:"not null" json:"serviceType"`
	ScheduledDate time.Time     `gorm:"not null;index" json:"scheduledDate"`
	StartTime     string        `gorm:"size:5;not null" json:"startTime"`
	Duration      int           `gorm:"not null" json:"duration"`
	Address       string        `gorm:"not null" json:"address"`
	Notes         *string       `json:"notes"`
	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	TotalAmount   *int          `json:"totalAmount"`
	CompletedAt   *time.Time    `json:"completedAt"`
}
