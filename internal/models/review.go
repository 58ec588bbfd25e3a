package models

import "gorm.io/gorm"

// Review is a customer's rating of the worker on a completed booking.
// One review per booking.
type Review struct {
	gorm.Model
	BookingID  uint    `gorm:"uniqueIndex;not null" json:"bookingId"`
	Booking    Booking `json:"booking"`
	ReviewerID uint    `gorm:"not null;index" json:"reviewerId"`
	Reviewer   User    `gorm:"foreignKey:ReviewerID" json:"reviewer"`
	RevieweeID uint    `gorm:"not null;index" json:"revieweeId"`
	Reviewee   User    `gorm:"foreignKey:RevieweeID" json:"reviewee"`
	Rating     int     `gorm:"not null" json:"rating"`
	Comment    *string `json:"comment"`
}
