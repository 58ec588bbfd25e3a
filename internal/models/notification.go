package models

import "gorm.io/gorm"

type NotificationType string

const (
	NotificationTypeMessage          NotificationType = "MESSAGE"
	NotificationTypeBookingUpdate    NotificationType = "BOOKING_UPDATE"
	NotificationTypeBookingCreated   NotificationType = "BOOKING_CREATED"
	NotificationTypeBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationTypeReview           NotificationType = "REVIEW"
	NotificationTypePayment          NotificationType = "PAYMENT"
	NotificationTypePaymentFailed    NotificationType = "PAYMENT_FAILED"
	NotificationTypeSystem           NotificationType = "SYSTEM"
	NotificationTypeWorkerApproved   NotificationType = "WORKER_APPROVED"
	NotificationTypeWorkerRejected   NotificationType = "WORKER_REJECTED"
)

type Notification struct {
	gorm.Model
	UserID      uint             `gorm:"not null;index" json:"userId"`
	Type        NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title       string           `gorm:"not null" json:"title"`
	Content     string           `gorm:"not null" json:"content"`
	RelatedID   *uint            `json:"relatedId"`
	RelatedType *string          `gorm:"size:20" json:"relatedType"`
	IsRead      bool             `gorm:"not null;default:false" json:"isRead"`
}
