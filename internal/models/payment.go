package models

import "gorm.io/gorm"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

const (
	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCash         = "cash"
)

// Payment is a one-to-one transaction record for a booking. Amounts are
// whole currency units; no gateway integration happens here.
type Payment struct {
	gorm.Model
	BookingID     uint          `gorm:"uniqueIndex;not null" json:"bookingId"`
	Booking       Booking       `json:"booking"`
	UserID        uint          `gorm:"not null;index" json:"userId"`
	User          User          `json:"user"`
	Amount        int           `gorm:"not null" json:"amount"`
	PaymentMethod string        `gorm:"size:20;not null" json:"paymentMethod"`
	TransactionID *string       `json:"transactionId"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
}
