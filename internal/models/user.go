package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleWorker   Role = "WORKER"
	RoleAdmin    Role = "ADMIN"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

type User struct {
	gorm.Model
	Name           string         `gorm:"not null" json:"name"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	Phone          string         `json:"phone"`
	Address        string         `json:"address"`
	Bio            string         `json:"bio"`
	Role           Role           `gorm:"type:varchar(20);not null;default:'CUSTOMER'" json:"role"`
	Status         UserStatus     `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"approvalStatus"`
	HourlyRate     int            `json:"hourlyRate"`
	Rating         float64        `json:"rating"`
	ReviewCount    int            `json:"reviewCount"`
}

func (u *User) HashPassword() error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// IsEligibleWorker reports whether the user can be bound to a booking:
// role WORKER, status ACTIVE, and approved by an admin.
func (u *User) IsEligibleWorker() bool {
	return u.Role == RoleWorker &&
		u.Status == UserStatusActive &&
		u.ApprovalStatus == ApprovalStatusApproved
}
