package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User statuses
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	gorm.Model
	Email            string          `gorm:"uniqueIndex;not null" json:"email"`
	Password         string          `gorm:"not null" json:"-"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	Role             string          `gorm:"default:'user'" json:"role"`
	Status           string          `gorm:"default:'active'" json:"status"`
	AllocatedCredits decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"allocated_credits"`
	TokenVersion     int             `gorm:"default:1" json:"-"`
}
