package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents an end-user account with its credit and referral balances.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name     string `gorm:"type:text;not null"`             // Display name.
	Email    string `gorm:"type:text;not null;uniqueIndex"` // Login email.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Credits             int64           `gorm:"not null;default:0"`                    // Spendable credit balance, never negative.
	TotalSpent          int64           `gorm:"not null;default:0"`                    // Money paid on completed payments.
	ReferralEarnings    decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"` // Commission awaiting withdrawal.
	TotalCommissionPaid decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0"` // Cumulative approved withdrawals.

	ReferralCode string  `gorm:"type:text;not null;uniqueIndex"` // Own referral code, immutable.
	ReferredBy   *string `gorm:"type:text;index"`                // Referrer's code, set once at signup.
	CouponCode   *string `gorm:"type:text;uniqueIndex"`          // Personal coupon code, generated once.

	Disabled bool `gorm:"not null;default:false"` // Blocks sign-in when true.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
