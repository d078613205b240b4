package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle state shared by payment and withdraw requests.
type RequestStatus string

// Request lifecycle states. Completed and rejected are terminal.
const (
	RequestPending   RequestStatus = "pending"
	RequestCompleted RequestStatus = "completed"
	RequestRejected  RequestStatus = "rejected"
)

// PaymentRequest is a user's claim of a manual payment awaiting admin verification.
type PaymentRequest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   uint64 `gorm:"not null;index"`     // Requesting user.
	UserName string `gorm:"type:text;not null"` // User name snapshot.

	PackageID    string `gorm:"type:varchar(64);not null"` // Catalog package ID.
	PackageName  string `gorm:"type:text;not null"`        // Package name snapshot.
	Credits      int64  `gorm:"not null"`                  // Credits granted on approval.
	PackagePrice int64  `gorm:"not null"`                  // Catalog price before discount.
	Amount       int64  `gorm:"not null"`                  // Payable amount after coupon.

	Method        string  `gorm:"type:varchar(32);not null"` // Reported payment method.
	SenderNumber  string  `gorm:"type:text;not null"`        // Reported sender account number.
	TransactionID string  `gorm:"type:text;not null;index"`  // Reported transaction ID.
	AppliedCoupon *string `gorm:"type:text"`                 // Coupon code, when applied.

	Status      RequestStatus `gorm:"type:varchar(16);not null;default:'pending';index"` // Lifecycle state.
	ProcessedBy *uint64       // Admin who approved or rejected.
	ProcessedAt *time.Time    // Approval or rejection time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// WithdrawRequest is a user's claim to be paid out their referral earnings.
type WithdrawRequest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   uint64 `gorm:"not null;index"`     // Requesting user.
	UserName string `gorm:"type:text;not null"` // User name snapshot.

	Amount decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Earnings reserved at request time.
	Method string          `gorm:"type:varchar(32);not null"`   // Payout method.
	Number string          `gorm:"type:text;not null"`          // Payout account number.

	Status      RequestStatus `gorm:"type:varchar(16);not null;default:'pending';index"` // Lifecycle state.
	ProcessedBy *uint64       // Admin who approved or rejected.
	ProcessedAt *time.Time    // Approval or rejection time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}
