package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditTransactionKind classifies credit balance changes.
type CreditTransactionKind string

// Credit transaction kinds.
const (
	CreditKindChat         CreditTransactionKind = "chat"
	CreditKindUnlock       CreditTransactionKind = "unlock"
	CreditKindPaymentGrant CreditTransactionKind = "payment_grant"
	CreditKindManualGrant  CreditTransactionKind = "manual_grant"
)

// CreditTransaction is an audit row written with every credit balance change.
type CreditTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID       uint64                `gorm:"not null;index"`            // Affected user.
	Kind         CreditTransactionKind `gorm:"type:varchar(32);not null"` // Change classification.
	Delta        int64                 `gorm:"not null"`                  // Signed credit change.
	BalanceAfter int64                 `gorm:"not null"`                  // Balance after the change.
	Reference    string                `gorm:"type:text"`                 // Related entity, e.g. "payment:12".

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// ReferralCommission records the commission paid to a referrer for one payment.
type ReferralCommission struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PaymentRequestID uint64          `gorm:"not null;uniqueIndex"`        // Source payment, one commission each.
	ReferrerID       uint64          `gorm:"not null;index"`              // Earning user.
	ReferredUserID   uint64          `gorm:"not null;index"`              // Paying user.
	Amount           decimal.Decimal `gorm:"type:decimal(20,2);not null"` // Commission amount.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
