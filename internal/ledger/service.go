// Package ledger owns every balance and request-status mutation: credit
// debits, vault unlocks, payment and withdrawal lifecycles, and referral
// commission. Balances change only through SQL-side conditional increments
// inside a transaction, never by writing back a value read in Go.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/priointimate/PrioBusiness/internal/catalog"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service runs ledger operations against the database.
type Service struct {
	db        *gorm.DB
	publisher realtime.Publisher
	now       func() time.Time
}

// NewService constructs a Service. publisher may be nil.
func NewService(db *gorm.DB, publisher realtime.Publisher) *Service {
	return &Service{db: db, publisher: publisher, now: func() time.Time { return time.Now().UTC() }}
}

// publish notifies subscribers after a commit. Failures are logged, not returned:
// the mutation already happened.
func (s *Service) publish(ctx context.Context, events ...realtime.Event) {
	if s.publisher == nil {
		return
	}
	if errPublish := realtime.PublishAll(ctx, s.publisher, events...); errPublish != nil {
		log.WithError(errPublish).Warn("ledger: publish event failed")
	}
}

func userEvent(userID uint64, kind string) realtime.Event {
	return realtime.Event{Topic: realtime.UserTopic(userID), Type: kind, ID: userID}
}

// Debit charges cost credits for a priced action and returns the new balance.
// A debit larger than the balance fails with ErrInsufficientCredits and changes nothing.
func (s *Service) Debit(ctx context.Context, userID uint64, cost int64, kind models.CreditTransactionKind, reference string) (int64, error) {
	if cost <= 0 {
		return 0, invalid("cost", "must be positive")
	}
	var balance int64
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errDebit error
		balance, errDebit = debitTx(tx, userID, cost, kind, reference)
		return errDebit
	})
	if errTx != nil {
		return 0, errTx
	}
	s.publish(ctx, userEvent(userID, "credits"))
	return balance, nil
}

// debitTx decrements credits only when the balance covers cost.
func debitTx(tx *gorm.DB, userID uint64, cost int64, kind models.CreditTransactionKind, reference string) (int64, error) {
	res := tx.Model(&models.User{}).
		Where("id = ? AND credits >= ?", userID, cost).
		UpdateColumn("credits", gorm.Expr("credits - ?", cost))
	if res.Error != nil {
		return 0, fmt.Errorf("ledger: debit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		exists, errExists := userExists(tx, userID)
		if errExists != nil {
			return 0, errExists
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientCredits
	}
	balance, errBalance := creditBalance(tx, userID)
	if errBalance != nil {
		return 0, errBalance
	}
	if errAudit := recordCredit(tx, userID, kind, -cost, balance, reference); errAudit != nil {
		return 0, errAudit
	}
	return balance, nil
}

// creditTx adds credits and records the change.
func creditTx(tx *gorm.DB, userID uint64, credits int64, kind models.CreditTransactionKind, reference string) (int64, error) {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("credits", gorm.Expr("credits + ?", credits))
	if res.Error != nil {
		return 0, fmt.Errorf("ledger: credit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	balance, errBalance := creditBalance(tx, userID)
	if errBalance != nil {
		return 0, errBalance
	}
	if errAudit := recordCredit(tx, userID, kind, credits, balance, reference); errAudit != nil {
		return 0, errAudit
	}
	return balance, nil
}

// addMoney adds delta to a decimal column and rounds to cents in SQL.
// SQLite keeps decimal columns as REAL, so unrounded sums drift.
func addMoney(column string, delta decimal.Decimal) clause.Expr {
	return gorm.Expr("ROUND("+column+" + ?, 2)", delta)
}

func recordCredit(tx *gorm.DB, userID uint64, kind models.CreditTransactionKind, delta, balance int64, reference string) error {
	row := models.CreditTransaction{
		UserID:       userID,
		Kind:         kind,
		Delta:        delta,
		BalanceAfter: balance,
		Reference:    reference,
	}
	if errCreate := tx.Create(&row).Error; errCreate != nil {
		return fmt.Errorf("ledger: record credit transaction: %w", errCreate)
	}
	return nil
}

func userExists(tx *gorm.DB, userID uint64) (bool, error) {
	var count int64
	if errCount := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

func creditBalance(tx *gorm.DB, userID uint64) (int64, error) {
	var user models.User
	if errFind := tx.Select("id", "credits").First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, errFind
	}
	return user.Credits, nil
}

// GrantCredits adds credits outside the payment flow, e.g. an admin top-up.
func (s *Service) GrantCredits(ctx context.Context, userID uint64, credits int64, reference string) (int64, error) {
	if credits <= 0 {
		return 0, invalid("credits", "must be positive")
	}
	var balance int64
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var errCredit error
		balance, errCredit = creditTx(tx, userID, credits, models.CreditKindManualGrant, reference)
		return errCredit
	})
	if errTx != nil {
		return 0, errTx
	}
	s.publish(ctx, userEvent(userID, "credits"))
	return balance, nil
}

// UnlockResult describes the outcome of Unlock.
type UnlockResult struct {
	ItemID  string `json:"item_id"`
	URL     string `json:"url"`
	Charged bool   `json:"charged"`
	Balance int64  `json:"balance"`
}

// errAlreadyUnlocked rolls back a debit that lost a race with an identical unlock.
var errAlreadyUnlocked = errors.New("ledger: already unlocked")

// Unlock reveals a vault item for the fixed unlock price. Unlocking an item
// the user already owns succeeds without charging. The debit and the unlock
// row commit together.
func (s *Service) Unlock(ctx context.Context, userID uint64, itemID string) (UnlockResult, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return UnlockResult{}, invalid("item_id", "is required")
	}
	db := s.db.WithContext(ctx)

	var item models.VaultItem
	if errFind := db.Where("id = ?", itemID).First(&item).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return UnlockResult{}, ErrNotFound
		}
		return UnlockResult{}, errFind
	}
	result := UnlockResult{ItemID: item.ID, URL: item.URL}

	errTx := db.Transaction(func(tx *gorm.DB) error {
		owned, errOwned := isUnlocked(tx, userID, item.ID)
		if errOwned != nil {
			return errOwned
		}
		if owned {
			return errAlreadyUnlocked
		}
		balance, errDebit := debitTx(tx, userID, catalog.VaultUnlockPrice, models.CreditKindUnlock, "vault:"+item.ID)
		if errDebit != nil {
			return errDebit
		}
		unlock := models.VaultUnlock{UserID: userID, VaultItemID: item.ID, CreditsPaid: catalog.VaultUnlockPrice}
		if errCreate := tx.Create(&unlock).Error; errCreate != nil {
			return errCreate
		}
		result.Charged = true
		result.Balance = balance
		return nil
	})
	if errTx != nil {
		// A concurrent unlock of the same item may have won the unique index.
		if !errors.Is(errTx, errAlreadyUnlocked) {
			owned, errOwned := isUnlocked(db, userID, item.ID)
			if errOwned != nil || !owned {
				return UnlockResult{}, errTx
			}
		}
		balance, errBalance := creditBalance(db, userID)
		if errBalance != nil {
			return UnlockResult{}, errBalance
		}
		result.Charged = false
		result.Balance = balance
		return result, nil
	}
	s.publish(ctx, userEvent(userID, "unlock"))
	return result, nil
}

func isUnlocked(tx *gorm.DB, userID uint64, itemID string) (bool, error) {
	var count int64
	if errCount := tx.Model(&models.VaultUnlock{}).
		Where("user_id = ? AND vault_item_id = ?", userID, itemID).
		Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

// UnlockedItemIDs returns the ids of the vault items userID has unlocked.
func (s *Service) UnlockedItemIDs(ctx context.Context, userID uint64) (map[string]bool, error) {
	var ids []string
	if errPluck := s.db.WithContext(ctx).Model(&models.VaultUnlock{}).
		Where("user_id = ?", userID).
		Pluck("vault_item_id", &ids).Error; errPluck != nil {
		return nil, errPluck
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
