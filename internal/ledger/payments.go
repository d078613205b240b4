package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/priointimate/PrioBusiness/internal/catalog"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"github.com/priointimate/PrioBusiness/internal/settings"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Minimum lengths of self-reported transfer details.
const (
	minSenderNumberLength  = 11
	minTransactionIDLength = 5
)

// PaymentInput is a user's claim of a manual transfer for a package.
type PaymentInput struct {
	UserID        uint64
	PackageID     string
	Method        string
	SenderNumber  string
	TransactionID string
	Coupon        string
}

// CreatePaymentRequest validates input and records a pending payment request.
// No credits are granted until an admin approves it.
func (s *Service) CreatePaymentRequest(ctx context.Context, in PaymentInput) (*models.PaymentRequest, error) {
	pkg, ok := catalog.FindPackage(in.PackageID)
	if !ok {
		return nil, invalid("package_id", "unknown package")
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = catalog.MethodBKash
	}
	if !catalog.IsPaymentMethod(method) {
		return nil, invalid("method", "unsupported payment method")
	}
	sender := strings.TrimSpace(in.SenderNumber)
	if len(sender) < minSenderNumberLength {
		return nil, invalid("sender_number", fmt.Sprintf("must be at least %d characters", minSenderNumberLength))
	}
	trxID := strings.TrimSpace(in.TransactionID)
	if len(trxID) < minTransactionIDLength {
		return nil, invalid("transaction_id", fmt.Sprintf("must be at least %d characters", minTransactionIDLength))
	}

	db := s.db.WithContext(ctx)
	var user models.User
	if errFind := db.Select("id", "name").First(&user, in.UserID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}

	amount, applied := catalog.ApplyCoupon(pkg.Price, in.Coupon)
	req := models.PaymentRequest{
		UserID:        user.ID,
		UserName:      user.Name,
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
		Credits:       pkg.Credits,
		PackagePrice:  pkg.Price,
		Amount:        amount,
		Method:        method,
		SenderNumber:  sender,
		TransactionID: trxID,
		Status:        models.RequestPending,
		CreatedAt:     s.now(),
	}
	if applied {
		coupon := strings.TrimSpace(in.Coupon)
		req.AppliedCoupon = &coupon
	}
	if errCreate := db.Create(&req).Error; errCreate != nil {
		return nil, fmt.Errorf("ledger: create payment request: %w", errCreate)
	}
	s.publish(ctx,
		realtime.Event{Topic: realtime.TopicPayments, Type: "created", ID: req.ID},
		userEvent(user.ID, "payment"),
	)
	return &req, nil
}

// Decision reports the outcome of an admin approve or reject call.
// Applied is false when the request was no longer pending.
type Decision struct {
	Applied    bool            `json:"applied"`
	Status     string          `json:"status"`
	Balance    int64           `json:"balance,omitempty"`
	Commission decimal.Decimal `json:"commission"`
}

// transition flips a pending request to status. When another caller already
// moved it out of pending it reports false along with the stored status.
func (s *Service) transition(tx *gorm.DB, model any, id uint64, status models.RequestStatus, adminID uint64) (bool, models.RequestStatus, error) {
	now := s.now()
	res := tx.Model(model).
		Where("id = ? AND status = ?", id, models.RequestPending).
		Updates(map[string]any{
			"status":       status,
			"processed_by": adminID,
			"processed_at": now,
		})
	if res.Error != nil {
		return false, "", res.Error
	}
	if res.RowsAffected == 1 {
		return true, status, nil
	}
	var current []string
	if errPluck := tx.Model(model).Where("id = ?", id).Pluck("status", &current).Error; errPluck != nil {
		return false, "", errPluck
	}
	if len(current) == 0 {
		return false, "", ErrNotFound
	}
	return false, models.RequestStatus(current[0]), nil
}

// ApprovePayment completes a pending payment: the package credits are granted
// in full, the paid amount is added to the user's spend, and the referrer earns
// commission, all in one transaction. Approving a request that is no longer
// pending is a no-op.
func (s *Service) ApprovePayment(ctx context.Context, paymentID, adminID uint64) (Decision, error) {
	var (
		req      models.PaymentRequest
		decision Decision
		referrer uint64
	)
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&req, paymentID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		applied, current, errTransition := s.transition(tx, &models.PaymentRequest{}, req.ID, models.RequestCompleted, adminID)
		if errTransition != nil {
			return errTransition
		}
		decision.Status = string(current)
		if !applied {
			return nil
		}
		decision.Applied = true

		balance, errCredit := creditTx(tx, req.UserID, req.Credits, models.CreditKindPaymentGrant, fmt.Sprintf("payment:%d", req.ID))
		if errCredit != nil {
			return errCredit
		}
		decision.Balance = balance
		if errSpend := tx.Model(&models.User{}).Where("id = ?", req.UserID).
			UpdateColumn("total_spent", gorm.Expr("total_spent + ?", req.Amount)).Error; errSpend != nil {
			return errSpend
		}

		commission, referrerID, errCommission := accrueCommission(tx, req)
		if errCommission != nil {
			return errCommission
		}
		decision.Commission = commission
		referrer = referrerID
		return nil
	})
	if errTx != nil {
		return Decision{}, errTx
	}
	if decision.Applied {
		events := []realtime.Event{
			{Topic: realtime.TopicPayments, Type: "completed", ID: req.ID},
			{Topic: realtime.TopicUsers, Type: "updated", ID: req.UserID},
			userEvent(req.UserID, "credits"),
		}
		if referrer != 0 {
			events = append(events, userEvent(referrer, "earnings"))
		}
		s.publish(ctx, events...)
	}
	return decision, nil
}

// accrueCommission credits the payer's referrer with a share of the paid amount.
// The unique payment id on the commission row caps it at once per payment.
func accrueCommission(tx *gorm.DB, req models.PaymentRequest) (decimal.Decimal, uint64, error) {
	var payer models.User
	if errFind := tx.Select("id", "referred_by").First(&payer, req.UserID).Error; errFind != nil {
		return decimal.Zero, 0, errFind
	}
	if payer.ReferredBy == nil || strings.TrimSpace(*payer.ReferredBy) == "" {
		return decimal.Zero, 0, nil
	}
	var referrer models.User
	errReferrer := tx.Select("id").Where("referral_code = ?", *payer.ReferredBy).First(&referrer).Error
	if errors.Is(errReferrer, gorm.ErrRecordNotFound) {
		return decimal.Zero, 0, nil
	}
	if errReferrer != nil {
		return decimal.Zero, 0, errReferrer
	}
	if referrer.ID == payer.ID {
		return decimal.Zero, 0, nil
	}

	amount := Commission(req.Amount, settings.ReferralCommissionPercent())
	if !amount.IsPositive() {
		return decimal.Zero, 0, nil
	}
	row := models.ReferralCommission{
		PaymentRequestID: req.ID,
		ReferrerID:       referrer.ID,
		ReferredUserID:   payer.ID,
		Amount:           amount,
	}
	if errCreate := tx.Create(&row).Error; errCreate != nil {
		return decimal.Zero, 0, fmt.Errorf("ledger: record commission: %w", errCreate)
	}
	if errEarn := tx.Model(&models.User{}).Where("id = ?", referrer.ID).
		UpdateColumn("referral_earnings", addMoney("referral_earnings", amount)).Error; errEarn != nil {
		return decimal.Zero, 0, errEarn
	}
	return amount, referrer.ID, nil
}

// Commission returns percent of amount rounded to two decimal places.
func Commission(amount int64, percent decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(amount).Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}

// RejectPayment marks a pending payment rejected. Balances are untouched.
func (s *Service) RejectPayment(ctx context.Context, paymentID, adminID uint64) (Decision, error) {
	var (
		req      models.PaymentRequest
		decision Decision
	)
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&req, paymentID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		applied, current, errTransition := s.transition(tx, &models.PaymentRequest{}, req.ID, models.RequestRejected, adminID)
		if errTransition != nil {
			return errTransition
		}
		decision.Applied = applied
		decision.Status = string(current)
		return nil
	})
	if errTx != nil {
		return Decision{}, errTx
	}
	if decision.Applied {
		s.publish(ctx,
			realtime.Event{Topic: realtime.TopicPayments, Type: "rejected", ID: req.ID},
			userEvent(req.UserID, "payment"),
		)
	}
	return decision, nil
}
