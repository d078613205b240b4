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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minPayoutNumberLength = 11

// WithdrawInput asks for the caller's referral earnings to be paid out.
type WithdrawInput struct {
	UserID uint64
	Method string
	Number string
}

// CreateWithdrawRequest reserves the user's entire referral balance in a new
// pending request. It fails validation below the withdrawal minimum.
func (s *Service) CreateWithdrawRequest(ctx context.Context, in WithdrawInput) (*models.WithdrawRequest, error) {
	method := strings.TrimSpace(in.Method)
	if !catalog.IsPayoutMethod(method) {
		return nil, invalid("method", "must be bKash or Nagad")
	}
	number := strings.TrimSpace(in.Number)
	if len(number) < minPayoutNumberLength {
		return nil, invalid("number", fmt.Sprintf("must be at least %d characters", minPayoutNumberLength))
	}

	var req models.WithdrawRequest
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "name", "referral_earnings").
			First(&user, in.UserID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		amount := user.ReferralEarnings.Round(2)
		if amount.LessThan(catalog.MinWithdrawAmount) {
			return invalid("amount", fmt.Sprintf("minimum withdrawal is %s", catalog.MinWithdrawAmount))
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND referral_earnings >= ?", user.ID, amount).
			UpdateColumn("referral_earnings", addMoney("referral_earnings", amount.Neg()))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invalid("amount", "earnings changed, try again")
		}

		req = models.WithdrawRequest{
			UserID:    user.ID,
			UserName:  user.Name,
			Amount:    amount,
			Method:    method,
			Number:    number,
			Status:    models.RequestPending,
			CreatedAt: s.now(),
		}
		if errCreate := tx.Create(&req).Error; errCreate != nil {
			return fmt.Errorf("ledger: create withdraw request: %w", errCreate)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	s.publish(ctx,
		realtime.Event{Topic: realtime.TopicWithdrawals, Type: "created", ID: req.ID},
		userEvent(req.UserID, "earnings"),
	)
	return &req, nil
}

// ApproveWithdraw completes a pending withdrawal and adds its amount to the
// user's total commission paid. Repeated calls are no-ops.
func (s *Service) ApproveWithdraw(ctx context.Context, withdrawID, adminID uint64) (Decision, error) {
	return s.decideWithdraw(ctx, withdrawID, adminID, models.RequestCompleted)
}

// RejectWithdraw marks a pending withdrawal rejected. Reserved earnings stay
// reserved unless the WITHDRAW_REJECT_RESTORES_EARNINGS setting is on.
func (s *Service) RejectWithdraw(ctx context.Context, withdrawID, adminID uint64) (Decision, error) {
	return s.decideWithdraw(ctx, withdrawID, adminID, models.RequestRejected)
}

func (s *Service) decideWithdraw(ctx context.Context, withdrawID, adminID uint64, status models.RequestStatus) (Decision, error) {
	var (
		req      models.WithdrawRequest
		decision Decision
	)
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errFind := tx.First(&req, withdrawID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return errFind
		}
		applied, current, errTransition := s.transition(tx, &models.WithdrawRequest{}, req.ID, status, adminID)
		if errTransition != nil {
			return errTransition
		}
		decision.Status = string(current)
		if !applied {
			return nil
		}
		decision.Applied = true

		var column string
		switch {
		case status == models.RequestCompleted:
			column = "total_commission_paid"
		case settings.WithdrawRejectRestoresEarnings():
			column = "referral_earnings"
		default:
			return nil
		}
		res := tx.Model(&models.User{}).Where("id = ?", req.UserID).
			UpdateColumn(column, addMoney(column, req.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errTx != nil {
		return Decision{}, errTx
	}
	if decision.Applied {
		s.publish(ctx,
			realtime.Event{Topic: realtime.TopicWithdrawals, Type: decision.Status, ID: req.ID},
			userEvent(req.UserID, "earnings"),
		)
	}
	return decision, nil
}
