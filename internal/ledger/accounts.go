package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"github.com/priointimate/PrioBusiness/internal/security"
	"gorm.io/gorm"
)

// codeAttempts bounds retries when a generated code collides with an existing one.
const codeAttempts = 8

// RegisterInput creates a user account.
type RegisterInput struct {
	Name         string
	Email        string
	PasswordHash string
	ReferralCode string
}

// ResolveReferrer validates a referral code supplied at signup. An empty code
// yields nil; an unknown code is a validation error.
func (s *Service) ResolveReferrer(ctx context.Context, code string) (*string, error) {
	code = security.NormalizeCode(code)
	if code == "" {
		return nil, nil
	}
	var referrer models.User
	errFind := s.db.WithContext(ctx).Select("id", "referral_code").Where("referral_code = ?", code).First(&referrer).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, invalid("referral_code", "unknown referral code")
	}
	if errFind != nil {
		return nil, errFind
	}
	return &referrer.ReferralCode, nil
}

// Register creates a user with zero balances, a fresh referral code and the
// referrer attribution, which is never changed afterwards.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "is invalid")
	}
	if in.PasswordHash == "" {
		return nil, invalid("password", "is required")
	}
	referredBy, errReferrer := s.ResolveReferrer(ctx, in.ReferralCode)
	if errReferrer != nil {
		return nil, errReferrer
	}

	db := s.db.WithContext(ctx)
	var count int64
	if errCount := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; errCount != nil {
		return nil, errCount
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, errCode := security.GenerateReferralCode(name)
		if errCode != nil {
			return nil, errCode
		}
		taken, errTaken := codeTaken(db, "referral_code", code)
		if errTaken != nil {
			return nil, errTaken
		}
		if taken {
			continue
		}
		user := models.User{
			Name:         name,
			Email:        email,
			Password:     in.PasswordHash,
			ReferralCode: code,
			ReferredBy:   referredBy,
		}
		if errCreate := db.Create(&user).Error; errCreate != nil {
			return nil, fmt.Errorf("ledger: create user: %w", errCreate)
		}
		s.publish(ctx, realtime.Event{Topic: realtime.TopicUsers, Type: "created", ID: user.ID})
		return &user, nil
	}
	return nil, errors.New("ledger: could not allocate a referral code")
}

// EnsureCoupon returns the user's personal coupon code, generating it once.
func (s *Service) EnsureCoupon(ctx context.Context, userID uint64) (string, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if errFind := db.Select("id", "name", "coupon_code").First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", errFind
	}
	if user.CouponCode != nil && *user.CouponCode != "" {
		return *user.CouponCode, nil
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, errCode := security.GenerateCouponCode(user.Name)
		if errCode != nil {
			return "", errCode
		}
		taken, errTaken := codeTaken(db, "coupon_code", code)
		if errTaken != nil {
			return "", errTaken
		}
		if taken {
			continue
		}
		res := db.Model(&models.User{}).
			Where("id = ? AND coupon_code IS NULL", userID).
			UpdateColumn("coupon_code", code)
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			// Another request generated it first.
			if errFind := db.Select("id", "coupon_code").First(&user, userID).Error; errFind != nil {
				return "", errFind
			}
			if user.CouponCode != nil {
				return *user.CouponCode, nil
			}
			continue
		}
		s.publish(ctx, userEvent(userID, "coupon"))
		return code, nil
	}
	return "", errors.New("ledger: could not allocate a coupon code")
}

func codeTaken(db *gorm.DB, column, code string) (bool, error) {
	var count int64
	if errCount := db.Model(&models.User{}).Where(column+" = ?", code).Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}
