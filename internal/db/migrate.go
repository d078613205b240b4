package db

import (
	"fmt"

	"github.com/priointimate/PrioBusiness/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service uses.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	errMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Admin{},
		&models.ModelProfile{},
		&models.VaultItem{},
		&models.VaultUnlock{},
		&models.PaymentRequest{},
		&models.WithdrawRequest{},
		&models.CreditTransaction{},
		&models.ReferralCommission{},
		&models.Setting{},
	)
	if errMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errMigrate)
	}
	return nil
}
