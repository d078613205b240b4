package ledger

import (
	"context"

	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/shopspring/decimal"
)

// Stats aggregates the admin dashboard figures.
type Stats struct {
	TotalRevenue        int64           `json:"total_revenue"`
	TotalCommissionPaid decimal.Decimal `json:"total_commission_paid"`
	PendingPayments     int64           `json:"pending_payments"`
	PendingWithdrawals  int64           `json:"pending_withdrawals"`
	Users               int64           `json:"users"`
	Models              int64           `json:"models"`
	VaultUnlocks        int64           `json:"vault_unlocks"`
}

// Stats returns revenue, payouts and queue sizes.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	db := s.db.WithContext(ctx)
	var out Stats

	var revenue struct{ Total int64 }
	if errSum := db.Model(&models.PaymentRequest{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", models.RequestCompleted).
		Scan(&revenue).Error; errSum != nil {
		return Stats{}, errSum
	}
	out.TotalRevenue = revenue.Total

	var payouts []decimal.Decimal
	if errPluck := db.Model(&models.WithdrawRequest{}).
		Where("status = ?", models.RequestCompleted).
		Pluck("amount", &payouts).Error; errPluck != nil {
		return Stats{}, errPluck
	}
	out.TotalCommissionPaid = decimal.Sum(decimal.Zero, payouts...)

	counts := []struct {
		target *int64
		model  any
		where  string
	}{
		{&out.PendingPayments, &models.PaymentRequest{}, "status = 'pending'"},
		{&out.PendingWithdrawals, &models.WithdrawRequest{}, "status = 'pending'"},
		{&out.Users, &models.User{}, ""},
		{&out.Models, &models.ModelProfile{}, ""},
		{&out.VaultUnlocks, &models.VaultUnlock{}, ""},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where)
		}
		if errCount := q.Count(c.target).Error; errCount != nil {
			return Stats{}, errCount
		}
	}
	return out, nil
}
