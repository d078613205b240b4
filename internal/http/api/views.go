package api

import (
	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/models"
)

// PaymentView renders a payment request.
func PaymentView(p models.PaymentRequest) gin.H {
	return gin.H{
		"id":             p.ID,
		"user_id":        p.UserID,
		"user_name":      p.UserName,
		"package_id":     p.PackageID,
		"package_name":   p.PackageName,
		"credits":        p.Credits,
		"package_price":  p.PackagePrice,
		"amount":         p.Amount,
		"method":         p.Method,
		"sender_number":  p.SenderNumber,
		"trx_id":         p.TransactionID,
		"applied_coupon": p.AppliedCoupon,
		"status":         p.Status,
		"processed_by":   p.ProcessedBy,
		"processed_at":   p.ProcessedAt,
		"created_at":     p.CreatedAt,
	}
}

// WithdrawView renders a withdraw request.
func WithdrawView(w models.WithdrawRequest) gin.H {
	return gin.H{
		"id":           w.ID,
		"user_id":      w.UserID,
		"user_name":    w.UserName,
		"amount":       w.Amount,
		"method":       w.Method,
		"number":       w.Number,
		"status":       w.Status,
		"processed_by": w.ProcessedBy,
		"processed_at": w.ProcessedAt,
		"created_at":   w.CreatedAt,
	}
}

// UserView renders account balances without credentials.
func UserView(u models.User) gin.H {
	return gin.H{
		"id":                    u.ID,
		"name":                  u.Name,
		"email":                 u.Email,
		"credits":               u.Credits,
		"total_spent":           u.TotalSpent,
		"referral_earnings":     u.ReferralEarnings,
		"total_commission_paid": u.TotalCommissionPaid,
		"referral_code":         u.ReferralCode,
		"referred_by":           u.ReferredBy,
		"coupon_code":           u.CouponCode,
		"disabled":              u.Disabled,
		"created_at":            u.CreatedAt,
	}
}
