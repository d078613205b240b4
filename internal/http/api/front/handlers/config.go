package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/catalog"
	"github.com/priointimate/PrioBusiness/internal/settings"
)

// GetPublicConfig returns the prices and labels the app renders before sign-in.
func GetPublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"site_name":          settings.SiteName(),
		"payment_number":     settings.String(settings.PaymentNumberKey),
		"vault_unlock_price": catalog.VaultUnlockPrice,
		"coupon_discount":    catalog.CouponDiscount,
		"min_withdraw":       catalog.MinWithdrawAmount,
		"message_costs": gin.H{
			string(catalog.MessageText):  mustCost(catalog.MessageText),
			string(catalog.MessageAudio): mustCost(catalog.MessageAudio),
			string(catalog.MessageImage): mustCost(catalog.MessageImage),
		},
		"payment_methods": []string{catalog.MethodBKash},
		"payout_methods":  []string{catalog.MethodBKash, catalog.MethodNagad},
	})
}

func mustCost(kind catalog.MessageKind) int64 {
	cost, _ := catalog.MessageCost(kind)
	return cost
}

// ListPackages returns the credit package catalog.
func ListPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packages": catalog.Packages()})
}
