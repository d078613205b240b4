package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/util"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// WalletHandler serves credit spending, top-up requests, withdrawals and coupons.
type WalletHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(db *gorm.DB, ledgerSvc *ledger.Service) *WalletHandler {
	return &WalletHandler{db: db, ledger: ledgerSvc}
}

// Unlock reveals a vault item, charging the fixed price the first time only.
func (h *WalletHandler) Unlock(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	itemID := strings.TrimSpace(c.Param("item_id"))
	if itemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item_id"})
		return
	}
	result, errUnlock := h.ledger.Unlock(c.Request.Context(), userID, itemID)
	if errUnlock != nil {
		api.WriteError(c, errUnlock)
		return
	}
	c.JSON(http.StatusOK, result)
}

// History lists the caller's credit transactions, newest first.
func (h *WalletHandler) History(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	page := api.Pagination(c)
	var rows []models.CreditTransaction
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list history failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":            row.ID,
			"kind":          row.Kind,
			"delta":         row.Delta,
			"balance_after": row.BalanceAfter,
			"reference":     row.Reference,
			"created_at":    row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}

type paymentRequestBody struct {
	PackageID     string `json:"package_id"`
	Method        string `json:"method"`
	SenderNumber  string `json:"sender_number"`
	TransactionID string `json:"trx_id"`
	Coupon        string `json:"coupon"`
}

// CreatePayment files a manual top-up claim for admin review.
func (h *WalletHandler) CreatePayment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var body paymentRequestBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req, errCreate := h.ledger.CreatePaymentRequest(c.Request.Context(), ledger.PaymentInput{
		UserID:        userID,
		PackageID:     body.PackageID,
		Method:        body.Method,
		SenderNumber:  body.SenderNumber,
		TransactionID: body.TransactionID,
		Coupon:        body.Coupon,
	})
	if errCreate != nil {
		api.WriteError(c, errCreate)
		return
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"package": req.PackageID,
		"amount":  req.Amount,
		"sender":  util.MaskMiddle(req.SenderNumber),
		"trx_id":  util.MaskMiddle(req.TransactionID),
	}).Info("payment request created")
	c.JSON(http.StatusCreated, api.PaymentView(*req))
}

// ListPayments returns the caller's payment requests, newest first.
func (h *WalletHandler) ListPayments(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	page := api.Pagination(c)
	var rows []models.PaymentRequest
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list payments failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.PaymentView(row))
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}

type withdrawRequestBody struct {
	Method string `json:"method"`
	Number string `json:"number"`
}

// CreateWithdrawal reserves the caller's full referral earnings for payout.
func (h *WalletHandler) CreateWithdrawal(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var body withdrawRequestBody
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	req, errCreate := h.ledger.CreateWithdrawRequest(c.Request.Context(), ledger.WithdrawInput{
		UserID: userID,
		Method: body.Method,
		Number: body.Number,
	})
	if errCreate != nil {
		api.WriteError(c, errCreate)
		return
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  req.Amount.String(),
		"number":  util.MaskMiddle(req.Number),
	}).Info("withdraw request created")
	c.JSON(http.StatusCreated, api.WithdrawView(*req))
}

// ListWithdrawals returns the caller's withdraw requests, newest first.
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	page := api.Pagination(c)
	var rows []models.WithdrawRequest
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list withdrawals failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.WithdrawView(row))
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": out})
}

// GetCoupon returns the caller's personal coupon, or null when none exists yet.
func (h *WalletHandler) GetCoupon(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Select("id", "coupon_code").First(&user, userID).Error; errFind != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon_code": user.CouponCode})
}

// CreateCoupon generates the caller's personal coupon once; later calls return it unchanged.
func (h *WalletHandler) CreateCoupon(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	code, errCoupon := h.ledger.EnsureCoupon(c.Request.Context(), userID)
	if errCoupon != nil {
		api.WriteError(c, errCoupon)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coupon_code": code})
}
