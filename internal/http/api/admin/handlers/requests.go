package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// decideFunc is a ledger approve or reject operation.
type decideFunc func(ctx context.Context, id, adminID uint64) (ledger.Decision, error)

// RequestHandler serves the payment and withdrawal review queues.
type RequestHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(db *gorm.DB, ledgerSvc *ledger.Service) *RequestHandler {
	return &RequestHandler{db: db, ledger: ledgerSvc}
}

// listQuery applies the status filter and newest-first order shared by both queues.
func listQuery(c *gin.Context, db *gorm.DB, model any) (*gorm.DB, bool) {
	q := db.WithContext(c.Request.Context()).Model(model)
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		switch models.RequestStatus(status) {
		case models.RequestPending, models.RequestCompleted, models.RequestRejected:
			q = q.Where("status = ?", status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return nil, false
		}
	}
	if userID := strings.TrimSpace(c.Query("user_id")); userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	return q.Session(&gorm.Session{}), true
}

// ListPayments returns payment requests, newest first.
func (h *RequestHandler) ListPayments(c *gin.Context) {
	q, ok := listQuery(c, h.db, &models.PaymentRequest{})
	if !ok {
		return
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count payments failed"})
		return
	}
	page := api.Pagination(c)
	var rows []models.PaymentRequest
	if errFind := q.Order("created_at DESC").Order("id DESC").Limit(page.Limit).Offset(page.Offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list payments failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.PaymentView(row))
	}
	c.JSON(http.StatusOK, gin.H{"payments": out, "total": total})
}

// ListWithdrawals returns withdraw requests, newest first.
func (h *RequestHandler) ListWithdrawals(c *gin.Context) {
	q, ok := listQuery(c, h.db, &models.WithdrawRequest{})
	if !ok {
		return
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count withdrawals failed"})
		return
	}
	page := api.Pagination(c)
	var rows []models.WithdrawRequest
	if errFind := q.Order("created_at DESC").Order("id DESC").Limit(page.Limit).Offset(page.Offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list withdrawals failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.WithdrawView(row))
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": out, "total": total})
}

// ApprovePayment grants the package credits of a pending payment.
func (h *RequestHandler) ApprovePayment(c *gin.Context) {
	h.decide(c, "payment approve", h.ledger.ApprovePayment)
}

// RejectPayment rejects a pending payment.
func (h *RequestHandler) RejectPayment(c *gin.Context) {
	h.decide(c, "payment reject", h.ledger.RejectPayment)
}

// ApproveWithdraw marks a pending withdrawal paid out.
func (h *RequestHandler) ApproveWithdraw(c *gin.Context) {
	h.decide(c, "withdraw approve", h.ledger.ApproveWithdraw)
}

// RejectWithdraw rejects a pending withdrawal.
func (h *RequestHandler) RejectWithdraw(c *gin.Context) {
	h.decide(c, "withdraw reject", h.ledger.RejectWithdraw)
}

// decide runs a ledger decision. A request that already left pending answers
// 200 with applied=false so retried clicks are harmless.
func (h *RequestHandler) decide(c *gin.Context, action string, fn decideFunc) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	decision, errDecide := fn(c.Request.Context(), id, adminID)
	if errDecide != nil {
		api.WriteError(c, errDecide)
		return
	}
	log.WithFields(log.Fields{
		"action":   action,
		"id":       id,
		"admin_id": adminID,
		"applied":  decision.Applied,
		"status":   decision.Status,
	}).Info("request decided")
	c.JSON(http.StatusOK, decision)
}
