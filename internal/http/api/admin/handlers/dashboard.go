package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/realtime"
)

// DashboardHandler serves aggregate figures and the live queue stream.
type DashboardHandler struct {
	ledger *ledger.Service
	broker realtime.Broker
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(ledgerSvc *ledger.Service, broker realtime.Broker) *DashboardHandler {
	return &DashboardHandler{ledger: ledgerSvc, broker: broker}
}

// Stats returns revenue, payouts and pending queue sizes.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, errStats := h.ledger.Stats(c.Request.Context())
	if errStats != nil {
		api.WriteError(c, errStats)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Stream pushes fresh stats whenever a queue, user or model changes.
func (h *DashboardHandler) Stream(c *gin.Context) {
	sub, errSub := h.broker.Subscribe(c.Request.Context(),
		realtime.TopicPayments, realtime.TopicWithdrawals, realtime.TopicUsers, realtime.TopicModels)
	if errSub != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream unavailable"})
		return
	}
	api.Stream(c, sub, func(ctx context.Context) (any, error) {
		return h.ledger.Stats(ctx)
	})
}
