package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"gorm.io/gorm"
)

// StreamHandler pushes the caller's account snapshot as it changes.
type StreamHandler struct {
	db     *gorm.DB
	broker realtime.Broker
}

// NewStreamHandler constructs a StreamHandler.
func NewStreamHandler(db *gorm.DB, broker realtime.Broker) *StreamHandler {
	return &StreamHandler{db: db, broker: broker}
}

// Account streams profile snapshots over Server-Sent Events.
func (h *StreamHandler) Account(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	sub, errSub := h.broker.Subscribe(c.Request.Context(), realtime.UserTopic(userID))
	if errSub != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream unavailable"})
		return
	}
	api.Stream(c, sub, func(context.Context) (any, error) {
		return loadProfile(c, h.db, userID)
	})
}
