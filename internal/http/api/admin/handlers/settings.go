package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingsHandler reads and writes runtime settings.
type SettingsHandler struct {
	db *gorm.DB
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// Get returns the current settings snapshot.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"settings":   settings.All(),
		"keys":       settings.Keys,
		"updated_at": settings.UpdatedAt(),
	})
}

// Update upserts known keys. Unknown keys are rejected.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body map[string]json.RawMessage
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings provided"})
		return
	}
	for key := range body {
		if !settings.IsKnownKey(key) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting " + key})
			return
		}
	}
	if errSave := settings.Save(c.Request.Context(), h.db, body); errSave != nil {
		log.WithError(errSave).Error("save settings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save settings failed"})
		return
	}
	h.Get(c)
}
