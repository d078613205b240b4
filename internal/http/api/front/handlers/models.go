package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/catalog"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/models"
	"gorm.io/gorm"
)

// ModelHandler lets users browse model profiles.
type ModelHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewModelHandler constructs a ModelHandler.
func NewModelHandler(db *gorm.DB, ledgerSvc *ledger.Service) *ModelHandler {
	return &ModelHandler{db: db, ledger: ledgerSvc}
}

func galleryOf(m models.ModelProfile) []string {
	var gallery []string
	_ = json.Unmarshal(m.Gallery, &gallery)
	if gallery == nil {
		gallery = []string{}
	}
	return gallery
}

// List returns profile cards, newest first.
func (h *ModelHandler) List(c *gin.Context) {
	var rows []models.ModelProfile
	if errFind := h.db.WithContext(c.Request.Context()).Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list models failed"})
		return
	}
	var counts []struct {
		ModelProfileID uint64
		Total          int64
	}
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.VaultItem{}).
		Select("model_profile_id, COUNT(*) AS total").
		Group("model_profile_id").
		Scan(&counts).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count vault failed"})
		return
	}
	vaultSizes := make(map[uint64]int64, len(counts))
	for _, row := range counts {
		vaultSizes[row.ModelProfileID] = row.Total
	}

	out := make([]gin.H, 0, len(rows))
	for _, m := range rows {
		out = append(out, gin.H{
			"id":          m.ID,
			"name":        m.Name,
			"age":         m.Age,
			"bio":         m.Bio,
			"profile_pic": m.ProfilePic,
			"vault_size":  vaultSizes[m.ID],
		})
	}
	c.JSON(http.StatusOK, gin.H{"models": out})
}

// Get returns a profile with its gallery and vault. Locked vault items carry
// only their teaser; the media url is revealed once the caller unlocked it.
func (h *ModelHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}

	var model models.ModelProfile
	errFind := h.db.WithContext(c.Request.Context()).
		Preload("Vault", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&model, id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	unlocked, errUnlocked := h.ledger.UnlockedItemIDs(c.Request.Context(), userID)
	if errUnlocked != nil {
		api.WriteError(c, errUnlocked)
		return
	}

	vault := make([]gin.H, 0, len(model.Vault))
	for _, item := range model.Vault {
		view := gin.H{
			"id":       item.ID,
			"teaser":   item.Teaser,
			"kind":     item.Kind,
			"unlocked": unlocked[item.ID],
			"price":    catalog.VaultUnlockPrice,
		}
		if unlocked[item.ID] {
			view["url"] = item.URL
		}
		vault = append(vault, view)
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            model.ID,
		"name":          model.Name,
		"age":           model.Age,
		"bio":           model.Bio,
		"profile_pic":   model.ProfilePic,
		"gallery":       galleryOf(model),
		"exclusive_cta": model.ExclusiveCTA,
		"vault":         vault,
	})
}
