package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/priointimate/PrioBusiness/internal/db"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/models"
	"gorm.io/gorm"
)

// UserHandler lets admins browse accounts and top up credits by hand.
type UserHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB, ledgerSvc *ledger.Service) *UserHandler {
	return &UserHandler{db: db, ledger: ledgerSvc}
}

// List returns users, newest first, optionally searched by name or email.
func (h *UserHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		pattern := dbutil.LikePattern(h.db, term)
		q = q.Where(
			dbutil.CaseInsensitiveLikeExpr(h.db, "name")+" OR "+dbutil.CaseInsensitiveLikeExpr(h.db, "email"),
			pattern, pattern,
		)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count users failed"})
		return
	}
	page := api.Pagination(c)
	var rows []models.User
	if errFind := q.Order("created_at DESC").Order("id DESC").Limit(page.Limit).Offset(page.Offset).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list users failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, api.UserView(row))
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total})
}

// Get returns one user.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, api.UserView(user))
}

type grantCreditsRequest struct {
	Credits int64  `json:"credits"`
	Note    string `json:"note"`
}

// GrantCredits adds credits outside the payment flow.
func (h *UserHandler) GrantCredits(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	var body grantCreditsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	reference := fmt.Sprintf("admin:%d", adminID)
	if note := strings.TrimSpace(body.Note); note != "" {
		reference += " " + note
	}
	balance, errGrant := h.ledger.GrantCredits(c.Request.Context(), id, body.Credits, reference)
	if errGrant != nil {
		api.WriteError(c, errGrant)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": balance})
}

// Disable blocks a user from signing in.
func (h *UserHandler) Disable(c *gin.Context) { h.setDisabled(c, true) }

// Enable lifts a sign-in block.
func (h *UserHandler) Enable(c *gin.Context) { h.setDisabled(c, false) }

func (h *UserHandler) setDisabled(c *gin.Context, disabled bool) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"disabled": disabled, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
