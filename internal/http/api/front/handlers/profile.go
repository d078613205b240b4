package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/security"
	"gorm.io/gorm"
)

// ProfileHandler serves the caller's account.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// loadProfile reads the account view shown on the profile page and pushed on the stream.
func loadProfile(c *gin.Context, db *gorm.DB, userID uint64) (gin.H, error) {
	var user models.User
	if errFind := db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		return nil, errFind
	}
	var unlocked int64
	if errCount := db.WithContext(c.Request.Context()).Model(&models.VaultUnlock{}).
		Where("user_id = ?", userID).Count(&unlocked).Error; errCount != nil {
		return nil, errCount
	}
	view := api.UserView(user)
	view["unlocked_items"] = unlocked
	return view, nil
}

// Get returns balances, codes and unlock count.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	view, errLoad := loadProfile(c, h.db, userID)
	if errLoad != nil {
		if errors.Is(errLoad, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, view)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword verifies the old password and stores the new one.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	oldPassword := strings.TrimSpace(body.OldPassword)
	newPassword := strings.TrimSpace(body.NewPassword)
	if oldPassword == "" || len(newPassword) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Select("id", "password").First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !security.CheckPassword(user.Password, oldPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "old password incorrect"})
		return
	}
	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"password":   hash,
		"updated_at": time.Now().UTC(),
	}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "change password failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
