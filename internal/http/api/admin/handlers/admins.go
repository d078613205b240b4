package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/priointimate/PrioBusiness/internal/db"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/http/api/admin/permissions"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/security"
	"gorm.io/gorm"
)

// AdminHandler manages console accounts.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

type createAdminRequest struct {
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	Permissions  []string `json:"permissions"`
	IsSuperAdmin bool     `json:"is_super_admin"`
}

func adminView(admin models.Admin) gin.H {
	return gin.H{
		"id":              admin.ID,
		"username":        admin.Username,
		"active":          admin.Active,
		"is_super_admin":  admin.IsSuperAdmin,
		"permissions":     permissions.ParsePermissions(admin.Permissions),
		"totp_enabled":    admin.HasTOTP(),
		"passkey_enabled": admin.HasPasskey(),
		"created_at":      admin.CreatedAt,
		"updated_at":      admin.UpdatedAt,
	}
}

// Create adds an admin account.
func (h *AdminHandler) Create(c *gin.Context) {
	var body createAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username"})
		return
	}
	password := strings.TrimSpace(body.Password)
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}

	normalized := permissions.NormalizePermissions(body.Permissions)
	if errValidate := permissions.ValidatePermissions(normalized); errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions"})
		return
	}
	permissionsJSON, errMarshal := permissions.MarshalPermissions(normalized)
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "marshal permissions failed"})
		return
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	var existing int64
	if errCount := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).Where("username = ?", username).Count(&existing).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
		return
	}

	admin := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: body.IsSuperAdmin,
		Permissions:  permissionsJSON,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&admin).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create admin failed"})
		return
	}
	c.JSON(http.StatusCreated, adminView(admin))
}

// List returns admins, optionally filtered by username or id.
func (h *AdminHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Admin{})
	if usernameQ := strings.TrimSpace(c.Query("username")); usernameQ != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "username"), dbutil.LikePattern(h.db, usernameQ))
	}
	if idQ := strings.TrimSpace(c.Query("id")); idQ != "" {
		if id, errParse := strconv.ParseUint(idQ, 10, 64); errParse == nil {
			q = q.Where("id = ?", id)
		}
	}

	var rows []models.Admin
	if errFind := q.Order("created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list admins failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, adminView(row))
	}
	c.JSON(http.StatusOK, gin.H{"admins": out})
}

// Get returns one admin.
func (h *AdminHandler) Get(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).First(&admin, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, adminView(admin))
}

type updateAdminRequest struct {
	Username     *string   `json:"username"`
	Permissions  *[]string `json:"permissions"`
	IsSuperAdmin *bool     `json:"is_super_admin"`
}

// Update changes username, permissions or the super admin flag.
func (h *AdminHandler) Update(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body updateAdminRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if body.Username != nil {
		username := strings.TrimSpace(*body.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username cannot be empty"})
			return
		}
		updates["username"] = username
	}
	if body.Permissions != nil {
		normalized := permissions.NormalizePermissions(*body.Permissions)
		if errValidate := permissions.ValidatePermissions(normalized); errValidate != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid permissions"})
			return
		}
		permissionsJSON, errMarshal := permissions.MarshalPermissions(normalized)
		if errMarshal != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "marshal permissions failed"})
			return
		}
		updates["permissions"] = permissionsJSON
	}
	if body.IsSuperAdmin != nil {
		updates["is_super_admin"] = *body.IsSuperAdmin
	}
	h.applyUpdates(c, id, updates, "update failed")
}

// Delete removes an admin. Admins cannot delete themselves.
func (h *AdminHandler) Delete(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	if self, okSelf := readAdminIDFromContext(c); okSelf && self == id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete yourself"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Admin{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Disable deactivates an admin.
func (h *AdminHandler) Disable(c *gin.Context) { h.setActive(c, false) }

// Enable reactivates an admin.
func (h *AdminHandler) Enable(c *gin.Context) { h.setActive(c, true) }

func (h *AdminHandler) setActive(c *gin.Context, active bool) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	h.applyUpdates(c, id, map[string]any{"active": active, "updated_at": time.Now().UTC()}, "update failed")
}

func (h *AdminHandler) applyUpdates(c *gin.Context, id uint64, updates map[string]any, failure string) {
	res := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type changeAdminPasswordRequest struct {
	Password    string `json:"password"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword sets a new password. When old_password is sent it must match.
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	id, ok := api.ParseID(c, "id")
	if !ok {
		return
	}
	var body changeAdminPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	oldPassword := strings.TrimSpace(body.OldPassword)
	newPassword := strings.TrimSpace(body.NewPassword)
	password := strings.TrimSpace(body.Password)
	if oldPassword != "" || newPassword != "" {
		if oldPassword == "" || newPassword == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
			return
		}
		var admin models.Admin
		if errFind := h.db.WithContext(c.Request.Context()).Select("id", "password").First(&admin, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		if !security.CheckPassword(admin.Password, oldPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		password = newPassword
	}
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}
	h.applyUpdates(c, id, map[string]any{"password": hash, "updated_at": time.Now().UTC()}, "change password failed")
}
