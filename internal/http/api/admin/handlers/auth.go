package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/config"
	permissions "github.com/priointimate/PrioBusiness/internal/http/api/admin/permissions"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/security"
	"gorm.io/gorm"
)

// AuthHandler handles admin sign-in, including the MFA login steps.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates with username and password. Admins with MFA enrolled
// must use the TOTP or passkey login instead.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	admin, ok := h.findActiveAdmin(c, username)
	if !ok {
		return
	}
	if admin.HasTOTP() || admin.HasPasskey() {
		c.JSON(http.StatusForbidden, gin.H{"error": "mfa required"})
		return
	}
	if !security.CheckPassword(admin.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.respondWithAdminToken(c, admin)
}

// findActiveAdmin loads an admin by username and writes the error response
// when the account is missing or disabled.
func (h *AuthHandler) findActiveAdmin(c *gin.Context, username string) (models.Admin, bool) {
	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return admin, false
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return admin, false
	}
	return admin, true
}

func (h *AuthHandler) respondWithAdminToken(c *gin.Context, admin models.Admin) {
	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":             admin.ID,
			"username":       admin.Username,
			"permissions":    permissions.ParsePermissions(admin.Permissions),
			"is_super_admin": admin.IsSuperAdmin,
		},
	})
}
