package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/config"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/http/api/admin/handlers"
	permissions "github.com/priointimate/PrioBusiness/internal/http/api/admin/permissions"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"github.com/priointimate/PrioBusiness/internal/security"
	"gorm.io/gorm"
)

// Deps are the services the admin routes need.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Ledger    *ledger.Service
	Broker    realtime.Broker
	Generator ai.Generator
}

// RegisterAdminRoutes registers the console API under /v0/admin.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}
	db := deps.DB
	group := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, deps.JWT)
	group.POST("/login", authHandler.Login)
	group.POST("/login/prepare", authHandler.LoginPrepare)
	group.POST("/login/totp", authHandler.LoginTOTP)
	group.POST("/login/passkey/options", authHandler.LoginPasskeyOptions)
	group.POST("/login/passkey/verify", authHandler.LoginPasskeyVerify)

	authed := group.Group("")
	authed.Use(adminAuthMiddleware(db, deps.JWT))

	// Every admin manages their own second factors.
	mfaHandler := handlers.NewMFAHandler(db)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)
	authed.POST("/mfa/passkey/options", mfaHandler.BeginPasskeyRegistration)
	authed.POST("/mfa/passkey/verify", mfaHandler.FinishPasskeyRegistration)
	authed.POST("/mfa/passkey/disable", mfaHandler.DisablePasskey)

	gated := authed.Group("")
	gated.Use(adminPermissionMiddleware(db))

	adminHandler := handlers.NewAdminHandler(db)
	gated.GET("/admins", adminHandler.List)
	gated.POST("/admins", adminHandler.Create)
	gated.GET("/admins/:id", adminHandler.Get)
	gated.PUT("/admins/:id", adminHandler.Update)
	gated.DELETE("/admins/:id", adminHandler.Delete)
	gated.POST("/admins/:id/disable", adminHandler.Disable)
	gated.POST("/admins/:id/enable", adminHandler.Enable)
	gated.PUT("/admins/:id/password", adminHandler.ChangePassword)
	gated.GET("/permissions", handlers.NewPermissionHandler().List)

	modelHandler := handlers.NewModelHandler(db, deps.Generator, deps.Broker)
	gated.GET("/models", modelHandler.List)
	gated.POST("/models", modelHandler.Create)
	gated.GET("/models/:id", modelHandler.Get)
	gated.PUT("/models/:id", modelHandler.Update)
	gated.DELETE("/models/:id", modelHandler.Delete)
	gated.POST("/models/generate-bio", modelHandler.GenerateBio)
	gated.POST("/models/generate-teaser", modelHandler.GenerateTeaser)

	requestHandler := handlers.NewRequestHandler(db, deps.Ledger)
	gated.GET("/payments", requestHandler.ListPayments)
	gated.POST("/payments/:id/approve", requestHandler.ApprovePayment)
	gated.POST("/payments/:id/reject", requestHandler.RejectPayment)
	gated.GET("/withdrawals", requestHandler.ListWithdrawals)
	gated.POST("/withdrawals/:id/approve", requestHandler.ApproveWithdraw)
	gated.POST("/withdrawals/:id/reject", requestHandler.RejectWithdraw)

	userHandler := handlers.NewUserHandler(db, deps.Ledger)
	gated.GET("/users", userHandler.List)
	gated.GET("/users/:id", userHandler.Get)
	gated.POST("/users/:id/credits", userHandler.GrantCredits)
	gated.POST("/users/:id/disable", userHandler.Disable)
	gated.POST("/users/:id/enable", userHandler.Enable)

	dashboardHandler := handlers.NewDashboardHandler(deps.Ledger, deps.Broker)
	gated.GET("/dashboard/stats", dashboardHandler.Stats)
	gated.GET("/stream", dashboardHandler.Stream)

	settingsHandler := handlers.NewSettingsHandler(db)
	gated.GET("/settings", settingsHandler.Get)
	gated.PUT("/settings", settingsHandler.Update)
}

// adminAuthMiddleware validates admin JWTs and loads the admin's grants into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := api.BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "username", "active", "permissions", "is_super_admin").
			First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Set("adminPermissions", permissions.ParsePermissions(admin.Permissions))
		c.Set("adminIsSuperAdmin", admin.IsSuperAdmin)
		c.Next()
	}
}
