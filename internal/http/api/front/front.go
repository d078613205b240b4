package front

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/config"
	"github.com/priointimate/PrioBusiness/internal/http/api"
	"github.com/priointimate/PrioBusiness/internal/http/api/front/handlers"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"github.com/priointimate/PrioBusiness/internal/security"
	"gorm.io/gorm"
)

// Deps are the services the front routes need.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Ledger    *ledger.Service
	Broker    realtime.Broker
	Generator ai.Generator
}

// RegisterFrontRoutes registers public and authenticated user routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}
	db := deps.DB
	front := r.Group("/v0/front")

	authHandler := handlers.NewAuthHandler(db, deps.JWT, deps.Ledger)
	front.POST("/register", authHandler.Register)
	front.POST("/login", authHandler.Login)
	front.GET("/config", handlers.GetPublicConfig)
	front.GET("/packages", handlers.ListPackages)

	authed := front.Group("")
	authed.Use(userAuthMiddleware(db, deps.JWT))

	profileHandler := handlers.NewProfileHandler(db)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile/password", profileHandler.ChangePassword)

	modelHandler := handlers.NewModelHandler(db, deps.Ledger)
	authed.GET("/models", modelHandler.List)
	authed.GET("/models/:id", modelHandler.Get)

	walletHandler := handlers.NewWalletHandler(db, deps.Ledger)
	authed.POST("/vault/:item_id/unlock", walletHandler.Unlock)
	authed.GET("/credits/history", walletHandler.History)
	authed.POST("/payments", walletHandler.CreatePayment)
	authed.GET("/payments", walletHandler.ListPayments)
	authed.POST("/withdrawals", walletHandler.CreateWithdrawal)
	authed.GET("/withdrawals", walletHandler.ListWithdrawals)
	authed.GET("/coupon", walletHandler.GetCoupon)
	authed.POST("/coupon", walletHandler.CreateCoupon)

	chatHandler := handlers.NewChatHandler(db, deps.Ledger, deps.Generator)
	authed.POST("/chat", chatHandler.Send)

	streamHandler := handlers.NewStreamHandler(db, deps.Broker)
	authed.GET("/stream", streamHandler.Account)
}

// userAuthMiddleware validates user JWTs and rejects disabled accounts.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := api.BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).Select("id", "disabled").First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if user.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
