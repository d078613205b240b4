package http

import (
	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/config"
	"github.com/priointimate/PrioBusiness/internal/http/api/admin"
	"github.com/priointimate/PrioBusiness/internal/http/api/front"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/logging"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"gorm.io/gorm"
)

// Services are shared by the front and admin route groups.
type Services struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Ledger    *ledger.Service
	Broker    realtime.Broker
	Generator ai.Generator
}

// NewEngine builds the gin engine with recovery, request logging, health and API routes.
func NewEngine(s Services) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.GinLogger())

	engine.GET("/healthz", NewHealthHandler(s.DB).Healthz)

	front.RegisterFrontRoutes(engine, front.Deps{
		DB:        s.DB,
		JWT:       s.JWT,
		Ledger:    s.Ledger,
		Broker:    s.Broker,
		Generator: s.Generator,
	})
	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:        s.DB,
		JWT:       s.JWT,
		Ledger:    s.Ledger,
		Broker:    s.Broker,
		Generator: s.Generator,
	})
	return engine
}
