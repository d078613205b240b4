package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/config"
	"github.com/priointimate/PrioBusiness/internal/db"
	apihttp "github.com/priointimate/PrioBusiness/internal/http"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/logging"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"github.com/priointimate/PrioBusiness/internal/security"
	"github.com/priointimate/PrioBusiness/internal/settings"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// CreateAdmin migrates the database and inserts a super admin.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("app: username and password are required")
	}
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return createSuperAdmin(ctx, conn, username, password)
}

func createSuperAdmin(ctx context.Context, conn *gorm.DB, username, password string) error {
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("app: hash password: %w", errHash)
	}
	var existing int64
	if errCount := conn.WithContext(ctx).Model(&models.Admin{}).Where("username = ?", username).Count(&existing).Error; errCount != nil {
		return fmt.Errorf("app: check admin: %w", errCount)
	}
	if existing > 0 {
		return fmt.Errorf("app: admin %q already exists", username)
	}
	admin := models.Admin{
		Username:     username,
		Password:     hash,
		Active:       true,
		IsSuperAdmin: true,
	}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return fmt.Errorf("app: create admin: %w", errCreate)
	}
	log.WithField("admin_id", admin.ID).Infof("created super admin %s", username)
	return nil
}

// RunServer boots the HTTP API and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(fileCfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	jwtCfg, err := fileCfg.JWTConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(fileCfg.Database.DSN) == "" {
		return errors.New("app: database dsn is empty")
	}
	conn, err := db.Open(fileCfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.Refresh(ctx, conn); errRefresh != nil {
		return errRefresh
	}
	settings.NewPoller(conn, 0).Start(ctx)

	broker, err := newBroker(ctx, fileCfg.Redis)
	if err != nil {
		return err
	}
	defer func() { _ = broker.Close() }()

	if strings.TrimSpace(fileCfg.AI.APIKey) == "" {
		log.Warn("ai api key is empty; chat and generation requests will fail")
	}
	generator := ai.NewClient(ai.Config{
		APIKey:  fileCfg.AI.APIKey,
		BaseURL: fileCfg.AI.BaseURL,
		Model:   fileCfg.AI.Model,
		Timeout: fileCfg.AITimeout(),
	})

	engine := apihttp.NewEngine(apihttp.Services{
		DB:        conn,
		JWT:       jwtCfg,
		Ledger:    ledger.NewService(conn, broker),
		Broker:    broker,
		Generator: generator,
	})
	server := &http.Server{
		Addr:              fileCfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errServe := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (config=%s)", fileCfg.Server.Addr, configPath)
		if errListen := server.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errServe <- errListen
		}
		close(errServe)
	}()

	select {
	case errListen, ok := <-errServe:
		if ok {
			return fmt.Errorf("app: serve: %w", errListen)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Closing the broker ends open SSE streams so Shutdown is not held by them.
	_ = broker.Close()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("app: shutdown: %w", errShutdown)
	}
	return nil
}

type closableBroker interface {
	realtime.Broker
	Close() error
}

func newBroker(ctx context.Context, cfg config.RedisConfig) (closableBroker, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return realtime.NewMemoryBroker(), nil
	}
	broker, err := realtime.NewRedisBroker(ctx, &redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, err
	}
	log.Infof("realtime broker: redis %s", addr)
	return broker, nil
}
