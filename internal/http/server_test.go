package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/priointimate/PrioBusiness/internal/config"
	"github.com/priointimate/PrioBusiness/internal/db"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"gorm.io/gorm"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	broker := realtime.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })
	return NewEngine(Services{
		DB:     conn,
		JWT:    config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
		Ledger: ledger.NewService(conn, broker),
		Broker: broker,
	})
}

func TestEngineServesHealthAndRouteGroups(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", w.Code)
	}
	var health map[string]bool
	if errDecode := json.Unmarshal(w.Body.Bytes(), &health); errDecode != nil || !health["ok"] {
		t.Fatalf("healthz body = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v0/front/packages", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("packages status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v0/front/profile", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("profile without token = %d, want 401", w.Code)
	}

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v0/admin/dashboard/stats", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("admin stats without token = %d, want 401", w.Code)
	}
}

func TestHealthzReportsClosedDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	_ = sqlDB.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	NewHealthHandler(conn).Healthz(c)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
