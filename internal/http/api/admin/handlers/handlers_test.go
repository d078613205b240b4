package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/config"
	"github.com/priointimate/PrioBusiness/internal/db"
	"github.com/priointimate/PrioBusiness/internal/ledger"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/priointimate/PrioBusiness/internal/realtime"
	"github.com/priointimate/PrioBusiness/internal/security"
	"github.com/priointimate/PrioBusiness/internal/settings"
	"gorm.io/gorm"
)

type stubGenerator struct {
	text string
	err  error
}

func (s stubGenerator) Generate(context.Context, string, []ai.Media) (string, error) {
	return s.text, s.err
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	settings.Store(time.Time{}, nil)
	t.Cleanup(func() { settings.Store(time.Time{}, nil) })
	return conn
}

func call(t *testing.T, handler gin.HandlerFunc, method string, body any, adminID uint64, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		var errMarshal error
		if raw, errMarshal = json.Marshal(body); errMarshal != nil {
			t.Fatalf("marshal: %v", errMarshal)
		}
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	if adminID != 0 {
		c.Set("adminID", adminID)
	}
	handler(c)
	c.Writer.WriteHeaderNow()
	return w
}

func idParam(id uint64) gin.Params {
	return gin.Params{{Key: "id", Value: strconv.FormatUint(id, 10)}}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if errDecode := json.Unmarshal(w.Body.Bytes(), out); errDecode != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), errDecode)
	}
}

func TestApprovePaymentGrantsOnce(t *testing.T) {
	conn := setupTestDB(t)
	svc := ledger.NewService(conn, nil)
	user := models.User{Name: "Ana", Email: "ana@example.com", Password: "x", ReferralCode: "ANA1"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	req, errReq := svc.CreatePaymentRequest(context.Background(), ledger.PaymentInput{
		UserID: user.ID, PackageID: "starter", SenderNumber: "01711111111", TransactionID: "TRX99",
	})
	if errReq != nil {
		t.Fatalf("create payment: %v", errReq)
	}
	handler := NewRequestHandler(conn, svc)

	var first, second ledger.Decision
	w := call(t, handler.ApprovePayment, http.MethodPost, nil, 7, idParam(req.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d body %s", w.Code, w.Body.String())
	}
	decodeBody(t, w, &first)
	decodeBody(t, call(t, handler.ApprovePayment, http.MethodPost, nil, 7, idParam(req.ID)), &second)
	if !first.Applied || second.Applied || second.Status != string(models.RequestCompleted) {
		t.Fatalf("decisions = %+v then %+v", first, second)
	}

	var reloaded models.User
	conn.First(&reloaded, user.ID)
	if reloaded.Credits != 100 {
		t.Fatalf("credits = %d, want 100", reloaded.Credits)
	}

	w = call(t, handler.RejectPayment, http.MethodPost, nil, 7, idParam(req.ID))
	var rejected ledger.Decision
	decodeBody(t, w, &rejected)
	if rejected.Applied {
		t.Fatalf("reject after approve applied")
	}

	if got := call(t, handler.ApprovePayment, http.MethodPost, nil, 7, idParam(999)).Code; got != http.StatusNotFound {
		t.Fatalf("missing payment status = %d, want 404", got)
	}
}

func TestListPaymentsFiltersByStatus(t *testing.T) {
	conn := setupTestDB(t)
	svc := ledger.NewService(conn, nil)
	user := models.User{Name: "Ana", Email: "ana@example.com", Password: "x", ReferralCode: "ANA1"}
	conn.Create(&user)
	for _, trx := range []string{"TRX01", "TRX02"} {
		if _, errReq := svc.CreatePaymentRequest(context.Background(), ledger.PaymentInput{
			UserID: user.ID, PackageID: "starter", SenderNumber: "01711111111", TransactionID: trx,
		}); errReq != nil {
			t.Fatalf("create payment: %v", errReq)
		}
	}
	if _, errReject := svc.RejectPayment(context.Background(), 1, 1); errReject != nil {
		t.Fatalf("reject: %v", errReject)
	}

	handler := NewRequestHandler(conn, svc)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v0/admin/payments?status=pending", nil)
	handler.ListPayments(c)

	var body struct {
		Payments []map[string]any `json:"payments"`
		Total    int64            `json:"total"`
	}
	decodeBody(t, w, &body)
	if body.Total != 1 || len(body.Payments) != 1 || body.Payments[0]["trx_id"] != "TRX02" {
		t.Fatalf("body = %+v", body)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/v0/admin/payments?status=bogus", nil)
	handler.ListPayments(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bogus status = %d, want 400", w.Code)
	}
}

func TestModelUpdateKeepsVaultItemIDs(t *testing.T) {
	conn := setupTestDB(t)
	broker := realtime.NewMemoryBroker()
	defer broker.Close()
	handler := NewModelHandler(conn, nil, broker)

	w := call(t, handler.Create, http.MethodPost, gin.H{
		"name":        "Mira",
		"age":         24,
		"profile_pic": "https://cdn.example.com/mira.jpg",
		"gallery":     []string{"https://cdn.example.com/g1.jpg", " "},
		"vault": []gin.H{
			{"url": "https://cdn.example.com/v1.jpg", "teaser": "one"},
			{"url": "https://cdn.example.com/v2.mp4", "kind": "video"},
		},
	}, 1, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body %s", w.Code, w.Body.String())
	}
	var created struct {
		ID      uint64   `json:"id"`
		Gallery []string `json:"gallery"`
		Price   int64    `json:"exclusive_content_price"`
		Vault   []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"vault"`
	}
	decodeBody(t, w, &created)
	if len(created.Vault) != 2 || created.Vault[0].ID == "" || created.Vault[1].Kind != "video" || len(created.Gallery) != 1 || created.Price != 100 {
		t.Fatalf("created = %+v", created)
	}
	keptID := created.Vault[0].ID

	w = call(t, handler.Update, http.MethodPut, gin.H{
		"name":        "Mira",
		"age":         25,
		"profile_pic": "https://cdn.example.com/mira.jpg",
		"vault": []gin.H{
			{"id": keptID, "url": "https://cdn.example.com/v1b.jpg", "teaser": "one again"},
			{"url": "https://cdn.example.com/v3.jpg"},
		},
	}, 1, idParam(created.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d body %s", w.Code, w.Body.String())
	}

	var items []models.VaultItem
	conn.Where("model_profile_id = ?", created.ID).Order("position ASC").Find(&items)
	if len(items) != 2 || items[0].ID != keptID || items[0].URL != "https://cdn.example.com/v1b.jpg" || items[1].ID == created.Vault[1].ID {
		t.Fatalf("items = %+v", items)
	}

	if got := call(t, handler.Create, http.MethodPost, gin.H{"name": "x", "profile_pic": "p", "vault": []gin.H{{"url": "u", "kind": "gif"}}}, 1, nil).Code; got != http.StatusBadRequest {
		t.Fatalf("bad kind status = %d, want 400", got)
	}
	if got := call(t, handler.Delete, http.MethodDelete, nil, 1, idParam(created.ID)).Code; got != http.StatusNoContent {
		t.Fatalf("delete status = %d", got)
	}
	var remaining int64
	conn.Model(&models.VaultItem{}).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("vault items left = %d", remaining)
	}
}

func TestGenerateBioMapsAIFailure(t *testing.T) {
	conn := setupTestDB(t)

	ok := NewModelHandler(conn, stubGenerator{text: "bio text"}, nil)
	w := call(t, ok.GenerateBio, http.MethodPost, gin.H{"name": "Mira", "age": 24}, 1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	decodeBody(t, w, &body)
	if body["bio"] != "bio text" {
		t.Fatalf("body = %v", body)
	}

	failing := NewModelHandler(conn, stubGenerator{err: ai.ErrGenerationFailed}, nil)
	if got := call(t, failing.GenerateTeaser, http.MethodPost, gin.H{"name": "Mira"}, 1, nil).Code; got != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", got)
	}
}

func TestGrantCreditsRequiresPositiveAmount(t *testing.T) {
	conn := setupTestDB(t)
	user := models.User{Name: "Ana", Email: "ana@example.com", Password: "x", ReferralCode: "ANA1"}
	conn.Create(&user)
	handler := NewUserHandler(conn, ledger.NewService(conn, nil))

	if got := call(t, handler.GrantCredits, http.MethodPost, gin.H{"credits": 0}, 1, idParam(user.ID)).Code; got != http.StatusBadRequest {
		t.Fatalf("zero credits status = %d, want 400", got)
	}
	w := call(t, handler.GrantCredits, http.MethodPost, gin.H{"credits": 25, "note": "promo"}, 1, idParam(user.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	var tx models.CreditTransaction
	if errFind := conn.Where("user_id = ?", user.ID).First(&tx).Error; errFind != nil {
		t.Fatalf("credit transaction: %v", errFind)
	}
	if tx.Delta != 25 || tx.Kind != models.CreditKindManualGrant || tx.Reference != "admin:1 promo" {
		t.Fatalf("transaction = %+v", tx)
	}
}

func TestSettingsUpdateRejectsUnknownKeys(t *testing.T) {
	conn := setupTestDB(t)
	handler := NewSettingsHandler(conn)

	if got := call(t, handler.Update, http.MethodPut, gin.H{"NOT_A_SETTING": 1}, 1, nil).Code; got != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", got)
	}
	w := call(t, handler.Update, http.MethodPut, gin.H{settings.ReferralCommissionPercentKey: 15}, 1, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", w.Code, w.Body.String())
	}
	if got := settings.ReferralCommissionPercent(); got.IntPart() != 15 {
		t.Fatalf("commission percent = %s", got)
	}
}

func TestLoginRequiresMFAWhenEnrolled(t *testing.T) {
	conn := setupTestDB(t)
	hash, errHash := security.HashPassword("secret")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	plain := models.Admin{Username: "plain", Password: hash, Active: true}
	guarded := models.Admin{Username: "guarded", Password: hash, Active: true, TOTPSecret: "JBSWY3DPEHPK3PXP"}
	conn.Create(&plain)
	conn.Create(&guarded)
	handler := NewAuthHandler(conn, config.JWTConfig{Secret: "s", Expiry: time.Hour})

	w := call(t, handler.Login, http.MethodPost, gin.H{"username": "plain", "password": "secret"}, 0, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("plain login = %d %s", w.Code, w.Body.String())
	}
	if got := call(t, handler.Login, http.MethodPost, gin.H{"username": "plain", "password": "nope"}, 0, nil).Code; got != http.StatusUnauthorized {
		t.Fatalf("wrong password = %d", got)
	}
	if got := call(t, handler.Login, http.MethodPost, gin.H{"username": "guarded", "password": "secret"}, 0, nil).Code; got != http.StatusForbidden {
		t.Fatalf("guarded login = %d, want 403", got)
	}

	w = call(t, handler.LoginPrepare, http.MethodPost, gin.H{"username": "guarded"}, 0, nil)
	var prep map[string]bool
	decodeBody(t, w, &prep)
	if !prep["mfa_enabled"] || !prep["totp_enabled"] || prep["passkey_enabled"] {
		t.Fatalf("prepare = %v", prep)
	}
}
