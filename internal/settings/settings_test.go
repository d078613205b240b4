package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/priointimate/PrioBusiness/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestTypedAccessors(t *testing.T) {
	t.Cleanup(func() { Store(time.Time{}, nil) })
	Store(time.Now(), map[string]json.RawMessage{
		SiteNameKey:                  json.RawMessage(`{"value":" Prio Club "}`),
		ReferralCommissionPercentKey: json.RawMessage(`"12.5"`),
		WithdrawRejectRestoresKey:    json.RawMessage(`true`),
	})

	if got := SiteName(); got != "Prio Club" {
		t.Fatalf("site name = %q", got)
	}
	if got := ReferralCommissionPercent(); !got.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("commission = %s", got)
	}
	if !WithdrawRejectRestoresEarnings() {
		t.Fatalf("expected restore flag")
	}
}

func TestDefaultsAndClamping(t *testing.T) {
	t.Cleanup(func() { Store(time.Time{}, nil) })
	Store(time.Now(), nil)
	if SiteName() != DefaultSiteName {
		t.Fatalf("expected default site name")
	}
	if !ReferralCommissionPercent().Equal(DefaultReferralCommissionPercent) {
		t.Fatalf("expected default commission")
	}
	if WithdrawRejectRestoresEarnings() {
		t.Fatalf("expected restore flag off by default")
	}

	Store(time.Now(), map[string]json.RawMessage{ReferralCommissionPercentKey: json.RawMessage(`250`)})
	if got := ReferralCommissionPercent(); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("commission = %s, want clamp to 100", got)
	}
}

func TestSaveUpsertsAndRefreshes(t *testing.T) {
	t.Cleanup(func() { Store(time.Time{}, nil) })
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	ctx := context.Background()
	if errSave := Save(ctx, conn, map[string]json.RawMessage{SiteNameKey: json.RawMessage(`"First"`)}); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}
	if errSave := Save(ctx, conn, map[string]json.RawMessage{SiteNameKey: json.RawMessage(`"Second"`)}); errSave != nil {
		t.Fatalf("second save: %v", errSave)
	}
	if got := SiteName(); got != "Second" {
		t.Fatalf("site name = %q", got)
	}

	var count int64
	conn.Model(&models.Setting{}).Count(&count)
	if count != 1 {
		t.Fatalf("settings rows = %d, want 1", count)
	}
	if errSave := Save(ctx, conn, map[string]json.RawMessage{SiteNameKey: json.RawMessage(`{broken`)}); errSave == nil {
		t.Fatalf("expected invalid json error")
	}
}

func TestPollerPicksUpExternalWrites(t *testing.T) {
	t.Cleanup(func() { Store(time.Time{}, nil) })
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	ctx := context.Background()
	if errSave := Save(ctx, conn, map[string]json.RawMessage{SiteNameKey: json.RawMessage(`"Local"`)}); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}

	poller := NewPoller(conn, time.Minute)
	if changed, err := poller.pollOnce(ctx); err != nil || changed {
		t.Fatalf("pollOnce = %v, %v; want no change", changed, err)
	}

	errUpdate := conn.Model(&models.Setting{}).
		Where("key = ?", SiteNameKey).
		Updates(map[string]any{"value": json.RawMessage(`"Remote"`), "updated_at": UpdatedAt().Add(time.Minute)}).Error
	if errUpdate != nil {
		t.Fatalf("external write: %v", errUpdate)
	}
	if changed, err := poller.pollOnce(ctx); err != nil || !changed {
		t.Fatalf("pollOnce = %v, %v; want refresh", changed, err)
	}
	if got := SiteName(); got != "Remote" {
		t.Fatalf("site name = %q, want Remote", got)
	}
	if NewPoller(nil, 0) != nil {
		t.Fatalf("expected nil poller for nil db")
	}
}
