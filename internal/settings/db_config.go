package settings

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var current atomic.Value // stores snapshot

func init() {
	current.Store(snapshot{values: map[string]json.RawMessage{}})
}

// Store replaces the in-memory snapshot of DB-backed settings.
func Store(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next[key] = append(json.RawMessage(nil), v...)
	}
	current.Store(snapshot{updatedAt: updatedAt.UTC(), values: next})
}

// UpdatedAt returns the newest row timestamp seen by the last refresh.
func UpdatedAt() time.Time {
	return load().updatedAt
}

// Value returns a copy of the raw JSON value for key.
func Value(key string) (json.RawMessage, bool) {
	val, ok := load().values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), val...), true
}

// All returns a copy of every stored setting.
func All() map[string]json.RawMessage {
	snap := load()
	out := make(map[string]json.RawMessage, len(snap.values))
	for k, v := range snap.values {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// String reads a string setting, accepting a bare JSON string or {"value": ...}.
func String(key string) string {
	raw, ok := Value(key)
	if !ok {
		return ""
	}
	return parseString(unwrap(raw))
}

// Bool reads a boolean setting; JSON strings such as "true" are accepted.
func Bool(key string, fallback bool) bool {
	raw, ok := Value(key)
	if !ok {
		return fallback
	}
	raw = unwrap(raw)
	var b bool
	if errUnmarshal := json.Unmarshal(raw, &b); errUnmarshal == nil {
		return b
	}
	if parsed, errParse := strconv.ParseBool(parseString(raw)); errParse == nil {
		return parsed
	}
	return fallback
}

// Decimal reads a numeric setting; JSON numbers and numeric strings are accepted.
func Decimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw, ok := Value(key)
	if !ok {
		return fallback
	}
	raw = unwrap(raw)
	text := parseString(raw)
	if text == "" {
		text = strings.TrimSpace(string(raw))
	}
	parsed, errParse := decimal.NewFromString(text)
	if errParse != nil {
		return fallback
	}
	return parsed
}

// SiteName returns the configured site name or the default.
func SiteName() string {
	if name := String(SiteNameKey); name != "" {
		return name
	}
	return DefaultSiteName
}

// ReferralCommissionPercent returns the commission percentage clamped to [0, 100].
func ReferralCommissionPercent() decimal.Decimal {
	pct := Decimal(ReferralCommissionPercentKey, DefaultReferralCommissionPercent)
	hundred := decimal.NewFromInt(100)
	switch {
	case pct.IsNegative():
		return decimal.Zero
	case pct.GreaterThan(hundred):
		return hundred
	}
	return pct
}

// WithdrawRejectRestoresEarnings reports whether rejected withdrawals refund earnings.
func WithdrawRejectRestoresEarnings() bool {
	return Bool(WithdrawRejectRestoresKey, DefaultWithdrawRejectRestores)
}

func load() snapshot {
	snap, ok := current.Load().(snapshot)
	if !ok || snap.values == nil {
		return snapshot{values: map[string]json.RawMessage{}}
	}
	return snap
}

// unwrap strips an optional {"value": ...} envelope.
func unwrap(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil && len(wrapper.Value) > 0 {
		return bytes.TrimSpace(wrapper.Value)
	}
	return raw
}

func parseString(raw json.RawMessage) string {
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return strings.TrimSpace(s)
	}
	return ""
}
