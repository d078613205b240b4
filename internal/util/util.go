package util

import (
	"net/url"
	"strings"
)

// MaskMiddle keeps the first and last few characters of a phone number,
// transaction id or secret and replaces the rest with asterisks.
func MaskMiddle(value string) string {
	value = strings.TrimSpace(value)
	n := len(value)
	keep := 3
	switch {
	case n <= 2:
		return strings.Repeat("*", n)
	case n <= 6:
		keep = 1
	case n <= 10:
		keep = 2
	}
	return value[:keep] + strings.Repeat("*", n-2*keep) + value[n-keep:]
}

// MaskSensitiveQuery masks token and key query parameters in a raw query string.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, p := range parts {
		key, value, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		decodedKey, errKey := url.QueryUnescape(key)
		if errKey != nil {
			decodedKey = key
		}
		if !isSensitiveParam(decodedKey) {
			continue
		}
		decodedValue, errValue := url.QueryUnescape(value)
		if errValue != nil {
			decodedValue = value
		}
		parts[i] = key + "=" + url.QueryEscape(MaskMiddle(decodedValue))
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

func isSensitiveParam(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return key == "key" || strings.Contains(key, "token") || strings.Contains(key, "secret") || strings.Contains(key, "password")
}
