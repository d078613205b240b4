package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/priointimate/PrioBusiness/internal/ai"
	"github.com/priointimate/PrioBusiness/internal/ledger"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{&ledger.ValidationError{Field: "amount", Message: "too low"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", ledger.ErrInsufficientCredits), http.StatusPaymentRequired},
		{ledger.ErrNotFound, http.StatusNotFound},
		{ledger.ErrEmailTaken, http.StatusConflict},
		{ai.ErrGenerationFailed, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		WriteError(c, tc.err)
		if w.Code != tc.want {
			t.Fatalf("%v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestValidationErrorIncludesField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	WriteError(c, &ledger.ValidationError{Field: "number", Message: "too short"})

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["field"] != "number" || body["error"] != "number: too short" {
		t.Fatalf("body = %v", body)
	}
}

func TestBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		header string
		query  string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "Basic abc"},
		{query: "?token=xyz", want: "xyz", ok: true},
		{},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/stream"+tc.query, nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(c)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("BearerToken(%q,%q) = %q,%v", tc.header, tc.query, got, ok)
		}
	}
}
