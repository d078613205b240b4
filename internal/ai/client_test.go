package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

func TestGenerateSendsPartsAndReadsText(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/test-model:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k" || r.URL.Query().Get("key") != "" {
			t.Errorf("api key must travel only in the header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"there"}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL + "/", Model: "test-model", Timeout: time.Second})
	text, err := client.Generate(context.Background(), "hi", []Media{{MimeType: "image/png", Data: []byte{1, 2, 3}}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "hello there" {
		t.Fatalf("text = %q", text)
	}
	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if got.Contents[0].Parts[1].InlineData == nil || got.Contents[0].Parts[1].InlineData.Data != "AQID" {
		t.Fatalf("inline data = %+v", got.Contents[0].Parts[1].InlineData)
	}
	if got.GenerationConfig.TopK != 40 || got.GenerationConfig.Temperature != 0.9 {
		t.Fatalf("generation config = %+v", got.GenerationConfig)
	}
}

func TestGenerateFailuresCollapseToOneError(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		},
	}
	for name, handler := range cases {
		server := httptest.NewServer(handler)
		client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m", Timeout: time.Second})
		_, err := client.Generate(context.Background(), "hi", nil)
		server.Close()
		if !errors.Is(err, ErrGenerationFailed) {
			t.Fatalf("%s: err = %v", name, err)
		}
	}

	noKey := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "m", Timeout: time.Second})
	if _, err := noKey.Generate(context.Background(), "hi", nil); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("missing key: err = %v", err)
	}
}

func TestPrompts(t *testing.T) {
	prompt := PersonaPrompt(Persona{Name: "Mira", Age: 24, Bio: "loves rain"}, "image", "  look  ")
	for _, want := range []string{"Mira", "24", "loves rain", "sent you a photo", `"look"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("persona prompt missing %q: %s", want, prompt)
		}
	}
	if !strings.Contains(BioPrompt("Mira", 24), "Mira, age 24") {
		t.Fatalf("bio prompt")
	}
	if !strings.Contains(TeaserPrompt("Mira"), "Mira") {
		t.Fatalf("teaser prompt")
	}
}

func TestTransportErrorLogOmitsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	var buf bytes.Buffer
	previous := log.StandardLogger().Out
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(previous) })

	client := NewClient(Config{APIKey: "SUPERSECRETKEY", BaseURL: addr, Model: "m", Timeout: time.Second})
	if _, err := client.Generate(context.Background(), "hi", nil); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if !strings.Contains(buf.String(), "ai: request failed") {
		t.Fatalf("expected a transport failure log, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "SUPERSECRETKEY") {
		t.Fatalf("log leaked the api key: %q", buf.String())
	}
}
