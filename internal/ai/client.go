// Package ai calls a Gemini-style generateContent REST endpoint.
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// ErrGenerationFailed is returned for every failure; callers get no finer detail.
var ErrGenerationFailed = errors.New("ai: generation failed")

// Media is an inline attachment such as a user photo or voice note.
type Media struct {
	MimeType string
	Data     []byte
}

// Generator produces text for a prompt and optional media.
type Generator interface {
	Generate(ctx context.Context, prompt string, media []Media) (string, error)
}

// Config configures Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Sampling parameters sent with every request.
const (
	temperature = 0.9
	topK        = 40
	topP        = 0.95
)

// Client is a Generator backed by resty.
type Client struct {
	http  *resty.Client
	model string
	key   string
}

// apiKeyHeader carries the API key; request URLs never contain it.
const apiKeyHeader = "x-goog-api-key"

// NewClient builds a Client for cfg.
func NewClient(cfg Config) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: client, model: cfg.Model, key: cfg.APIKey}
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"topK"`
	TopP        float64 `json:"topP"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt and media and returns the concatenated text parts.
func (c *Client) Generate(ctx context.Context, prompt string, media []Media) (string, error) {
	if c.key == "" {
		log.Warn("ai: api key is not configured")
		return "", ErrGenerationFailed
	}
	parts := []part{{Text: prompt}}
	for _, m := range media {
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: m.MimeType,
			Data:     base64.StdEncoding.EncodeToString(m.Data),
		}})
	}
	body := generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: generationConfig{Temperature: temperature, TopK: topK, TopP: topP},
	}

	var out generateResponse
	resp, errPost := c.http.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, c.key).
		SetBody(body).
		SetResult(&out).
		Post(fmt.Sprintf("/models/%s:generateContent", c.model))
	if errPost != nil {
		log.WithError(errPost).Warn("ai: request failed")
		return "", ErrGenerationFailed
	}
	if resp.IsError() {
		log.WithField("status", resp.StatusCode()).Warn("ai: upstream returned an error")
		return "", ErrGenerationFailed
	}

	var b strings.Builder
	for _, candidate := range out.Candidates {
		for _, p := range candidate.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrGenerationFailed
	}
	return text, nil
}
