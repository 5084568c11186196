package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"call-intake/internal/metrics"

	"golang.org/x/time/rate"
)

var (
	// ErrEnvelope indicates the Gemini response body was not the expected JSON envelope.
	ErrEnvelope = errors.New("gemini envelope decode failed")
	// ErrEmptyCandidate indicates the envelope carried no generated text.
	ErrEmptyCandidate = errors.New("gemini returned no candidate text")
	// ErrUpstream indicates a non-success HTTP status from Gemini.
	ErrUpstream = errors.New("gemini upstream error")
	// ErrTransport indicates the request never produced an HTTP response.
	ErrTransport = errors.New("gemini request failed")
)

// Config holds Gemini client configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	RateLimit float64
}

// Client calls the Gemini generateContent endpoint in JSON output mode.
type Client struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	metrics *metrics.Metrics
	limiter *rate.Limiter
}

// New creates a Gemini client.
func New(cfg Config, logger *slog.Logger, metrics *metrics.Metrics) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		logger:  logger.With("component", "gemini"),
		baseURL: base,
		apiKey:  cfg.APIKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
		metrics: metrics,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(int(cfg.RateLimit), 1))
	}
	return c
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateJSON sends prompt to the model and returns the generated text,
// which in JSON output mode is itself a JSON document. Decoding that document
// is left to the caller.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("gemini rate limit: %w", err)
		}
	}

	payload, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return "", transportError(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	statusLabel := fmt.Sprintf("%d", res.StatusCode)
	c.observe(statusLabel, start)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status=%d body=%s", ErrUpstream, res.StatusCode, snippet(body))
	}

	return decodeEnvelope(body)
}

// decodeEnvelope is the first decode stage: transport envelope to generated text.
func decodeEnvelope(body []byte) (string, error) {
	var env generateResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	if len(env.Candidates) == 0 || len(env.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyCandidate
	}
	text := strings.TrimSpace(env.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyCandidate
	}
	return text, nil
}

// transportError drops the request URL from a *url.Error so callers can log
// or persist the message.
func transportError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%w: %s: %w", ErrTransport, ue.Op, ue.Err)
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

func (c *Client) observe(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.GeminiRequests.WithLabelValues(status).Inc()
	c.metrics.GeminiLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
