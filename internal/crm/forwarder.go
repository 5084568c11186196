package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"call-intake/internal/metrics"
	"call-intake/internal/repo"
)

// ErrNotConfigured is returned when no CRM auth code is configured.
var ErrNotConfigured = errors.New("crm auth code not configured")

// Encoding selects how the savecontact payload is sent.
type Encoding string

const (
	EncodingForm Encoding = "form"
	EncodingJSON Encoding = "json"
)

// Config holds CRM forwarding settings.
type Config struct {
	BaseURL  string
	AuthCode string
	Encoding Encoding
	Timeout  time.Duration
	Location *time.Location
}

// Forwarder posts caller records to the CRM savecontact endpoint.
type Forwarder struct {
	logger   *slog.Logger
	endpoint string
	authCode string
	encoding Encoding
	loc      *time.Location
	http     *http.Client
	metrics  *metrics.Metrics
}

// New creates a Forwarder.
func New(cfg Config, logger *slog.Logger, metrics *metrics.Metrics) *Forwarder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = EncodingForm
	}
	return &Forwarder{
		logger:   logger.With("component", "crm"),
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/savecontact",
		authCode: strings.TrimSpace(cfg.AuthCode),
		encoding: encoding,
		loc:      cfg.Location,
		http:     &http.Client{Timeout: timeout},
		metrics:  metrics,
	}
}

// Send forwards the profile and latest call of c.
func (f *Forwarder) Send(ctx context.Context, c *repo.Caller) error {
	if f.authCode == "" {
		return ErrNotConfigured
	}
	if c == nil {
		return fmt.Errorf("crm send: nil caller")
	}

	fields := append([]Field{{FieldAuthCode, f.authCode}}, FieldMap(c, f.loc)...)
	body, contentType, err := f.encode(fields)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := f.http.Do(req)
	if err != nil {
		f.observe("error", start)
		return fmt.Errorf("crm request: %w", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	f.observe(fmt.Sprintf("%d", res.StatusCode), start)
	if err != nil {
		return fmt.Errorf("read crm response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("crm savecontact: status=%d body=%s", res.StatusCode, snippet(respBody))
	}

	f.logger.Info("crm contact saved",
		"phone", c.PhoneNumber,
		"status", res.StatusCode,
		"response", snippet(respBody),
	)
	return nil
}

func (f *Forwarder) encode(fields []Field) (io.Reader, string, error) {
	switch f.encoding {
	case EncodingJSON:
		payload := make(map[string]string, len(fields))
		for _, field := range fields {
			payload[field.Key] = field.Value
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", fmt.Errorf("marshal crm payload: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	case EncodingForm:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, field := range fields {
			if err := w.WriteField(field.Key, field.Value); err != nil {
				return nil, "", fmt.Errorf("write form field %s: %w", field.Key, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("close form: %w", err)
		}
		return &buf, w.FormDataContentType(), nil
	default:
		return nil, "", fmt.Errorf("unsupported crm encoding %q", f.encoding)
	}
}

func (f *Forwarder) observe(status string, start time.Time) {
	if f.metrics == nil {
		return
	}
	f.metrics.CRMRequests.WithLabelValues(status).Inc()
	f.metrics.CRMLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
