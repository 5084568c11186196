package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"call-intake/internal/metrics"
)

const maxBodyBytes = 4 << 20

// Outcome is the terminal state of one webhook request.
type Outcome int

const (
	// OutcomeOK acknowledges with an empty 200, whether work was done or not.
	OutcomeOK Outcome = iota
	// OutcomeToolResult answers a tool call with a 200 JSON result.
	OutcomeToolResult
	// OutcomeBadRequest rejects a body that is not JSON.
	OutcomeBadRequest
	// OutcomeFailed reports that the caller record could not be persisted.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeToolResult:
		return "tool_result"
	case OutcomeBadRequest:
		return "bad_request"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reply is what an EventProcessor decided for a request.
type Reply struct {
	Outcome   Outcome
	EventType string
	Result    string
}

// EventProcessor handles a raw webhook body.
type EventProcessor interface {
	HandleEvent(ctx context.Context, body []byte) Reply
}

// WebhookHandler reads voice platform webhooks and writes the processor's reply.
type WebhookHandler struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	processor EventProcessor
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(logger *slog.Logger, metrics *metrics.Metrics, processor EventProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger.With("component", "voice_webhook"),
		metrics:   metrics,
		processor: processor,
	}
}

// ServeHTTP satisfies http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.countError("voice_webhook_size")
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.countError("voice_webhook")
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	reply := h.processor.HandleEvent(r.Context(), body)
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues(eventLabel(reply.EventType), reply.Outcome.String()).Inc()
	}

	switch reply.Outcome {
	case OutcomeToolResult:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{"result": reply.Result}); err != nil {
			h.logger.Error("failed writing tool result", "error", err)
		}
	case OutcomeBadRequest:
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
	case OutcomeFailed:
		w.WriteHeader(http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// eventLabel keeps the type label to a fixed set; the type string comes from
// an unauthenticated request body.
func eventLabel(eventType string) string {
	switch eventType {
	case "":
		return "none"
	case TypeEndOfCallReport, TypeToolCall:
		return eventType
	default:
		return TypeOther
	}
}

func (h *WebhookHandler) countError(component string) {
	if h.metrics != nil {
		h.metrics.Errors.WithLabelValues(component).Inc()
	}
}
