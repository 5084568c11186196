package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"call-intake/internal/lead"
	"call-intake/internal/metrics"
)

// ErrPayload indicates the generated text was not a valid analysis document.
var ErrPayload = errors.New("analysis payload decode failed")

// Oracle turns a prompt into generated JSON text.
type Oracle interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Analysis is the structured outcome of one call.
type Analysis struct {
	CallStatus   string `json:"callStatus"`
	LeadStatus   string `json:"leadStatus"`
	Remark       string `json:"remark"`
	FollowUpDate string `json:"followUpDate"`
	FollowUpTime string `json:"followUpTime"`
	Name         string `json:"name"`
	Course       string `json:"course"`
	City         string `json:"city"`
	State        string `json:"state"`
	UserType     string `json:"userType"`
}

// DefaultAnalysis is substituted whenever the oracle cannot produce a usable
// analysis. LeadStatus is lead.Uncertain, which is outside the lead status
// vocabulary so downstream consumers can detect the failure. The remark names
// the failure category only; raw error text stays in the logs.
func DefaultAnalysis(cause error) Analysis {
	remark := "Analysis failed"
	if cause != nil {
		remark = "Analysis failed: " + failureCategory(cause)
	}
	return Analysis{
		CallStatus:   lead.DefaultCallStatus,
		LeadStatus:   lead.Uncertain,
		Remark:       remark,
		FollowUpDate: lead.NA,
		FollowUpTime: lead.NA,
		Name:         lead.Unknown,
		Course:       lead.Unknown,
		City:         lead.Unknown,
		State:        lead.Unknown,
		UserType:     lead.Unknown,
	}
}

func failureCategory(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrUpstream):
		return "upstream error"
	case errors.Is(err, ErrEnvelope), errors.Is(err, ErrEmptyCandidate), errors.Is(err, ErrPayload):
		return "unparsable response"
	default:
		return "request error"
	}
}

// Analyzer classifies calls through an Oracle and never fails.
type Analyzer struct {
	oracle   Oracle
	logger   *slog.Logger
	metrics  *metrics.Metrics
	location *time.Location
	now      func() time.Time
}

// NewAnalyzer creates an Analyzer. loc sets the calendar used to resolve
// relative follow-up dates; nil means UTC.
func NewAnalyzer(oracle Oracle, logger *slog.Logger, metrics *metrics.Metrics, loc *time.Location) *Analyzer {
	if loc == nil {
		loc = time.UTC
	}
	return &Analyzer{
		oracle:   oracle,
		logger:   logger.With("component", "analyzer"),
		metrics:  metrics,
		location: loc,
		now:      time.Now,
	}
}

// Analyze returns the oracle's analysis of a call, or DefaultAnalysis when
// the oracle call or either decode stage fails. It does not retry.
func (a *Analyzer) Analyze(ctx context.Context, summary, transcript string) Analysis {
	prompt := BuildPrompt(a.now().In(a.location), summary, transcript)

	text, err := a.oracle.GenerateJSON(ctx, prompt)
	if err != nil {
		a.logger.Warn("gemini analysis failed, using default", "error", err)
		a.countError("analyzer_oracle")
		return DefaultAnalysis(err)
	}

	result, err := decodeAnalysis(text)
	if err != nil {
		a.logger.Warn("gemini analysis unparsable, using default", "error", err)
		a.countError("analyzer_payload")
		return DefaultAnalysis(err)
	}

	a.checkVocabulary(result)
	return result
}

// decodeAnalysis is the second decode stage: generated text to Analysis.
func decodeAnalysis(text string) (Analysis, error) {
	var out Analysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrPayload, err)
	}
	return out.withSentinels(), nil
}

// withSentinels fills fields the model left empty.
func (r Analysis) withSentinels() Analysis {
	r.CallStatus = strings.TrimSpace(r.CallStatus)
	if r.CallStatus == "" {
		r.CallStatus = lead.DefaultCallStatus
	}
	r.LeadStatus = strings.TrimSpace(r.LeadStatus)
	if r.LeadStatus == "" {
		r.LeadStatus = lead.Uncertain
	}
	r.Remark = strings.TrimSpace(r.Remark)
	r.FollowUpDate = orNA(r.FollowUpDate)
	r.FollowUpTime = orNA(r.FollowUpTime)
	r.Name = lead.OrUnknown(strings.TrimSpace(r.Name))
	r.Course = lead.OrUnknown(strings.TrimSpace(r.Course))
	r.City = lead.OrUnknown(strings.TrimSpace(r.City))
	r.State = lead.OrUnknown(strings.TrimSpace(r.State))
	r.UserType = lead.OrUnknown(strings.TrimSpace(r.UserType))
	return r
}

// checkVocabulary logs values outside the closed vocabularies. They are kept.
func (a *Analyzer) checkVocabulary(r Analysis) {
	if !lead.ValidCallStatus(r.CallStatus) {
		a.logger.Warn("call status outside vocabulary", "call_status", r.CallStatus)
	}
	if !lead.ValidLeadStatus(r.LeadStatus) {
		a.logger.Warn("lead status outside vocabulary", "lead_status", r.LeadStatus)
	}
	if lead.Known(r.UserType) && !lead.ValidUserType(r.UserType) {
		a.logger.Warn("user type outside vocabulary", "user_type", r.UserType)
	}
	if lead.Known(r.FollowUpDate) {
		if _, err := time.Parse(time.DateOnly, r.FollowUpDate); err != nil {
			a.logger.Warn("follow-up date is not ISO formatted", "follow_up_date", r.FollowUpDate)
		}
	}
}

func (a *Analyzer) countError(component string) {
	if a.metrics != nil {
		a.metrics.Errors.WithLabelValues(component).Inc()
	}
}

func orNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return lead.NA
	}
	return s
}
