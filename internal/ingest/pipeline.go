package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"call-intake/internal/cache"
	"call-intake/internal/crm"
	"call-intake/internal/extract"
	"call-intake/internal/lead"
	"call-intake/internal/metrics"
	"call-intake/internal/nlu"
	"call-intake/internal/repo"
	"call-intake/internal/voice"

	"golang.org/x/sync/errgroup"
)

// DatabaseCheckTool is the tool name answered from the caller store.
const DatabaseCheckTool = "databasecheck"

// NewCallerResult is the tool result for a number with no stored record.
const NewCallerResult = "New caller"

const lastCallDateLayout = "2006-01-02"

// Store is the part of repo.Repository the pipeline needs.
type Store interface {
	FindByPhone(ctx context.Context, phone string) (*repo.Caller, error)
	UpsertCall(ctx context.Context, update repo.CallerUpdate) (*repo.Caller, error)
}

// Analyzer classifies a call. Implementations never fail.
type Analyzer interface {
	Analyze(ctx context.Context, summary, transcript string) nlu.Analysis
}

// Forwarder sends a persisted caller downstream.
type Forwarder interface {
	Send(ctx context.Context, c *repo.Caller) error
}

// Options configures a Pipeline.
type Options struct {
	ToolCallEnabled bool
	Location        *time.Location
}

// Pipeline turns voice platform events into caller records.
type Pipeline struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	store     Store
	callers   *cache.Callers
	analyzer  Analyzer
	forwarder Forwarder
	opts      Options
	now       func() time.Time
}

// New builds a Pipeline. callers and forwarder may be nil.
func New(logger *slog.Logger, m *metrics.Metrics, store Store, callers *cache.Callers, analyzer Analyzer, forwarder Forwarder, opts Options) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Pipeline{
		logger:    logger.With("component", "ingest"),
		metrics:   m,
		store:     store,
		callers:   callers,
		analyzer:  analyzer,
		forwarder: forwarder,
		opts:      opts,
		now:       time.Now,
	}
}

// HandleEvent satisfies voice.EventProcessor.
func (p *Pipeline) HandleEvent(ctx context.Context, body []byte) voice.Reply {
	ev, err := voice.DecodeEvent(body)
	switch {
	case errors.Is(err, voice.ErrEmptyBody):
		return voice.Reply{Outcome: voice.OutcomeOK}
	case err != nil:
		p.logger.Warn("rejecting malformed webhook body", "error", err)
		p.countError("ingest_decode")
		return voice.Reply{Outcome: voice.OutcomeBadRequest}
	}

	kind := ev.Kind()
	switch kind {
	case voice.TypeToolCall:
		return p.handleToolCall(ctx, ev)
	case voice.TypeEndOfCallReport:
		return p.handleEndOfCall(ctx, ev)
	default:
		p.logger.Debug("ignoring event", "type", kind)
		return voice.Reply{Outcome: voice.OutcomeOK, EventType: voice.TypeOther}
	}
}

func (p *Pipeline) handleToolCall(ctx context.Context, ev *voice.Event) voice.Reply {
	reply := voice.Reply{Outcome: voice.OutcomeOK, EventType: voice.TypeToolCall}
	if !p.opts.ToolCallEnabled {
		return reply
	}
	tool, ok := ev.Tool()
	if !ok || !strings.EqualFold(strings.TrimSpace(tool.FunctionName()), DatabaseCheckTool) {
		p.logger.Debug("ignoring tool call", "tool", tool.FunctionName())
		return reply
	}

	reply.Outcome = voice.OutcomeToolResult
	reply.Result = NewCallerResult

	phone := voice.CallerNumber(ev)
	if phone == "" {
		p.logger.Info("tool call without caller number")
		return reply
	}

	caller, err := p.lookup(ctx, phone)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			p.logger.Error("caller lookup failed", "phone", phone, "error", err)
			p.countError("ingest_lookup")
		}
		return reply
	}

	result, err := summarize(caller, p.opts.Location)
	if err != nil {
		p.logger.Error("encode caller summary", "phone", phone, "error", err)
		p.countError("ingest_lookup")
		return reply
	}
	reply.Result = result
	return reply
}

func (p *Pipeline) lookup(ctx context.Context, phone string) (*repo.Caller, error) {
	if c, ok := p.callers.Get(ctx, phone); ok {
		return c, nil
	}
	c, err := p.store.FindByPhone(ctx, phone)
	p.observeStore("find", err)
	if err != nil {
		return nil, err
	}
	p.callers.Put(ctx, c)
	return c, nil
}

type callerSummary struct {
	Name            string `json:"name"`
	Course          string `json:"course"`
	City            string `json:"city"`
	State           string `json:"state"`
	UserType        string `json:"userType"`
	LastCallSummary string `json:"lastCallSummary"`
	LastCallDate    string `json:"lastCallDate"`
	TotalCalls      int    `json:"totalCalls"`
}

func summarize(c *repo.Caller, loc *time.Location) (string, error) {
	s := callerSummary{
		Name:       c.Name,
		Course:     c.Course,
		City:       c.City,
		State:      c.State,
		UserType:   c.UserType,
		TotalCalls: len(c.Calls),
	}
	if latest, ok := c.LatestCall(); ok {
		s.LastCallSummary = latest.Summary
		if !latest.Date.IsZero() {
			s.LastCallDate = latest.Date.In(loc).Format(lastCallDateLayout)
		}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (p *Pipeline) handleEndOfCall(ctx context.Context, ev *voice.Event) voice.Reply {
	reply := voice.Reply{Outcome: voice.OutcomeOK, EventType: voice.TypeEndOfCallReport}

	phone := voice.CallerNumber(ev)
	if phone == "" {
		p.logger.Info("end-of-call report without caller number")
		return reply
	}

	summary := ev.CallSummary()
	transcript := ev.CallTranscript()

	var (
		analysis nlu.Analysis
		attrs    extract.Attributes
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		analysis = p.analyzer.Analyze(gctx, summary, transcript)
		return nil
	})
	g.Go(func() error {
		attrs = extract.FromTranscript(transcript)
		return nil
	})
	if err := g.Wait(); err != nil {
		p.logger.Error("call analysis failed", "phone", phone, "error", err)
		p.countError("ingest_analyze")
		reply.Outcome = voice.OutcomeFailed
		return reply
	}

	at := p.now()
	caller, err := p.store.UpsertCall(ctx, repo.CallerUpdate{
		PhoneNumber: phone,
		Profile:     merge(analysis, attrs),
		Call: repo.CallEntry{
			Date:         at,
			Summary:      summary,
			CallStatus:   analysis.CallStatus,
			LeadStatus:   analysis.LeadStatus,
			Remark:       analysis.Remark,
			FollowUpDate: analysis.FollowUpDate,
			FollowUpTime: analysis.FollowUpTime,
			Transcript:   transcript,
		},
		At: at,
	})
	p.observeStore("upsert", err)
	if err != nil {
		p.logger.Error("persist caller failed", "phone", phone, "error", err)
		p.countError("ingest_persist")
		reply.Outcome = voice.OutcomeFailed
		return reply
	}
	p.callers.Invalidate(ctx, phone)

	p.logger.Info("caller persisted",
		"phone", phone,
		"caller_id", caller.ID,
		"new", caller.IsNew(),
		"total_calls", len(caller.Calls),
		"call_status", analysis.CallStatus,
		"lead_status", analysis.LeadStatus,
	)

	p.forward(ctx, caller)
	return reply
}

func (p *Pipeline) forward(ctx context.Context, caller *repo.Caller) {
	if p.forwarder == nil {
		return
	}
	err := p.forwarder.Send(ctx, caller)
	switch {
	case err == nil:
	case errors.Is(err, crm.ErrNotConfigured):
		p.logger.Warn("crm forwarding skipped", "phone", caller.PhoneNumber, "error", err)
		p.countError("crm_config")
	default:
		p.logger.Error("crm forwarding failed", "phone", caller.PhoneNumber, "error", err)
		p.countError("crm")
	}
}

// merge prefers the oracle's profile values and falls back to the
// transcript extraction.
func merge(a nlu.Analysis, x extract.Attributes) repo.Profile {
	return repo.Profile{
		Name:     lead.Prefer(a.Name, x.Name),
		Course:   lead.Prefer(a.Course, x.Course),
		City:     lead.Prefer(a.City, x.City),
		State:    lead.Prefer(a.State, x.State),
		UserType: lead.Prefer(a.UserType, x.UserType),
	}
}

func (p *Pipeline) observeStore(op string, err error) {
	if p.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, repo.ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	p.metrics.StoreOperations.WithLabelValues(op, status).Inc()
}

func (p *Pipeline) countError(component string) {
	if p.metrics != nil {
		p.metrics.Errors.WithLabelValues(component).Inc()
	}
}
