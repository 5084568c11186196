package voice

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Event types emitted by the voice platform that the service acts on.
const (
	TypeEndOfCallReport = "end-of-call-report"
	TypeToolCall        = "tool-call"
	// TypeOther stands in for every other event type in replies and metrics.
	TypeOther = "other"
)

var (
	// ErrEmptyBody indicates the request carried no payload at all.
	ErrEmptyBody = errors.New("empty event body")
	// ErrMalformed indicates the payload is not decodable JSON.
	ErrMalformed = errors.New("malformed event body")
)

// Customer identifies the remote party of a call.
type Customer struct {
	Number string `json:"number,omitempty"`
	SipURI string `json:"sipUri,omitempty"`
}

// Call carries call metadata; only the customer is consumed.
type Call struct {
	ID       string    `json:"id,omitempty"`
	Customer *Customer `json:"customer,omitempty"`
}

// ToolCall is a synchronous in-call function invocation request.
type ToolCall struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Function *struct {
		Name string `json:"name"`
	} `json:"function,omitempty"`
}

// FunctionName returns the tool name from either supported location.
func (t ToolCall) FunctionName() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Function != nil {
		return t.Function.Name
	}
	return ""
}

// Message is the nested event shape ({"message": {...}}).
type Message struct {
	Type     string `json:"type"`
	Analysis *struct {
		Summary string `json:"summary"`
	} `json:"analysis,omitempty"`
	Artifact *struct {
		Transcript string `json:"transcript"`
	} `json:"artifact,omitempty"`
	Customer     *Customer  `json:"customer,omitempty"`
	Call         *Call      `json:"call,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	Transcript   string     `json:"transcript,omitempty"`
	ToolCall     *ToolCall  `json:"toolCall,omitempty"`
	ToolCalls    []ToolCall `json:"toolCalls,omitempty"`
	ToolCallList []ToolCall `json:"toolCallList,omitempty"`
}

// Event is an inbound webhook payload. Both the nested shape and the legacy
// flat shape ({type, call, customer, summary, transcript}) decode into it;
// accessor methods hide the difference.
type Event struct {
	Message *Message `json:"message,omitempty"`

	Type       string    `json:"type,omitempty"`
	Call       *Call     `json:"call,omitempty"`
	Customer   *Customer `json:"customer,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	ToolCall   *ToolCall `json:"toolCall,omitempty"`
}

// DecodeEvent parses a webhook body. The body may be a JSON object or a JSON
// string whose content is itself the JSON object. A well-formed body that is
// not an object yields an empty Event, which callers treat as a no-op.
func DecodeEvent(body []byte) (*Event, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	if !json.Valid(body) {
		return nil, ErrMalformed
	}

	if body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		body = bytes.TrimSpace([]byte(inner))
		if len(body) == 0 {
			return nil, ErrEmptyBody
		}
		if !json.Valid(body) {
			return nil, ErrMalformed
		}
	}

	if body[0] != '{' {
		return &Event{}, nil
	}

	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &ev, nil
}

// Kind returns the event type discriminant.
func (e *Event) Kind() string {
	if e.Message != nil && e.Message.Type != "" {
		return e.Message.Type
	}
	return e.Type
}

// CallSummary returns the analysis summary from whichever shape carries it.
func (e *Event) CallSummary() string {
	if m := e.Message; m != nil {
		if m.Analysis != nil && m.Analysis.Summary != "" {
			return m.Analysis.Summary
		}
		if m.Summary != "" {
			return m.Summary
		}
	}
	return e.Summary
}

// CallTranscript returns the speaker-tagged transcript text.
func (e *Event) CallTranscript() string {
	if m := e.Message; m != nil {
		if m.Artifact != nil && m.Artifact.Transcript != "" {
			return m.Artifact.Transcript
		}
		if m.Transcript != "" {
			return m.Transcript
		}
	}
	return e.Transcript
}

// Tool returns the first tool call carried by the event, if any.
func (e *Event) Tool() (ToolCall, bool) {
	if m := e.Message; m != nil {
		if m.ToolCall != nil {
			return *m.ToolCall, true
		}
		if len(m.ToolCalls) > 0 {
			return m.ToolCalls[0], true
		}
		if len(m.ToolCallList) > 0 {
			return m.ToolCallList[0], true
		}
	}
	if e.ToolCall != nil {
		return *e.ToolCall, true
	}
	return ToolCall{}, false
}

func (e *Event) customer() *Customer {
	if e.Message != nil && e.Message.Customer != nil {
		return e.Message.Customer
	}
	return e.Customer
}

func (e *Event) call() *Call {
	if e.Message != nil && e.Message.Call != nil {
		return e.Message.Call
	}
	return e.Call
}
