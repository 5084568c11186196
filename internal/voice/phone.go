package voice

import (
	"strings"

	"github.com/emiago/sipgo/sip"
)

// CallerNumber returns the normalized caller identity for an event, or ""
// when the event carries no phone-bearing field. Sources are tried in order:
// customer SIP URI, call customer number, call customer SIP URI, customer
// number.
func CallerNumber(ev *Event) string {
	if ev == nil {
		return ""
	}
	var candidates []string
	cust := ev.customer()
	call := ev.call()

	if cust != nil {
		candidates = append(candidates, cust.SipURI)
	}
	if call != nil && call.Customer != nil {
		candidates = append(candidates, call.Customer.Number, call.Customer.SipURI)
	}
	if cust != nil {
		candidates = append(candidates, cust.Number)
	}

	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return NormalizeNumber(c)
		}
	}
	return ""
}

// NormalizeNumber reduces a SIP or SIPS URI to its user part. Any other
// value is returned unchanged.
func NormalizeNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "sip:") && !strings.HasPrefix(lower, "sips:") {
		return raw
	}

	var uri sip.Uri
	if err := sip.ParseUri(raw, &uri); err == nil && uri.User != "" {
		return uri.User
	}

	// Parser rejected it; strip the scheme and host by hand.
	rest := raw[strings.Index(raw, ":")+1:]
	if at := strings.Index(rest, "@"); at >= 0 {
		rest = rest[:at]
	}
	if semi := strings.IndexAny(rest, ";?"); semi >= 0 {
		rest = rest[:semi]
	}
	return rest
}
