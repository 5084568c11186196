package nlu

import (
	"fmt"
	"strings"
	"time"

	"call-intake/internal/lead"
)

const promptTemplate = `You are analysing a phone call between an admissions assistant and a caller.
Today's date is %s. Resolve relative follow-up requests (for example "call me in 2 days" or "next Monday") into absolute dates.

Respond with a single JSON object and nothing else, using exactly these keys:
{
  "callStatus": one of [%s],
  "leadStatus": one of [%s],
  "remark": a remark about the call in at most 100 characters,
  "followUpDate": follow-up date as YYYY-MM-DD, or "N/A" if none was requested,
  "followUpTime": follow-up time of day as HH:MM (24h), or "N/A" if none was requested,
  "name": the caller's name, or "Unknown",
  "course": the course the caller is interested in, or "Unknown",
  "city": the caller's city, or "Unknown",
  "state": the caller's state, or "Unknown",
  "userType": one of [%s], or "Unknown"
}

Call summary:
%s

Call transcript:
%s
`

// BuildPrompt renders the analysis instruction for one call.
func BuildPrompt(today time.Time, summary, transcript string) string {
	return fmt.Sprintf(promptTemplate,
		today.Format("2006-01-02 (Monday)"),
		quoteAll(lead.CallStatuses),
		quoteAll(lead.LeadStatuses),
		quoteAll(lead.UserTypes),
		orNone(summary),
		orNone(transcript),
	)
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, ", ")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
