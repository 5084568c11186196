// Package extract pulls caller profile hints out of a call transcript with
// plain pattern matching. Results are heuristic and only fill gaps left by
// the LLM analysis.
package extract

import (
	"regexp"
	"strings"

	"call-intake/internal/lead"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Attributes are the caller profile fields derivable from a transcript.
// Every field is either a real value or lead.Unknown.
type Attributes struct {
	Name     string `json:"name"`
	Course   string `json:"course"`
	City     string `json:"city"`
	State    string `json:"state"`
	UserType string `json:"userType"`
}

// UnknownAttributes returns Attributes with every field set to lead.Unknown.
func UnknownAttributes() Attributes {
	return Attributes{
		Name:     lead.Unknown,
		Course:   lead.Unknown,
		City:     lead.Unknown,
		State:    lead.Unknown,
		UserType: lead.Unknown,
	}
}

var (
	speakerRegex   = regexp.MustCompile(`^\s*([A-Za-z]+)\s*:\s*(.*)$`)
	nameRegex      = regexp.MustCompile(`(?i)\bmy name is\s+([a-z][a-z' -]*?)(?:\s+and\b|[.,!?;]|$)`)
	courseRegex    = regexp.MustCompile(`(?i)\binterested in\s+(?:the\s+|a\s+|an\s+)?([a-z0-9][a-z0-9 &+/-]*?)\s+course\b`)
	cityStateRegex = regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+)?),\s*([A-Z][a-z]+(?: [A-Z][a-z]+)?)\b`)
	locatedRegex   = regexp.MustCompile(`(?i)\blocated in\s+([a-z][a-z ]*?)\s*(?:[.,!?;]|$)`)

	userTypeRegexes = compileUserTypes(lead.UserTypes)
)

// callerSpeakers are the transcript prefixes used for the human side of a call.
var callerSpeakers = map[string]bool{
	"user":     true,
	"customer": true,
	"caller":   true,
}

// interjections are capitalised words that commonly open a sentence followed
// by a comma and would otherwise read as a "City, State" pair.
var interjections = map[string]bool{
	"hello": true, "hi": true, "hey": true, "yes": true, "yeah": true,
	"no": true, "ok": true, "okay": true, "sure": true, "thanks": true,
	"well": true, "actually": true, "sorry": true, "sir": true, "madam": true,
}

type userTypePattern struct {
	label string
	re    *regexp.Regexp
}

// selfDescribedTypes only match after a self-description such as "I am an",
// since the bare word is common in ordinary speech ("the other day").
var selfDescribedTypes = map[string]bool{
	lead.UserTypeOther: true,
}

func compileUserTypes(labels []string) []userTypePattern {
	out := make([]userTypePattern, 0, len(labels))
	for _, label := range labels {
		expr := `(?i)\b` + regexp.QuoteMeta(label) + `\b`
		if selfDescribedTypes[label] {
			expr = `(?i)\b(?:i am|i'm|im)\s+(?:an?\s+)?` + regexp.QuoteMeta(label) + `\b`
		}
		out = append(out, userTypePattern{label: label, re: regexp.MustCompile(expr)})
	}
	return out
}

// FromTranscript extracts caller attributes from a speaker-tagged transcript.
// Only lines spoken by the caller are considered.
func FromTranscript(transcript string) Attributes {
	attrs := UnknownAttributes()
	if strings.TrimSpace(transcript) == "" {
		return attrs
	}

	lines := CallerLines(transcript)
	if len(lines) == 0 {
		return attrs
	}
	title := cases.Title(language.English)

	attrs.UserType = matchUserType(lines)
	if name := firstSubmatch(nameRegex, lines); name != "" {
		attrs.Name = title.String(collapseSpaces(name))
	}
	if course := firstSubmatch(courseRegex, lines); course != "" {
		attrs.Course = collapseSpaces(course)
	}
	if city, state := matchCityState(lines); city != "" {
		attrs.City = city
		attrs.State = state
	} else if city := firstSubmatch(locatedRegex, lines); city != "" {
		attrs.City = title.String(collapseSpaces(city))
	}
	return attrs
}

// CallerLines returns the text of each line attributed to the caller, with
// the speaker prefix removed.
func CallerLines(transcript string) []string {
	var out []string
	for _, line := range strings.Split(transcript, "\n") {
		m := speakerRegex.FindStringSubmatch(line)
		if m == nil || !callerSpeakers[strings.ToLower(m[1])] {
			continue
		}
		if text := strings.TrimSpace(m[2]); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func matchUserType(lines []string) string {
	for _, p := range userTypeRegexes {
		for _, line := range lines {
			if p.re.MatchString(line) {
				return p.label
			}
		}
	}
	return lead.Unknown
}

func matchCityState(lines []string) (string, string) {
	for _, line := range lines {
		for _, m := range cityStateRegex.FindAllStringSubmatch(line, -1) {
			if interjections[strings.ToLower(m[1])] || interjections[strings.ToLower(m[2])] {
				continue
			}
			return m[1], m[2]
		}
	}
	return "", ""
}

func firstSubmatch(re *regexp.Regexp, lines []string) string {
	for _, line := range lines {
		if m := re.FindStringSubmatch(line); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
