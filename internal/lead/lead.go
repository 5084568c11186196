// Package lead holds the closed vocabularies shared by the extraction,
// analysis, storage and CRM layers.
package lead

import "slices"

// Placeholder values meaning "not determined".
const (
	Unknown   = "Unknown"
	NA        = "N/A"
	Uncertain = "Uncertain"
)

// CallStatuses lists every call status the analyzer may report.
var CallStatuses = []string{
	"Connected-IB",
	"Connected-OB",
	"No Answer",
	"Switched off",
	"Out of service",
	"Not reachable",
	"Call disconnected by customer",
	"Busy",
	"Visited Center",
}

// LeadStatuses lists every lead status the analyzer may report. Uncertain is
// intentionally absent.
var LeadStatuses = []string{
	"Interested",
	"Not Interested",
	"Interested In Future",
	"Call Back",
	"Call Back In Evening",
	"Call Disconnected By Customer",
	"Booked",
	"Enquiry For Tools",
	"Enquiry For Job",
	"Enquiry For Franchise",
	"Busy",
	"Applicant Not Available",
}

// UserTypeOther is the catch-all caller category.
const UserTypeOther = "Other"

// UserTypes lists the caller categories. Other stays last so that more
// specific literals win when scanning free text.
var UserTypes = []string{
	"Student",
	"Guardian",
	"Employee",
	"Garage Owner",
	"Unemployed",
	UserTypeOther,
}

// DefaultCallStatus is reported when the analyzer could not classify a call.
const DefaultCallStatus = "Connected-IB"

// IsSentinel reports whether v is one of the placeholder values.
func IsSentinel(v string) bool {
	switch v {
	case Unknown, NA, Uncertain:
		return true
	}
	return false
}

// Known reports whether v carries a real value.
func Known(v string) bool {
	return v != "" && !IsSentinel(v)
}

// ValidCallStatus reports whether v is in CallStatuses.
func ValidCallStatus(v string) bool { return slices.Contains(CallStatuses, v) }

// ValidLeadStatus reports whether v is in LeadStatuses.
func ValidLeadStatus(v string) bool { return slices.Contains(LeadStatuses, v) }

// ValidUserType reports whether v is in UserTypes.
func ValidUserType(v string) bool { return slices.Contains(UserTypes, v) }

// OrUnknown returns v, or Unknown when v is empty.
func OrUnknown(v string) string {
	if v == "" {
		return Unknown
	}
	return v
}

// Prefer returns primary when it carries a real value, otherwise fallback.
// The result is never empty.
func Prefer(primary, fallback string) string {
	if Known(primary) {
		return primary
	}
	return OrUnknown(fallback)
}
