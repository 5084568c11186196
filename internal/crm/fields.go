package crm

import (
	"time"

	"call-intake/internal/lead"
	"call-intake/internal/repo"
)

// Sanitize maps placeholder values to the empty string. The CRM treats an
// empty field as "not provided" but stores placeholders literally.
func Sanitize(v string) string {
	if lead.IsSentinel(v) {
		return ""
	}
	return v
}

// Field is one external key/value pair of a savecontact request.
type Field struct {
	Key   string
	Value string
}

// External field names of the savecontact contract.
const (
	FieldAuthCode     = "auth_code"
	FieldContactNum   = "contact_num"
	FieldName         = "name"
	FieldCourse       = "course"
	FieldCity         = "city"
	FieldState        = "state"
	FieldUserType     = "user_type"
	FieldCallStatus   = "call_status"
	FieldLeadStatus   = "lead_status"
	FieldRemark       = "remark"
	FieldFollowUpDate = "follow_up_date"
	FieldFollowUpTime = "follow_up_time"
	FieldCallSummary  = "call_summary"
	FieldCallDate     = "call_date"
)

const callDateLayout = "2006-01-02"

// FieldMap flattens the profile and the latest call of c into the sanitized
// external field set, in a fixed order. The auth code is not included.
func FieldMap(c *repo.Caller, loc *time.Location) []Field {
	latest, _ := c.LatestCall()
	if loc == nil {
		loc = time.UTC
	}
	callDate := ""
	if !latest.Date.IsZero() {
		callDate = latest.Date.In(loc).Format(callDateLayout)
	}
	return []Field{
		{FieldContactNum, c.PhoneNumber},
		{FieldName, Sanitize(c.Name)},
		{FieldCourse, Sanitize(c.Course)},
		{FieldCity, Sanitize(c.City)},
		{FieldState, Sanitize(c.State)},
		{FieldUserType, Sanitize(c.UserType)},
		{FieldCallStatus, Sanitize(latest.CallStatus)},
		{FieldLeadStatus, Sanitize(latest.LeadStatus)},
		{FieldRemark, Sanitize(latest.Remark)},
		{FieldFollowUpDate, Sanitize(latest.FollowUpDate)},
		{FieldFollowUpTime, Sanitize(latest.FollowUpTime)},
		{FieldCallSummary, Sanitize(latest.Summary)},
		{FieldCallDate, callDate},
	}
}
