package repo

import (
	"time"

	"call-intake/internal/lead"
)

// Profile holds the caller attributes kept at the top level of a record.
type Profile struct {
	Name     string `json:"name" bson:"name"`
	Course   string `json:"course" bson:"course"`
	City     string `json:"city" bson:"city"`
	State    string `json:"state" bson:"state"`
	UserType string `json:"userType" bson:"userType"`
}

// fields returns the profile as column name / value pairs in a fixed order.
func (p Profile) fields() []profileField {
	return []profileField{
		{column: "name", key: "name", value: lead.OrUnknown(p.Name)},
		{column: "course", key: "course", value: lead.OrUnknown(p.Course)},
		{column: "city", key: "city", value: lead.OrUnknown(p.City)},
		{column: "state", key: "state", value: lead.OrUnknown(p.State)},
		{column: "user_type", key: "userType", value: lead.OrUnknown(p.UserType)},
	}
}

type profileField struct {
	column string
	key    string
	value  string
}

// CallEntry is one element of a caller's append-only call history.
type CallEntry struct {
	ID           string    `json:"id" bson:"id"`
	Date         time.Time `json:"date" bson:"date"`
	Summary      string    `json:"summary" bson:"summary"`
	CallStatus   string    `json:"callStatus" bson:"callStatus"`
	LeadStatus   string    `json:"leadStatus" bson:"leadStatus"`
	Remark       string    `json:"remark" bson:"remark"`
	FollowUpDate string    `json:"followUpDate" bson:"followUpDate"`
	FollowUpTime string    `json:"followUpTime" bson:"followUpTime"`
	Transcript   string    `json:"transcript" bson:"transcript"`
}

// Caller is the single persisted record per normalized phone number.
type Caller struct {
	ID          string      `json:"id" bson:"_id"`
	PhoneNumber string      `json:"phoneNumber" bson:"phoneNumber"`
	Profile     `bson:",inline"`
	Calls       []CallEntry `json:"calls" bson:"calls"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// LatestCall returns the most recent history entry.
func (c *Caller) LatestCall() (CallEntry, bool) {
	if c == nil || len(c.Calls) == 0 {
		return CallEntry{}, false
	}
	return c.Calls[len(c.Calls)-1], true
}

// IsNew reports whether the record was created by the call that produced it.
// History is append-only, so a record with a single entry was just created.
func (c *Caller) IsNew() bool {
	return c != nil && len(c.Calls) == 1
}

// CallerUpdate is the input of an upsert: the caller identity, the profile
// observed during this call and the call entry to append.
type CallerUpdate struct {
	PhoneNumber string
	Profile     Profile
	Call        CallEntry
	At          time.Time
}
