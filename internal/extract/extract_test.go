package extract

import (
	"testing"

	"call-intake/internal/lead"

	"github.com/stretchr/testify/assert"
)

func TestFromTranscriptEmpty(t *testing.T) {
	assert.Equal(t, UnknownAttributes(), FromTranscript(""))
	assert.Equal(t, UnknownAttributes(), FromTranscript("   \n  "))
}

func TestFromTranscriptName(t *testing.T) {
	attrs := FromTranscript("User: my name is Asha.")
	assert.Equal(t, "Asha", attrs.Name)
	assert.Equal(t, lead.Unknown, attrs.Course)
	assert.Equal(t, lead.Unknown, attrs.City)
	assert.Equal(t, lead.Unknown, attrs.State)
	assert.Equal(t, lead.Unknown, attrs.UserType)
}

func TestFromTranscriptFullConversation(t *testing.T) {
	transcript := `Assistant: Hello, thanks for calling. May I know your name?
User: Hi, my name is ravi kumar and I am a student.
Assistant: Which course are you looking for?
User: I am interested in the automobile mechanic course.
Assistant: Where are you from?
User: I live in Pune, Maharashtra.`

	attrs := FromTranscript(transcript)
	assert.Equal(t, "Ravi Kumar", attrs.Name)
	assert.Equal(t, "automobile mechanic", attrs.Course)
	assert.Equal(t, "Pune", attrs.City)
	assert.Equal(t, "Maharashtra", attrs.State)
	assert.Equal(t, "Student", attrs.UserType)
}

func TestFromTranscriptIgnoresAssistantLines(t *testing.T) {
	transcript := `Assistant: My name is Priya, I work for the institute in Pune, Maharashtra.
Assistant: Are you a student or a guardian?
User: Okay.`

	assert.Equal(t, UnknownAttributes(), FromTranscript(transcript))
}

func TestFromTranscriptLocatedInFallback(t *testing.T) {
	attrs := FromTranscript("User: we are located in navi mumbai.")
	assert.Equal(t, "Navi Mumbai", attrs.City)
	assert.Equal(t, lead.Unknown, attrs.State)
}

func TestFromTranscriptSkipsInterjectionPairs(t *testing.T) {
	attrs := FromTranscript("User: Yes, Sure. I am located in nagpur.")
	assert.Equal(t, "Nagpur", attrs.City)
	assert.Equal(t, lead.Unknown, attrs.State)
}

func TestFromTranscriptUserTypeTitleCase(t *testing.T) {
	attrs := FromTranscript("Customer: I run a GARAGE OWNER association, I'm a garage owner")
	assert.Equal(t, "Garage Owner", attrs.UserType)
}

func TestFromTranscriptOtherNeedsSelfDescription(t *testing.T) {
	attrs := FromTranscript("User: I called the other day about the course.")
	assert.Equal(t, lead.Unknown, attrs.UserType)

	attrs = FromTranscript("User: on the other hand, fees matter")
	assert.Equal(t, lead.Unknown, attrs.UserType)

	attrs = FromTranscript("User: I'm other, just asking for a friend")
	assert.Equal(t, lead.UserTypeOther, attrs.UserType)

	attrs = FromTranscript("Caller: I am an other category applicant")
	assert.Equal(t, lead.UserTypeOther, attrs.UserType)

	attrs = FromTranscript("User: the other day my son, a student, asked")
	assert.Equal(t, "Student", attrs.UserType)
}

func TestCallerLines(t *testing.T) {
	lines := CallerLines("AI: hi\nuser:  first \nCustomer: second\nnoise\nUser:")
	assert.Equal(t, []string{"first", "second"}, lines)
}
