package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNumber(t *testing.T) {
	cases := map[string]string{
		"sip:919999999999@host":                 "919999999999",
		"sip:91888@h":                           "91888",
		"sip:+911234567890@sip.example.com:5060": "+911234567890",
		"sips:4155550100@voice.example.org":     "4155550100",
		"+911234567890":                         "+911234567890",
		"919999999999":                          "919999999999",
		"  9876543210 ":                         "9876543210",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeNumber(in), "input %q", in)
	}
}

func TestCallerNumberPrecedence(t *testing.T) {
	all := &Event{Message: &Message{
		Customer: &Customer{SipURI: "sip:111@a", Number: "444"},
		Call:     &Call{Customer: &Customer{Number: "222", SipURI: "sip:333@b"}},
	}}
	assert.Equal(t, "111", CallerNumber(all))

	all.Message.Customer.SipURI = ""
	assert.Equal(t, "222", CallerNumber(all))

	all.Message.Call.Customer.Number = ""
	assert.Equal(t, "333", CallerNumber(all))

	all.Message.Call.Customer.SipURI = ""
	assert.Equal(t, "444", CallerNumber(all))

	all.Message.Customer.Number = ""
	assert.Equal(t, "", CallerNumber(all))
}

func TestCallerNumberMissingObjects(t *testing.T) {
	assert.Equal(t, "", CallerNumber(nil))
	assert.Equal(t, "", CallerNumber(&Event{}))
	assert.Equal(t, "", CallerNumber(&Event{Message: &Message{Type: TypeEndOfCallReport}}))
}
