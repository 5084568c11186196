package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventNestedShape(t *testing.T) {
	body := []byte(`{"message":{"type":"end-of-call-report",
		"analysis":{"summary":"caller wants info"},
		"artifact":{"transcript":"User: hi"},
		"customer":{"sipUri":"sip:919999999999@host"}}}`)

	ev, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, TypeEndOfCallReport, ev.Kind())
	assert.Equal(t, "caller wants info", ev.CallSummary())
	assert.Equal(t, "User: hi", ev.CallTranscript())
	assert.Equal(t, "919999999999", CallerNumber(ev))
}

func TestDecodeEventLegacyFlatShape(t *testing.T) {
	body := []byte(`{"type":"end-of-call-report","summary":"s","transcript":"t",
		"call":{"customer":{"number":"+911234567890"}}}`)

	ev, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, TypeEndOfCallReport, ev.Kind())
	assert.Equal(t, "s", ev.CallSummary())
	assert.Equal(t, "t", ev.CallTranscript())
	assert.Equal(t, "+911234567890", CallerNumber(ev))
}

func TestDecodeEventDoubleEncoded(t *testing.T) {
	body := []byte(`"{\"message\":{\"type\":\"tool-call\",\"toolCall\":{\"name\":\"databasecheck\"}}}"`)

	ev, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, TypeToolCall, ev.Kind())
	tool, ok := ev.Tool()
	require.True(t, ok)
	assert.Equal(t, "databasecheck", tool.FunctionName())
}

func TestDecodeEventErrors(t *testing.T) {
	_, err := DecodeEvent(nil)
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = DecodeEvent([]byte("   "))
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = DecodeEvent([]byte("this is not json"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeEvent([]byte(`"not json inside"`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeEvent([]byte(`{"message":{"type":42}}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeEventNonObjectIsEmpty(t *testing.T) {
	ev, err := DecodeEvent([]byte(`[1,2,3]`))
	require.NoError(t, err)
	assert.Equal(t, "", ev.Kind())
}

func TestToolFromToolCallList(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"message":{"type":"tool-call",
		"toolCallList":[{"id":"call_1","function":{"name":"databaseCheck"}}]}}`))
	require.NoError(t, err)

	tool, ok := ev.Tool()
	require.True(t, ok)
	assert.Equal(t, "call_1", tool.ID)
	assert.Equal(t, "databaseCheck", tool.FunctionName())
}
