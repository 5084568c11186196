package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"call-intake/internal/logging"
	"call-intake/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCaller() *repo.Caller {
	return &repo.Caller{
		PhoneNumber: "919999999999",
		Profile: repo.Profile{
			Name:     "Ravi Kumar",
			Course:   "Unknown",
			City:     "Pune",
			State:    "N/A",
			UserType: "Student",
		},
		Calls: []repo.CallEntry{
			{Summary: "old call", CallStatus: "No Answer", LeadStatus: "Call Back"},
			{
				Date:         time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC),
				Summary:      "caller wants info",
				CallStatus:   "Connected-IB",
				LeadStatus:   "Uncertain",
				Remark:       "wants fee details",
				FollowUpDate: "2026-10-16",
				FollowUpTime: "N/A",
			},
		},
	}
}

func TestSanitize(t *testing.T) {
	for _, v := range []string{"N/A", "Unknown", "Uncertain"} {
		assert.Equal(t, "", Sanitize(v), v)
	}
	for _, v := range []string{"", "Pune", "n/a", "Interested"} {
		assert.Equal(t, v, Sanitize(v), v)
	}
}

func TestFieldMapUsesLatestCall(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	got := map[string]string{}
	for _, f := range FieldMap(testCaller(), loc) {
		got[f.Key] = f.Value
	}

	assert.Equal(t, map[string]string{
		FieldContactNum:   "919999999999",
		FieldName:         "Ravi Kumar",
		FieldCourse:       "",
		FieldCity:         "Pune",
		FieldState:        "",
		FieldUserType:     "Student",
		FieldCallStatus:   "Connected-IB",
		FieldLeadStatus:   "",
		FieldRemark:       "wants fee details",
		FieldFollowUpDate: "2026-10-16",
		FieldFollowUpTime: "",
		FieldCallSummary:  "caller wants info",
		FieldCallDate:     "2026-10-15",
	}, got)
}

func TestSendForm(t *testing.T) {
	var form map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/savecontact", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		form = r.MultipartForm.Value
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, AuthCode: "secret"}, logging.Discard(), nil)
	require.NoError(t, f.Send(context.Background(), testCaller()))

	assert.Equal(t, []string{"secret"}, form[FieldAuthCode])
	assert.Equal(t, []string{"919999999999"}, form[FieldContactNum])
	assert.Equal(t, []string{""}, form[FieldState])
	assert.Equal(t, []string{"caller wants info"}, form[FieldCallSummary])
}

func TestSendJSONCarriesSameFields(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL + "/", AuthCode: "secret", Encoding: EncodingJSON}, logging.Discard(), nil)
	require.NoError(t, f.Send(context.Background(), testCaller()))

	assert.Len(t, payload, 14)
	assert.Equal(t, "secret", payload[FieldAuthCode])
	assert.Equal(t, "", payload[FieldLeadStatus])
	assert.Equal(t, "Pune", payload[FieldCity])
}

func TestSendWithoutAuthCodeSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, AuthCode: "  "}, logging.Discard(), nil)
	err := f.Send(context.Background(), testCaller())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, hits.Load())
}

func TestSendNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid auth code", http.StatusUnauthorized)
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL, AuthCode: "wrong"}, logging.Discard(), nil)
	err := f.Send(context.Background(), testCaller())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
	assert.Contains(t, err.Error(), "invalid auth code")
}
