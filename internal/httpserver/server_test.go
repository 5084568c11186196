package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"call-intake/internal/logging"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNormaliseBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"/":        "",
		"intake":   "/intake",
		"/intake/": "/intake",
		" /a/b/ ":  "/a/b",
	}
	for in, want := range cases {
		assert.Equal(t, want, normaliseBasePath(in), in)
	}
}

func TestRoutesUnderBasePath(t *testing.T) {
	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	s := New(":0", logging.Discard(), nil, Handlers{VoiceWebhook: webhook}, "/intake")

	assert.Equal(t, http.StatusAccepted, serve(s, http.MethodPost, "/intake/api/handler").Code)
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/intake/healthz").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodPost, "/api/handler").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/intakex/healthz").Code)
}

func TestHealthzRejectsPost(t *testing.T) {
	s := New(":0", logging.Discard(), nil, Handlers{}, "")
	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, http.MethodPost, "/healthz").Code)
}

func TestReadyz(t *testing.T) {
	s := New(":0", logging.Discard(), nil, Handlers{}, "")
	s.SetDependencies(Dependencies{
		Store: pingFunc(func(context.Context) error { return nil }),
	})
	rec := serve(s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"store":"ok"}}`, rec.Body.String())

	s.SetDependencies(Dependencies{
		Store: pingFunc(func(context.Context) error { return nil }),
		Redis: pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	})
	rec = serve(s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"store":"ok","redis":"dial tcp: refused"}}`, rec.Body.String())
}
