package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/prism/pkg/telemetry/health"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func metricsStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "prism_translations_total 1\n")
	})
}

func TestHandler_Routes(t *testing.T) {
	checker := health.New(time.Second)
	checker.Register("bundle", func(context.Context) error { return errors.New("no bundle loaded") })

	srv := New(Config{MetricsPath: "/m"}, metricsStub(), checker, quietLogger())
	h := srv.Handler()

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/m", http.StatusOK, "prism_translations_total"},
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/readyz", http.StatusServiceUnavailable, "no bundle loaded"},
		{"/metrics", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Contains(t, sb.String(), "status=418")
	assert.Contains(t, sb.String(), "path=/readyz")
}

func TestStartAndShutdown(t *testing.T) {
	srv := New(Config{ListenAddress: "127.0.0.1:0"}, metricsStub(), health.New(time.Second), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, srv.IsRunning, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Error(t, srv.Start(ctx), "second Start should fail")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	assert.False(t, srv.IsRunning())
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestStart_ListenError(t *testing.T) {
	srv := New(Config{ListenAddress: "256.0.0.1:bad"}, nil, nil, quietLogger())
	assert.Error(t, srv.Start(context.Background()))
	assert.False(t, srv.IsRunning())
}
