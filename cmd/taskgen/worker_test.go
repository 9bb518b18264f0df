package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "innerbloom-server/internal/errors"
	"innerbloom-server/internal/messaging"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRunner struct {
	got runner.InteractiveRequest
	out *runner.InteractiveResult
	err error
}

func (s *stubRunner) Run(ctx context.Context, req runner.InteractiveRequest) (*runner.InteractiveResult, error) {
	s.got = req
	return s.out, s.err
}

func TestToInteractiveRequest(t *testing.T) {
	got := toInteractiveRequest(messaging.GenerationRequest{
		RequestID: "r1",
		UserID:    "u1",
		Mode:      "chill",
		Source:    "STATIC",
		DryRun:    true,
		Seed:      9,
		Persist:   true,
	})

	assert.Equal(t, runner.InteractiveRequest{
		UserID:  "u1",
		Mode:    "chill",
		Source:  model.SourceStatic,
		DryRun:  true,
		Seed:    9,
		Persist: true,
	}, got)
}

func TestRequestHandler_AcksFailedGenerations(t *testing.T) {
	stub := &stubRunner{out: &runner.InteractiveResult{Result: &model.GenerationResult{
		Status: model.StatusError,
		Errors: []string{"Expected at least one task in payload"},
	}}}

	err := requestHandler(stub, zap.NewNop())(context.Background(), messaging.GenerationRequest{UserID: "u1"})

	assert.NoError(t, err)
	assert.Equal(t, "u1", stub.got.UserID)
}

func TestRequestHandler_RejectsPersistenceFailures(t *testing.T) {
	stub := &stubRunner{
		out: &runner.InteractiveResult{Result: &model.GenerationResult{Status: model.StatusOK}},
		err: apperrors.Persistence(assert.AnError, "failed to persist generated tasks"),
	}

	err := requestHandler(stub, zap.NewNop())(context.Background(), messaging.GenerationRequest{RequestID: "r9", UserID: "u1"})

	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))
	assert.Contains(t, err.Error(), "request r9")
}

func TestMetricsServer_Health(t *testing.T) {
	srv := newMetricsServer("0")
	rec := httptest.NewRecorder()

	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"generate", "interactive", "worker", "migrate"} {
		assert.True(t, names[want], want)
	}
}
