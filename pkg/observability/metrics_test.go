package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnDispatch(ctx, &domain.StageEvent{Name: "profile_sources", Mode: domain.ModeAsync})
	hooks.OnDispatch(ctx, &domain.StageEvent{Name: "generate_queries", Mode: domain.ModeSync, Err: errors.New("500")})
	hooks.OnPoll(ctx, &domain.PollEvent{Name: "profile_sources", Status: domain.ResultPending})
	hooks.OnPoll(ctx, &domain.PollEvent{Name: "profile_sources", Status: domain.ResultCompleted})
	hooks.OnPoll(ctx, &domain.PollEvent{Name: "profile_sources"})
	hooks.OnStageComplete(ctx, &domain.StageEvent{Name: "profile_sources", State: domain.StateCompleted, Duration: 2 * time.Second})
	hooks.OnStageComplete(ctx, &domain.StageEvent{Name: "generate_queries", State: domain.StateFailed, Fallback: true})
	hooks.OnNavigate(ctx, &domain.NavigationEvent{Action: domain.NavBack})

	expected := `
# HELP datagpt_stage_outcome_total Committed stage outputs, by stage and origin state.
# TYPE datagpt_stage_outcome_total counter
datagpt_stage_outcome_total{fallback="false",origin="completed",stage="profile_sources"} 1
datagpt_stage_outcome_total{fallback="true",origin="failed",stage="generate_queries"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "datagpt_stage_outcome_total"))

	polls, err := testutil.GatherAndCount(reg, "datagpt_stage_poll_total")
	require.NoError(t, err)
	assert.Equal(t, 3, polls, "pending, completed and unknown series")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `datagpt_navigation_total{action="back"} 1`)
	assert.Contains(t, rec.Body.String(), `datagpt_stage_dispatch_total{failed="true",mode="sync",stage="generate_queries"} 1`)
}

func TestNewMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	hooks := observability.LogHooks(logger)
	ctx := context.Background()

	hooks.OnStageEnter(ctx, &domain.StageEvent{Name: "submit_request"})
	assert.Empty(t, buf.String(), "debug events hidden at warn level")

	hooks.OnFallback(ctx, &domain.StageEvent{RunID: "r1", Name: "generate_insights", State: domain.StateTimedOut, Err: domain.ErrTimeout})
	assert.Contains(t, buf.String(), "fallback output")
	assert.Contains(t, buf.String(), "stage=generate_insights")
	assert.Contains(t, buf.String(), "state=timed_out")
}
