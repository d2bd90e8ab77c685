package domain_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPipelineContext(t *testing.T) {
	c := domain.NewPipelineContext("run-1", 4)

	assert.Equal(t, 1, c.CurrentStage)
	assert.False(t, c.Terminal())
	assert.False(t, c.InFlight())
	assert.Empty(t, c.StageOutputs)
	assert.Empty(t, c.CorrelationTokens)
	assert.NoError(t, c.Validate())
}

func TestPipelineContext_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *domain.PipelineContext)
	}{
		{"pointer below range", func(c *domain.PipelineContext) { c.CurrentStage = 0 }},
		{"pointer above range", func(c *domain.PipelineContext) { c.CurrentStage = 6 }},
		{"missing output behind pointer", func(c *domain.PipelineContext) { c.CurrentStage = 3 }},
		{"orphan token", func(c *domain.PipelineContext) { c.CorrelationTokens[2] = "tok" }},
		{"token for another stage", func(c *domain.PipelineContext) {
			c.Active = &domain.StageRun{Stage: 1, State: domain.StatePolling, Token: "tok"}
			c.CorrelationTokens[2] = "tok"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.NewPipelineContext("run-1", 4)
			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), domain.ErrCorruptContext)
		})
	}

	t.Run("terminal context is valid", func(t *testing.T) {
		c := domain.NewPipelineContext("run-1", 2)
		c.StageOutputs[1] = &domain.StageOutput{Result: &schema.Message{Message: "a"}}
		c.StageOutputs[2] = &domain.StageOutput{Result: &schema.Message{Message: "b"}}
		c.CurrentStage = 3
		assert.True(t, c.Terminal())
		assert.NoError(t, c.Validate())
	})
}

func TestPipelineContext_CloneIsIndependent(t *testing.T) {
	c := domain.NewPipelineContext("run-1", 4)
	c.UserInputs[1] = map[string]any{
		"data_sources": []any{"sales"},
		"nested":       map[string]any{"k": "v"},
	}
	c.Active = &domain.StageRun{Stage: 1, State: domain.StateDispatching}

	clone := c.Clone()
	clone.UserInputs[1]["data_sources"].([]any)[0] = "mutated"
	clone.UserInputs[1]["nested"].(map[string]any)["k"] = "mutated"
	clone.Active.State = domain.StateFailed
	clone.CurrentStage = 2

	assert.Equal(t, "sales", c.UserInputs[1]["data_sources"].([]any)[0])
	assert.Equal(t, "v", c.UserInputs[1]["nested"].(map[string]any)["k"])
	assert.Equal(t, domain.StateDispatching, c.Active.State)
	assert.Equal(t, 1, c.CurrentStage)
}

func TestPipelineContext_JSONRoundTrip(t *testing.T) {
	c := domain.NewPipelineContext("run-1", 4)
	c.UserInputs[1] = map[string]any{"use_case": "Churn"}
	c.StageOutputs[1] = &domain.StageOutput{
		Result:      &schema.Message{Message: "accepted"},
		Origin:      domain.StateCompleted,
		Fingerprint: 42,
		CompletedAt: time.Unix(1700000000, 0).UTC(),
	}
	c.StageOutputs[2] = &domain.StageOutput{
		Result:   &schema.Rows{Data: []map[string]any{{"source": "sales"}}},
		Fallback: true,
		Origin:   domain.StateTimedOut,
		Reason:   "stage timed out",
	}
	c.CurrentStage = 3
	c.Active = &domain.StageRun{Stage: 3, Name: "generate_queries", State: domain.StatePolling, Token: "tok"}
	c.CorrelationTokens[3] = "tok"

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var restored domain.PipelineContext
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, 3, restored.CurrentStage)
	assert.Equal(t, "Churn", restored.UserInputs[1]["use_case"])
	assert.Equal(t, "tok", restored.CorrelationTokens[3])
	require.NotNil(t, restored.Active)
	assert.Equal(t, domain.StatePolling, restored.Active.State)

	first, ok := restored.Output(1)
	require.True(t, ok)
	assert.Equal(t, &schema.Message{Message: "accepted"}, first.Result)
	assert.Equal(t, uint64(42), first.Fingerprint)

	second, ok := restored.Output(2)
	require.True(t, ok)
	assert.True(t, second.Fallback)
	assert.Equal(t, domain.StateTimedOut, second.Origin)
	assert.IsType(t, &schema.Rows{}, second.Result)
	assert.NoError(t, restored.Validate())
}

func TestStageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&domain.StageError{Kind: domain.ErrTransport, Stage: "profile_sources", Err: cause})

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, domain.ErrSchema)
	assert.True(t, domain.IsRecoverable(err))
	assert.Equal(t, "stage profile_sources: transport error: connection refused", err.Error())

	status := &domain.StageError{Kind: domain.ErrRemoteStatus, Stage: "generate_queries", StatusCode: 500}
	assert.Equal(t, "stage generate_queries: remote status error (status 500)", status.Error())
}

func TestPayloadError(t *testing.T) {
	err := error(&domain.PayloadError{Stage: "generate_insights", Err: domain.ErrReadAhead})

	assert.ErrorIs(t, err, domain.ErrReadAhead)
	assert.False(t, domain.IsRecoverable(err))

	var pe *domain.PayloadError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "generate_insights", pe.Stage)
}

func TestStageState(t *testing.T) {
	for _, s := range []domain.StageState{domain.StateCompleted, domain.StateFailed, domain.StateTimedOut} {
		assert.True(t, s.Terminal(), s)
		assert.False(t, s.InFlight(), s)
	}
	for _, s := range []domain.StageState{domain.StateDispatching, domain.StateAwaitingToken, domain.StatePolling} {
		assert.False(t, s.Terminal(), s)
		assert.True(t, s.InFlight(), s)
	}
	assert.False(t, domain.StateIdle.Terminal())
	assert.False(t, domain.StateIdle.InFlight())
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnDispatch: func(_ context.Context, _ *domain.StageEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, _ *domain.StageEvent) { calls = append(calls, "b") },
		OnPoll:     func(_ context.Context, _ *domain.PollEvent) { calls = append(calls, "poll") },
	}

	merged := a.Merge(b)
	merged.OnDispatch(context.Background(), &domain.StageEvent{})
	merged.OnPoll(context.Background(), &domain.PollEvent{})

	assert.Equal(t, []string{"a", "b", "poll"}, calls)
	assert.Nil(t, merged.OnNavigate)
}
