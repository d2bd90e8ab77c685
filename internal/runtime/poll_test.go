package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestEngine_Poll(t *testing.T) {
	const token = "abc-123"
	step := "profile_sources"

	tests := []struct {
		name     string
		setup    func(r *MockResults)
		run      func(f *fixture) *domain.StageRun
		want     PollOutcome
		queried  bool
		wantKind error
		check    func(t *testing.T, res PollResult)
	}{
		{
			name: "pending",
			setup: func(r *MockResults) {
				r.On("Status", mock.Anything, token, step).Return(domain.ResultPending, nil).Once()
			},
			want:    PollPending,
			queried: true,
		},
		{
			name: "completed",
			setup: func(r *MockResults) {
				r.On("Status", mock.Anything, token, step).Return(domain.ResultCompleted, nil).Once()
				r.On("Fetch", mock.Anything, token, step).Return([]byte(`{"data":[{"source":"a"}]}`), nil).Once()
			},
			want:    PollCompleted,
			queried: true,
			check: func(t *testing.T, res PollResult) {
				assert.Equal(t, &schema.Rows{Data: []map[string]any{{"source": "a"}}}, res.Result)
			},
		},
		{
			name: "store reports error",
			setup: func(r *MockResults) {
				r.On("Status", mock.Anything, token, step).Return(domain.ResultError, nil).Once()
			},
			want:     PollFailed,
			queried:  true,
			wantKind: domain.ErrRemoteStatus,
		},
		{
			name: "unknown status",
			setup: func(r *MockResults) {
				r.On("Status", mock.Anything, token, step).Return(domain.ResultStatus("RUNNING"), nil).Once()
			},
			want:     PollFailed,
			queried:  true,
			wantKind: domain.ErrRemoteStatus,
		},
		{
			name: "completed row does not match schema",
			setup: func(r *MockResults) {
				r.On("Status", mock.Anything, token, step).Return(domain.ResultCompleted, nil).Once()
				r.On("Fetch", mock.Anything, token, step).Return([]byte(`{"rows":[]}`), nil).Once()
			},
			want:     PollFailed,
			queried:  true,
			wantKind: domain.ErrSchema,
		},
		{
			name: "transient status error is pending",
			setup: func(r *MockResults) {
				r.On("Status", mock.Anything, token, step).Return(domain.ResultStatus(""), errors.New("connection reset")).Once()
			},
			want:    PollPending,
			queried: true,
			check: func(t *testing.T, res PollResult) {
				assert.EqualError(t, res.Err, "connection reset")
			},
		},
		{
			name: "row missing on fetch is pending",
			setup: func(r *MockResults) {
				r.On("Status", mock.Anything, token, step).Return(domain.ResultCompleted, nil).Once()
				r.On("Fetch", mock.Anything, token, step).Return(nil, ports.ErrResultNotFound).Once()
			},
			want:    PollPending,
			queried: true,
			check: func(t *testing.T, res PollResult) {
				assert.NoError(t, res.Err)
			},
		},
		{
			name: "row not written yet is pending without error",
			setup: func(r *MockResults) {
				r.On("Status", mock.Anything, token, step).Return(domain.ResultStatus(""), ports.ErrResultNotFound).Once()
			},
			want:    PollPending,
			queried: true,
			check: func(t *testing.T, res PollResult) {
				assert.NoError(t, res.Err)
			},
		},
		{
			name: "before next poll the store is not queried",
			run: func(f *fixture) *domain.StageRun {
				now := f.clock.Now()
				return &domain.StageRun{Token: token, StartedAt: now, NextPollAt: now.Add(testInterval)}
			},
			want: PollPending,
		},
		{
			name: "deadline wins over the store",
			run: func(f *fixture) *domain.StageRun {
				return &domain.StageRun{Token: token, StartedAt: f.clock.Now().Add(-testMaxWait)}
			},
			want:     PollTimedOut,
			wantKind: domain.ErrTimeout,
		},
		{
			name: "no token",
			run: func(f *fixture) *domain.StageRun {
				return &domain.StageRun{StartedAt: f.clock.Now()}
			},
			want:     PollFailed,
			wantKind: domain.ErrTokenMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f.results)
			}
			run := &domain.StageRun{Token: token, StartedAt: f.clock.Now(), NextPollAt: f.clock.Now()}
			if tt.run != nil {
				run = tt.run(f)
			}
			before := *run
			def, _ := f.engine.Table().Get(2)

			res := f.engine.Poll(context.Background(), def, run, f.clock.Now())

			assert.Equal(t, tt.want, res.Outcome, "outcome %s", res.Outcome)
			assert.Equal(t, tt.queried, res.Queried)
			if tt.wantKind != nil {
				assert.ErrorIs(t, res.Err, tt.wantKind)
			}
			if tt.check != nil {
				tt.check(t, res)
			}
			assert.Equal(t, before, *run, "poll must not modify the attempt")
			f.results.AssertExpectations(t)
			if tt.setup == nil {
				f.results.AssertNotCalled(t, "Status", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestEngine_PollWithoutStore(t *testing.T) {
	f := newFixture(t)
	engine := NewEngine(f.engine.Table(), f.handler, nil, WithClock(f.clock.Now))
	def, _ := engine.Table().Get(2)
	run := &domain.StageRun{Token: "t", StartedAt: f.clock.Now()}

	res := engine.Poll(context.Background(), def, run, f.clock.Now())

	assert.Equal(t, PollFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrTransport)
}
