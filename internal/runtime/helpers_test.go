package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/stages"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHandler is a scripted Stage Handler.
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Invoke(ctx context.Context, call ports.StageCall) (*ports.StageReply, error) {
	args := m.Called(ctx, call)
	reply, _ := args.Get(0).(*ports.StageReply)
	return reply, args.Error(1)
}

// expect scripts the reply for the next call to stage.
func (m *MockHandler) expect(stage string, code int, body string) *mock.Call {
	return m.On("Invoke", mock.Anything, forStage(stage)).
		Return(&ports.StageReply{StatusCode: code, Body: []byte(body)}, nil).Once()
}

func forStage(stage string) any {
	return mock.MatchedBy(func(c ports.StageCall) bool { return c.Stage == stage })
}

// MockResults is a scripted Result Store.
type MockResults struct {
	mock.Mock
}

func (m *MockResults) Status(ctx context.Context, token, step string) (domain.ResultStatus, error) {
	args := m.Called(ctx, token, step)
	return args.Get(0).(domain.ResultStatus), args.Error(1)
}

func (m *MockResults) Fetch(ctx context.Context, token, step string) ([]byte, error) {
	args := m.Called(ctx, token, step)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

const (
	testInterval = 5 * time.Second
	testMaxWait  = 30 * time.Second
)

type fixture struct {
	engine  *Engine
	handler *MockHandler
	results *MockResults
	clock   *fakeClock
	pc      *domain.PipelineContext
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()
	table, err := stages.DataToInsights(stages.Options{
		BaseURL:      "https://hooks.example.com",
		PollInterval: testInterval,
		MaxWait:      testMaxWait,
	})
	require.NoError(t, err)

	f := &fixture{
		handler: new(MockHandler),
		results: new(MockResults),
		clock:   newFakeClock(),
	}
	opts = append([]EngineOption{WithClock(f.clock.Now)}, opts...)
	f.engine = NewEngine(table, f.handler, f.results, opts...)
	f.pc = f.engine.Start(context.Background(), "run-1")
	return f
}

func scenarioInput() map[string]any {
	return map[string]any{
		"data_sources":   []any{"iqvia_xpo_rx", "zip_territory"},
		"use_case":       "Field Reporting",
		"business_rules": []any{"rule A"},
	}
}

// completeThrough drives stages 1..n to real results.
func (f *fixture) completeThrough(t *testing.T, n int) {
	t.Helper()
	ctx := context.Background()
	steps := []func(){
		func() {
			f.handler.expect(stages.SubmitRequest, 200, `{"message":"ok"}`)
			require.NoError(t, f.engine.Advance(ctx, f.pc, scenarioInput()))
		},
		func() {
			f.asyncCompletes(stages.ProfileSources, "tok-2", `{"data":[{"source":"zip_territory","row_count":12}]}`)
			require.NoError(t, f.engine.Advance(ctx, f.pc, nil))
		},
		func() {
			f.asyncCompletes(stages.GenerateQueries, "tok-3", `{"queries":[{"table":"zip_territory","sql":"SELECT 1"}]}`)
			require.NoError(t, f.engine.Advance(ctx, f.pc, nil))
		},
		func() {
			f.handler.expect(stages.GenerateInsights, 200, `{"insights":[{"title":"t","summary":"s"}]}`)
			require.NoError(t, f.engine.Advance(ctx, f.pc, nil))
		},
	}
	for i := 0; i < n; i++ {
		steps[i]()
		require.Equal(t, i+2, f.pc.CurrentStage, "stage %d did not complete", i+1)
	}
}

// asyncCompletes scripts a submit whose first poll finds the result.
func (f *fixture) asyncCompletes(stage, token, body string) {
	f.handler.expect(stage, 202, `{"uniqueID":"`+token+`"}`)
	f.results.On("Status", mock.Anything, token, stage).Return(domain.ResultCompleted, nil).Once()
	f.results.On("Fetch", mock.Anything, token, stage).Return([]byte(body), nil).Once()
}
