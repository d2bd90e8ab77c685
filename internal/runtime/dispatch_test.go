package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/ajayshanks/datagpt/pkg/stages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEngine_Dispatch(t *testing.T) {
	payload := &stages.Payload{Body: []byte(`{"k":"v"}`)}

	tests := []struct {
		name     string
		stage    int
		reply    *ports.StageReply
		err      error
		want     DispatchOutcome
		wantKind error
		check    func(t *testing.T, res DispatchResult)
	}{
		{
			name:  "sync success",
			stage: 1,
			reply: &ports.StageReply{StatusCode: 200, Body: []byte(`{"message":"ok"}`)},
			want:  DispatchCompleted,
			check: func(t *testing.T, res DispatchResult) {
				assert.Equal(t, &schema.Message{Message: "ok"}, res.Result)
			},
		},
		{
			name:     "transport error",
			stage:    1,
			err:      errors.New("connection refused"),
			want:     DispatchFailed,
			wantKind: domain.ErrTransport,
		},
		{
			name:     "non-success status",
			stage:    1,
			reply:    &ports.StageReply{StatusCode: 500, Body: []byte("boom")},
			want:     DispatchFailed,
			wantKind: domain.ErrRemoteStatus,
			check: func(t *testing.T, res DispatchResult) {
				var se *domain.StageError
				require.ErrorAs(t, res.Err, &se)
				assert.Equal(t, 500, se.StatusCode)
				assert.Contains(t, se.Error(), "boom")
			},
		},
		{
			name:     "sync body does not match schema",
			stage:    1,
			reply:    &ports.StageReply{StatusCode: 200, Body: []byte(`{"msg":"ok"}`)},
			want:     DispatchFailed,
			wantKind: domain.ErrSchema,
		},
		{
			name:     "sync body is not json",
			stage:    4,
			reply:    &ports.StageReply{StatusCode: 200, Body: []byte(`<html>`)},
			want:     DispatchFailed,
			wantKind: domain.ErrSchema,
		},
		{
			name:  "async submit",
			stage: 2,
			reply: &ports.StageReply{StatusCode: 200, Body: []byte(`{"uniqueID":"abc-123"}`)},
			want:  DispatchSubmitted,
			check: func(t *testing.T, res DispatchResult) {
				assert.Equal(t, "abc-123", res.Token)
				assert.Nil(t, res.Result)
			},
		},
		{
			name:     "async submit without token",
			stage:    2,
			reply:    &ports.StageReply{StatusCode: 200, Body: []byte(`{"status":"queued"}`)},
			want:     DispatchFailed,
			wantKind: domain.ErrTokenMissing,
		},
		{
			name:     "async submit with blank token",
			stage:    3,
			reply:    &ports.StageReply{StatusCode: 200, Body: []byte(`{"uniqueID":"  "}`)},
			want:     DispatchFailed,
			wantKind: domain.ErrTokenMissing,
		},
		{
			name:     "async submit with garbage body",
			stage:    3,
			reply:    &ports.StageReply{StatusCode: 200, Body: []byte(`nope`)},
			want:     DispatchFailed,
			wantKind: domain.ErrTokenMissing,
		},
		{
			name:     "async submit rejected",
			stage:    3,
			reply:    &ports.StageReply{StatusCode: 500},
			want:     DispatchFailed,
			wantKind: domain.ErrRemoteStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			def, _ := f.engine.Table().Get(tt.stage)
			f.handler.On("Invoke", mock.Anything, ports.StageCall{
				Stage:    def.Name,
				Endpoint: def.Endpoint,
				Body:     payload.Body,
			}).Return(tt.reply, tt.err).Once()

			res := f.engine.Dispatch(context.Background(), def, payload)

			assert.Equal(t, tt.want, res.Outcome)
			if tt.wantKind != nil {
				assert.ErrorIs(t, res.Err, tt.wantKind)
				assert.True(t, domain.IsRecoverable(res.Err))
			} else {
				assert.NoError(t, res.Err)
			}
			if tt.check != nil {
				tt.check(t, res)
			}
			f.handler.AssertExpectations(t)
		})
	}
}
