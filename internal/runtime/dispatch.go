package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/ajayshanks/datagpt/pkg/stages"
)

// DispatchOutcome is the terminal shape of one Dispatch call.
type DispatchOutcome int

const (
	DispatchFailed DispatchOutcome = iota
	DispatchCompleted
	DispatchSubmitted
)

// DispatchResult is what a stage call produced. Exactly one of Result, Token
// or Err is set, matching Outcome.
type DispatchResult struct {
	Outcome DispatchOutcome
	Result  schema.Result
	Token   string
	Err     error
}

type submitReply struct {
	UniqueID string `json:"uniqueID"`
}

// Dispatch performs the remote call for a stage. Sync stages are decoded
// against the stage schema; async stages must answer with a correlation token.
// It never polls and never touches the context.
func (e *Engine) Dispatch(ctx context.Context, def stages.Definition, payload *stages.Payload) DispatchResult {
	reply, err := e.handler.Invoke(ctx, ports.StageCall{
		Stage:    def.Name,
		Endpoint: def.Endpoint,
		Body:     payload.Body,
	})
	if err != nil {
		return failed(&domain.StageError{Kind: domain.ErrTransport, Stage: def.Name, Err: err})
	}
	if reply == nil {
		return failed(&domain.StageError{Kind: domain.ErrTransport, Stage: def.Name, Err: errors.New("empty reply")})
	}
	if !reply.OK() {
		return failed(&domain.StageError{
			Kind:       domain.ErrRemoteStatus,
			Stage:      def.Name,
			StatusCode: reply.StatusCode,
			Err:        bodyError(reply.Body),
		})
	}

	if def.Mode == domain.ModeAsync {
		var sub submitReply
		if err := json.Unmarshal(reply.Body, &sub); err != nil {
			return failed(&domain.StageError{Kind: domain.ErrTokenMissing, Stage: def.Name, Err: err})
		}
		if strings.TrimSpace(sub.UniqueID) == "" {
			return failed(&domain.StageError{Kind: domain.ErrTokenMissing, Stage: def.Name})
		}
		return DispatchResult{Outcome: DispatchSubmitted, Token: sub.UniqueID}
	}

	res, err := def.Schema.Decode(reply.Body)
	if err != nil {
		return failed(&domain.StageError{Kind: domain.ErrSchema, Stage: def.Name, Err: err})
	}
	return DispatchResult{Outcome: DispatchCompleted, Result: res}
}

func failed(err error) DispatchResult {
	return DispatchResult{Outcome: DispatchFailed, Err: err}
}

// bodyError keeps a short excerpt of an error body for diagnostics.
func bodyError(body []byte) error {
	const max = 200
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}
	if len(text) > max {
		text = text[:max] + "..."
	}
	return errors.New(text)
}
