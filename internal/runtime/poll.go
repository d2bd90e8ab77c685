package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/ajayshanks/datagpt/pkg/stages"
)

// PollOutcome is the result class of one poll check.
type PollOutcome int

const (
	PollPending PollOutcome = iota
	PollCompleted
	PollFailed
	PollTimedOut
)

func (o PollOutcome) String() string {
	switch o {
	case PollPending:
		return "pending"
	case PollCompleted:
		return "completed"
	case PollFailed:
		return "failed"
	case PollTimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("PollOutcome(%d)", int(o))
}

// PollResult is the answer of one poll check.
type PollResult struct {
	Outcome PollOutcome
	Result  schema.Result
	Status  domain.ResultStatus
	// Queried is false when the check returned before touching the store.
	Queried bool
	// Err explains a terminal failure, or the transient error behind a Pending.
	Err error
}

// Poll checks the Result Store once for the attempt run. It is read-only:
// neither the store nor run is modified.
//
// The deadline is checked first, so an attempt past MaxWait times out even
// if the store would have answered. Before run.NextPollAt the store is not
// queried at all.
func (e *Engine) Poll(ctx context.Context, def stages.Definition, run *domain.StageRun, now time.Time) PollResult {
	if run.Token == "" {
		return PollResult{Outcome: PollFailed, Err: &domain.StageError{Kind: domain.ErrTokenMissing, Stage: def.Name}}
	}
	if waited := now.Sub(run.StartedAt); waited >= def.MaxWait {
		return PollResult{Outcome: PollTimedOut, Err: &domain.StageError{
			Kind:  domain.ErrTimeout,
			Stage: def.Name,
			Err:   fmt.Errorf("no result after %s", waited.Truncate(time.Millisecond)),
		}}
	}
	if now.Before(run.NextPollAt) {
		return PollResult{Outcome: PollPending}
	}
	if e.results == nil {
		return PollResult{Outcome: PollFailed, Err: &domain.StageError{
			Kind: domain.ErrTransport, Stage: def.Name, Err: errors.New("no result store configured"),
		}}
	}

	status, err := e.results.Status(ctx, run.Token, def.Name)
	if errors.Is(err, ports.ErrResultNotFound) {
		// The worker has not written its row yet.
		return PollResult{Outcome: PollPending, Queried: true}
	}
	if err != nil {
		return PollResult{Outcome: PollPending, Queried: true, Err: err}
	}

	switch status {
	case domain.ResultPending:
		return PollResult{Outcome: PollPending, Queried: true, Status: status}
	case domain.ResultError:
		return PollResult{Outcome: PollFailed, Queried: true, Status: status, Err: &domain.StageError{
			Kind: domain.ErrRemoteStatus, Stage: def.Name, Err: errors.New("result store reported ERROR"),
		}}
	case domain.ResultCompleted:
		body, err := e.results.Fetch(ctx, run.Token, def.Name)
		if errors.Is(err, ports.ErrResultNotFound) {
			return PollResult{Outcome: PollPending, Queried: true, Status: status}
		}
		if err != nil {
			return PollResult{Outcome: PollPending, Queried: true, Status: status, Err: err}
		}
		res, err := def.Schema.Decode(body)
		if err != nil {
			return PollResult{Outcome: PollFailed, Queried: true, Status: status, Err: &domain.StageError{
				Kind: domain.ErrSchema, Stage: def.Name, Err: err,
			}}
		}
		return PollResult{Outcome: PollCompleted, Queried: true, Status: status, Result: res}
	default:
		return PollResult{Outcome: PollFailed, Queried: true, Status: status, Err: &domain.StageError{
			Kind: domain.ErrRemoteStatus, Stage: def.Name, Err: fmt.Errorf("unknown status %q", status),
		}}
	}
}
