package runner

import (
	"context"
	"strings"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

// IOHandler is how the Runner talks to the user. TextHandler serves
// terminals; JSONHandler serves programs driving the CLI over pipes.
type IOHandler interface {
	// Render presents the run.
	Render(ctx context.Context, v domain.View) error

	// Input reads the next command. io.EOF ends the session.
	Input(ctx context.Context) (Command, error)

	// Notify presents a status line that is not part of the run itself
	// (rejected input, waiting notices).
	Notify(ctx context.Context, msg string) error
}

// Hint lists the commands that make sense for v.
func Hint(v domain.View) string {
	cur := v.Stage(v.CurrentStage)
	switch {
	case v.Complete:
		return "back | reset | quit"
	case cur != nil && cur.State.InFlight():
		return "enter to check again | back | quit"
	case v.CurrentStage == 1:
		return "data_sources=a,b; use_case=...; business_rules=... | enter to run | quit"
	}
	parts := []string{"enter to run", "back"}
	if cur != nil && cur.Output != nil {
		parts = append(parts, "resubmit")
	}
	parts = append(parts, "reset", "quit")
	return strings.Join(parts, " | ")
}
