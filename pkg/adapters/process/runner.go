// Package process runs stages as local commands instead of remote services.
//
// The payload is written to the command's stdin and its stdout becomes the
// reply body, so a script can stand in for any stage service during
// development. Only commands registered for a stage name may run.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"

	"github.com/ajayshanks/datagpt/pkg/ports"
)

// Env variables set on every command.
const (
	EnvStage    = "DATAGPT_STAGE"
	EnvEndpoint = "DATAGPT_ENDPOINT"
)

// Handler implements ports.StageHandler by executing registered commands.
type Handler struct {
	registry map[string]CommandConfig
	baseDir  string
	fallback ports.StageHandler
}

// Option configures the handler.
type Option func(*Handler)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(commands map[string]CommandConfig) Option {
	return func(h *Handler) {
		for stage, c := range commands {
			c.Stage = stage
			h.registry[stage] = c
		}
	}
}

// WithBaseDir sets the working directory for executed commands.
func WithBaseDir(dir string) Option {
	return func(h *Handler) {
		h.baseDir = dir
	}
}

// WithFallback routes stages without a registered command to next.
func WithFallback(next ports.StageHandler) Option {
	return func(h *Handler) {
		h.fallback = next
	}
}

// NewHandler creates a process handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{registry: make(map[string]CommandConfig)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a trusted command for stage.
func (h *Handler) Register(stage, command string, args ...string) {
	h.registry[stage] = CommandConfig{Stage: stage, Command: command, Args: args}
}

// Invoke runs the command registered for call.Stage. A zero exit is a 200
// reply carrying stdout; a non-zero exit is a 500 reply carrying stderr.
// Unregistered stages answer 404 unless a fallback handler is set.
func (h *Handler) Invoke(ctx context.Context, call ports.StageCall) (*ports.StageReply, error) {
	c, ok := h.registry[call.Stage]
	if !ok {
		if h.fallback != nil {
			return h.fallback.Invoke(ctx, call)
		}
		return &ports.StageReply{
			StatusCode: http.StatusNotFound,
			Body:       fmt.Appendf(nil, "no command registered for stage %s", call.Stage),
		}, nil
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = h.baseDir
	cmd.Env = append(cmd.Environ(),
		EnvStage+"="+call.Stage,
		EnvEndpoint+"="+call.Endpoint,
	)
	for k, v := range c.Environment {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(call.Body)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// The command never started.
			return nil, fmt.Errorf("run %s: %w", c.Command, err)
		}
		body := stderr.Bytes()
		if len(bytes.TrimSpace(body)) == 0 {
			body = []byte(err.Error())
		}
		return &ports.StageReply{StatusCode: http.StatusInternalServerError, Body: body}, nil
	}
	return &ports.StageReply{StatusCode: http.StatusOK, Body: stdout.Bytes()}, nil
}
