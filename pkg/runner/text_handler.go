package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ajayshanks/datagpt/internal/presentation/report"
	"github.com/ajayshanks/datagpt/pkg/domain"
)

// ContentRenderer transforms Markdown before it is printed (e.g. to ANSI).
type ContentRenderer func(string) (string, error)

// TextHandler renders runs as Markdown and reads line commands.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	hint      string
	lines     chan lineResult
	startOnce sync.Once
}

type lineResult struct {
	text string
	err  error
}

// TextHandlerOption configures a TextHandler.
type TextHandlerOption func(*TextHandler)

// WithRenderer configures the content renderer.
func WithRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Reader: bufio.NewReader(r), Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// pump reads lines in the background so Input can honor ctx.
func (h *TextHandler) pump() {
	defer close(h.lines)
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.lines <- lineResult{text: text}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.lines <- lineResult{err: err}
			}
			return
		}
	}
}

func (h *TextHandler) Render(ctx context.Context, v domain.View) error {
	out := report.Markdown(v)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(out); err == nil {
			out = rendered
		}
	}
	h.hint = Hint(v)
	_, err := fmt.Fprintln(h.Writer, strings.TrimRight(out, "\n"))
	return err
}

func (h *TextHandler) Input(ctx context.Context) (Command, error) {
	h.startOnce.Do(func() {
		h.lines = make(chan lineResult)
		go h.pump()
	})

	for {
		if err := ctx.Err(); err != nil {
			return Command{}, err
		}
		if h.hint != "" {
			fmt.Fprintf(h.Writer, "(%s)\n", h.hint)
		}
		fmt.Fprint(h.Writer, "> ")

		select {
		case <-ctx.Done():
			return Command{}, ctx.Err()
		case res, ok := <-h.lines:
			if !ok {
				return Command{}, io.EOF
			}
			if res.err != nil {
				return Command{}, res.err
			}
			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			cmd, err := ParseCommand(clean)
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return cmd, nil
		}
	}
}

func (h *TextHandler) Notify(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.Writer, "[datagpt] %s\n", msg)
	return err
}
