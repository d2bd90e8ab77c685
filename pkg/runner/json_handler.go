package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/ajayshanks/datagpt/pkg/domain"
)

// Message is one JSON line written by JSONHandler.
type Message struct {
	Type    string       `json:"type"` // "view" or "notice"
	View    *domain.View `json:"view,omitempty"`
	Hint    string       `json:"hint,omitempty"`
	Message string       `json:"message,omitempty"`
}

// JSONHandler speaks JSON Lines: it writes Messages and reads either a
// Command object, a JSON string or a raw text line per input.
type JSONHandler struct {
	Reader  *bufio.Reader
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Render(ctx context.Context, v domain.View) error {
	return h.Encoder.Encode(Message{Type: "view", View: &v, Hint: Hint(v)})
}

func (h *JSONHandler) Notify(ctx context.Context, msg string) error {
	return h.Encoder.Encode(Message{Type: "notice", Message: msg})
}

func (h *JSONHandler) Input(ctx context.Context) (Command, error) {
	for {
		line, err := h.Reader.ReadString('\n')
		text := strings.TrimSpace(line)
		if text == "" {
			if err != nil {
				return Command{}, err
			}
			return Command{Action: ActionAdvance}, nil
		}

		cmd, perr := decodeCommand(text)
		if perr != nil {
			if nerr := h.Notify(ctx, perr.Error()); nerr != nil {
				return Command{}, nerr
			}
			if err != nil {
				return Command{}, err
			}
			continue
		}
		return cmd, nil
	}
}

func decodeCommand(text string) (Command, error) {
	if strings.HasPrefix(text, "{") {
		var cmd Command
		if err := json.Unmarshal([]byte(text), &cmd); err == nil && cmd.Action != "" {
			return cmd, nil
		}
	}
	var s string
	if err := json.Unmarshal([]byte(text), &s); err == nil {
		text = s
	}
	return ParseCommand(text)
}
