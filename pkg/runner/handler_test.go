package runner

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHint(t *testing.T) {
	stagesAt := func(cur int, state domain.StageState, withOutput bool) domain.View {
		v := domain.View{CurrentStage: cur, StageCount: 2, Stages: []domain.StageView{{Index: 1}, {Index: 2}}}
		if s := v.Stage(cur); s != nil {
			s.State = state
			if withOutput {
				s.Output = &domain.StageOutput{}
			}
		}
		return v
	}

	assert.Contains(t, Hint(stagesAt(1, domain.StateIdle, false)), "use_case=")
	assert.Equal(t, "enter to run | back | reset | quit", Hint(stagesAt(2, domain.StateIdle, false)))
	assert.Equal(t, "enter to run | back | resubmit | reset | quit", Hint(stagesAt(2, domain.StateCompleted, true)))
	assert.Equal(t, "enter to check again | back | quit", Hint(stagesAt(2, domain.StatePolling, false)))

	done := stagesAt(3, domain.StateIdle, false)
	done.Complete = true
	assert.Equal(t, "back | reset | quit", Hint(done))
}

func TestTextHandler_InputHonorsContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	h := NewTextHandler(pr, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Input(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTextHandler_RendererApplied(t *testing.T) {
	var out bytes.Buffer
	h := NewTextHandler(strings.NewReader(""), &out, WithRenderer(func(s string) (string, error) {
		return strings.ToUpper(s), nil
	}))
	require.NoError(t, h.Render(context.Background(), domain.View{RunID: "abc"}))
	assert.Contains(t, out.String(), "# RUN ABC")

	_, err := h.Input(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONHandler_Input(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		`{"action":"back"}`,
		`"resubmit"`,
		`{"data_sources":["zip_territory"],"use_case":"Segmentation"}`,
		`???`,
		``,
	}, "\n") + "\n")
	var out bytes.Buffer
	h := NewJSONHandler(in, &out)
	ctx := context.Background()

	cmd, err := h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionBack, cmd.Action)

	cmd, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionResubmit, cmd.Action)

	cmd, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionAdvance, cmd.Action)
	assert.Equal(t, "Segmentation", cmd.Input["use_case"])

	// The bad line is reported and skipped.
	cmd, err = h.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionAdvance, cmd.Action)
	assert.Nil(t, cmd.Input)
	assert.Contains(t, out.String(), `"type":"notice"`)

	_, err = h.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
