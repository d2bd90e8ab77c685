package ports

import (
	"context"
	"testing"
	"time"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunContextStoreContract runs a suite of tests to verify that a ContextStore
// implementation adheres to the defined interface contract.
func RunContextStoreContract(t *testing.T, store ContextStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		pc := domain.NewPipelineContext(runID, 4)
		pc.UserInputs[1] = map[string]any{"use_case": "Segmentation", "data_sources": []any{"zip_territory"}}
		pc.StageOutputs[1] = &domain.StageOutput{
			Result:      &schema.Message{Message: "ok"},
			Origin:      domain.StateCompleted,
			Fingerprint: 7,
		}
		pc.CurrentStage = 2
		pc.Active = &domain.StageRun{Stage: 2, Name: "profile_sources", State: domain.StatePolling, Token: "abc-123"}
		pc.CorrelationTokens[2] = "abc-123"

		require.NoError(t, store.Save(ctx, runID, pc), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, 2, loaded.CurrentStage)
		assert.Equal(t, "Segmentation", loaded.UserInputs[1]["use_case"])
		assert.Equal(t, "abc-123", loaded.CorrelationTokens[2])
		require.NotNil(t, loaded.Active)
		assert.Equal(t, domain.StatePolling, loaded.Active.State)

		out, ok := loaded.Output(1)
		require.True(t, ok)
		assert.Equal(t, &schema.Message{Message: "ok"}, out.Result)
		assert.Equal(t, uint64(7), out.Fingerprint)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runID, domain.NewPipelineContext(runID, 4)))

		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, id1, domain.NewPipelineContext(id1, 4))
		_ = store.Save(ctx, id2, domain.NewPipelineContext(id2, 4))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
