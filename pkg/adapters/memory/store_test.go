package memory_test

import (
	"context"
	"testing"

	"github.com/ajayshanks/datagpt/pkg/adapters/memory"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/ajayshanks/datagpt/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.ContextStore = (*memory.Store)(nil)
	_ ports.ResultStore  = (*memory.Results)(nil)
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunContextStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	pc := domain.NewPipelineContext("run-1", 4)
	pc.UserInputs[1] = map[string]any{"use_case": "Segmentation"}
	require.NoError(t, store.Save(ctx, "run-1", pc))

	pc.UserInputs[1]["use_case"] = "mutated after save"
	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Segmentation", loaded.UserInputs[1]["use_case"])

	loaded.CurrentStage = 3
	again, _ := store.Load(ctx, "run-1")
	assert.Equal(t, 1, again.CurrentStage)
}

func TestMemoryResults_Contract(t *testing.T) {
	results := memory.NewResults()
	tests.ResultStoreContractTest(t, results, func(t *testing.T, token, step string, status domain.ResultStatus, body []byte) {
		results.Put(token, step, status, body)
	})
}
