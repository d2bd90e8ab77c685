package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/ajayshanks/datagpt/pkg/adapters/memory"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/persistence/middleware"
	"github.com/ajayshanks/datagpt/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func sealedStore(t *testing.T, next ports.ContextStore, cfg middleware.EncryptionConfig) ports.ContextStore {
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := sealedStore(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunContextStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := sealedStore(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	pc := domain.NewPipelineContext("run-1", 4)
	pc.UserInputs[1] = map[string]any{"business_rules": "exclude retired prescribers"}

	require.NoError(t, secure.Save(ctx, "run-1", pc))

	stored, err := underlying.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, stored.UserInputs, "inputs must not be stored in the clear")
	assert.NotEmpty(t, stored.Sealed)
	assert.Equal(t, 1, stored.CurrentStage)
	assert.Equal(t, 4, stored.StageCount)

	loaded, err := secure.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "exclude retired prescribers", loaded.UserInputs[1]["business_rules"])
	assert.Empty(t, loaded.Sealed)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := sealedStore(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	pc := domain.NewPipelineContext("rotation", 4)
	pc.UserInputs[1] = map[string]any{"use_case": "old"}
	require.NoError(t, oldStore.Save(ctx, "rotation", pc))

	newStore := sealedStore(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, "rotation")
	require.NoError(t, err, "fallback key should open the old context")
	assert.Equal(t, "old", loaded.UserInputs[1]["use_case"])

	loaded.UserInputs[1]["use_case"] = "new"
	require.NoError(t, newStore.Save(ctx, "rotation", loaded))

	_, err = oldStore.Load(ctx, "rotation")
	assert.Error(t, err, "old key alone cannot open a context sealed with the new key")
}

func TestEncryptionMiddleware_RejectsPlainContext(t *testing.T) {
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(context.Background(), "plain", domain.NewPipelineContext("plain", 4)))

	secure := sealedStore(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(context.Background(), "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)

	_, err = secure.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.ParseKey("not base64!")
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.ContextStore) ports.ContextStore {
			order = append(order, name)
			return next
		}
	}
	middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	assert.Equal(t, []string{"inner", "outer"}, order)
}
