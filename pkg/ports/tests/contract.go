package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/ports"
)

// SeedFunc writes one row into the backend under test.
type SeedFunc func(t *testing.T, token, step string, status domain.ResultStatus, body []byte)

// ResultStoreContractTest is a reusable test suite that verifies if an adapter complies with ports.ResultStore.
func ResultStoreContractTest(t *testing.T, store ports.ResultStore, seed SeedFunc) {
	t.Helper()
	ctx := context.Background()

	seed(t, "tok-pending", "profile_sources", domain.ResultPending, nil)
	seed(t, "tok-done", "profile_sources", domain.ResultCompleted, []byte(`{"data":[{"source":"zip_territory"}]}`))
	seed(t, "tok-done", "generate_queries", domain.ResultError, nil)

	// 1. Status of every seeded row
	t.Run("Status", func(t *testing.T) {
		cases := []struct {
			token, step string
			want        domain.ResultStatus
		}{
			{"tok-pending", "profile_sources", domain.ResultPending},
			{"tok-done", "profile_sources", domain.ResultCompleted},
			{"tok-done", "generate_queries", domain.ResultError},
		}
		for _, c := range cases {
			got, err := store.Status(ctx, c.token, c.step)
			if err != nil {
				t.Fatalf("unexpected error for %s/%s: %v", c.token, c.step, err)
			}
			if got != c.want {
				t.Errorf("status mismatch for %s/%s. got %q, want %q", c.token, c.step, got, c.want)
			}
		}
	})

	// 2. Unknown rows
	t.Run("Status_NotFound", func(t *testing.T) {
		_, err := store.Status(ctx, "tok-unknown", "profile_sources")
		if !errors.Is(err, ports.ErrResultNotFound) {
			t.Errorf("expected ErrResultNotFound, got %v", err)
		}
	})

	// 3. Fetch is keyed by both token and step
	t.Run("Fetch_Completed", func(t *testing.T) {
		body, err := store.Fetch(ctx, "tok-done", "profile_sources")
		if err != nil {
			t.Fatalf("unexpected error fetching: %v", err)
		}
		if string(body) != `{"data":[{"source":"zip_territory"}]}` {
			t.Errorf("body mismatch. got %q", body)
		}
	})

	// 4. Fetch only returns COMPLETED rows
	t.Run("Fetch_NotCompleted", func(t *testing.T) {
		for _, step := range []string{"generate_queries"} {
			_, err := store.Fetch(ctx, "tok-done", step)
			if !errors.Is(err, ports.ErrResultNotFound) {
				t.Errorf("expected ErrResultNotFound for %s, got %v", step, err)
			}
		}
		_, err := store.Fetch(ctx, "tok-pending", "profile_sources")
		if !errors.Is(err, ports.ErrResultNotFound) {
			t.Errorf("expected ErrResultNotFound for pending row, got %v", err)
		}
	})
}
