package middleware

import "github.com/ajayshanks/datagpt/pkg/ports"

// Middleware wraps a ContextStore to add behavior.
type Middleware func(ports.ContextStore) ports.ContextStore

// Chain applies middlewares so the first one listed is the outermost.
func Chain(store ports.ContextStore, mws ...Middleware) ports.ContextStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
