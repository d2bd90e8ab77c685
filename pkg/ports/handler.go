package ports

import "context"

// StageCall is one request to a Stage Handler.
type StageCall struct {
	Stage    string // Stage name, sent for tracing.
	Endpoint string // Target URL (or handler key for non-HTTP implementations).
	Body     []byte // JSON-encoded payload.
}

// StageReply is the raw answer of a Stage Handler.
type StageReply struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the reply carries a success status.
func (r *StageReply) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StageHandler performs the remote call for a stage.
// Implementations return an error only when no reply was obtained at all
// (connection refused, DNS failure, canceled context). Any reply, whatever its
// status, is returned as a StageReply.
type StageHandler interface {
	Invoke(ctx context.Context, call StageCall) (*StageReply, error)
}

// StageHandlerFunc adapts a function to StageHandler.
type StageHandlerFunc func(ctx context.Context, call StageCall) (*StageReply, error)

// Invoke calls f.
func (f StageHandlerFunc) Invoke(ctx context.Context, call StageCall) (*StageReply, error) {
	return f(ctx, call)
}
