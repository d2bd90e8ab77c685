package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ajayshanks/datagpt"
	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/internal/presentation/graph"
	"github.com/ajayshanks/datagpt/internal/presentation/report"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/runner"
	"github.com/ajayshanks/datagpt/pkg/session"
	"github.com/ajayshanks/datagpt/pkg/stages"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Engine is the run surface the server exposes. *datagpt.Engine satisfies it.
type Engine interface {
	Start(ctx context.Context, runID string) (*datagpt.Outcome, error)
	Advance(ctx context.Context, runID string, input map[string]any) (*datagpt.Outcome, error)
	Refresh(ctx context.Context, runID string) (*datagpt.Outcome, error)
	Back(ctx context.Context, runID string) (*datagpt.Outcome, error)
	Resubmit(ctx context.Context, runID string) (*datagpt.Outcome, error)
	Reset(ctx context.Context, runID string) (*datagpt.Outcome, error)
	View(ctx context.Context, runID string) (domain.View, error)
	Delete(ctx context.Context, runID string) error
	List(ctx context.Context) ([]string, error)
	Table() *stages.Table
}

// Server serves runs over HTTP and streams their diffs over SSE.
type Server struct {
	engine  Engine
	streams *StreamManager
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams shares a StreamManager, e.g. with a sweeper that publishes diffs.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		if sm != nil {
			s.streams = sm
		}
	}
}

// NewHandler creates the HTTP handler for engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine:  engine,
		streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/stages", s.GetStages)
	r.Get("/events", s.SubscribeEvents)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.CreateRun)
		r.Get("/", s.ListRuns)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", s.GetRun)
			r.Delete("/", s.DeleteRun)
			r.Get("/report", s.GetReport)
			r.Get("/graph", s.GetGraph)
			r.Post("/advance", s.Advance)
			r.Post("/back", s.navigate(s.engine.Back))
			r.Post("/resubmit", s.navigate(s.engine.Resubmit))
			r.Post("/reset", s.navigate(s.engine.Reset))
		})
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type createRunRequest struct {
	RunID string `json:"run_id"`
}

type advanceRequest struct {
	Input map[string]any `json:"input"`
}

type errorResponse struct {
	Error string       `json:"error"`
	View  *domain.View `json:"view,omitempty"`
}

type stageInfo struct {
	Index        int                 `json:"index"`
	Name         string              `json:"name"`
	Title        string              `json:"title"`
	Mode         domain.DispatchMode `json:"mode"`
	Kind         string              `json:"kind"`
	PollInterval string              `json:"poll_interval,omitempty"`
	MaxWait      string              `json:"max_wait,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStages handles GET /stages.
func (s *Server) GetStages(w http.ResponseWriter, r *http.Request) {
	defs := s.engine.Table().All()
	out := make([]stageInfo, len(defs))
	for i, d := range defs {
		out[i] = stageInfo{Index: i + 1, Name: d.Name, Title: d.Title, Mode: d.Mode, Kind: string(d.Schema.Kind)}
		if d.Mode == domain.ModeAsync {
			out[i].PollInterval = d.PollInterval.String()
			out[i].MaxWait = d.MaxWait.String()
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

// CreateRun handles POST /runs. The body is optional.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body createRunRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err, nil)
		return
	}
	out, err := s.engine.Start(r.Context(), body.RunID)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.logger.InfoContext(r.Context(), "run created", "run_id", out.View.RunID)
	s.writeJSON(w, http.StatusCreated, out)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.engine.List(r.Context())
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// GetRun handles GET /runs/{runID}. Reading a run re-enters it, so a stage
// in flight gets one poll check.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	s.navigate(s.engine.Refresh)(w, r)
}

// DeleteRun handles DELETE /runs/{runID}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Delete(r.Context(), chi.URLParam(r, "runID")); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetReport handles GET /runs/{runID}/report with a markdown rendering.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.View(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	io.WriteString(w, report.Markdown(v))
}

// GetGraph handles GET /runs/{runID}/graph with a Mermaid flowchart.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.View(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(v))
}

// Advance handles POST /runs/{runID}/advance. An empty body advances with
// the input already recorded.
func (s *Server) Advance(w http.ResponseWriter, r *http.Request) {
	var body advanceRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err, nil)
		return
	}
	if err := runner.SanitizeMap(body.Input); err != nil {
		s.logger.WarnContext(r.Context(), "input rejected", "error", err)
		s.writeError(w, r, http.StatusBadRequest, err, nil)
		return
	}
	s.navigate(func(ctx context.Context, runID string) (*datagpt.Outcome, error) {
		return s.engine.Advance(ctx, runID, body.Input)
	})(w, r)
}

func (s *Server) navigate(op func(context.Context, string) (*datagpt.Outcome, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		out, err := op(r.Context(), runID)
		if out != nil && out.Diff != nil {
			s.publish(runID, out.Diff)
		}
		if err != nil {
			var view *domain.View
			if out != nil {
				view = &out.View
			}
			s.fail(w, r, err, view)
			return
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) publish(runID string, diff *domain.ContextDiff) {
	b, err := json.Marshal(diff)
	if err != nil {
		s.logger.Error("diff encode failed", "run_id", runID, "error", err)
		return
	}
	s.streams.Broadcast(runID, string(b))
}

// Streams returns the server's StreamManager.
func (s *Server) Streams() *StreamManager {
	return s.streams
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, view *domain.View) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	s.writeError(w, r, status, err, view)
}

func statusFor(err error) int {
	var perr *domain.PayloadError
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrRunExists), errors.Is(err, domain.ErrPipelineComplete):
		return http.StatusConflict
	case errors.As(err, &perr), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error, view *domain.View) {
	s.writeJSON(w, status, errorResponse{Error: err.Error(), View: view})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// ReadHeaderTimeout is applied by NewServer.
const ReadHeaderTimeout = 10 * time.Second

// NewServer wraps h in an http.Server listening on addr.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: ReadHeaderTimeout}
}
