package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ajayshanks/datagpt"
	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/internal/presentation/report"
	httpadapter "github.com/ajayshanks/datagpt/pkg/adapters/http"
	"github.com/ajayshanks/datagpt/pkg/domain"
	"github.com/ajayshanks/datagpt/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// StagesURI is the resource listing the stage table.
const StagesURI = "datagpt://stages"

// RunResponse is the structured result of every run tool.
type RunResponse struct {
	View   domain.View         `json:"view" jsonschema_description:"The run as seen after the call"`
	Diff   *domain.ContextDiff `json:"diff,omitempty" jsonschema_description:"What the call changed"`
	Report string              `json:"report" jsonschema_description:"Markdown rendering of the run"`
	Error  string              `json:"error,omitempty" jsonschema_description:"Why the input was rejected, if it was"`
}

// RunArgs selects a run.
type RunArgs struct {
	RunID string `json:"run_id"`
}

// AdvanceArgs carries the input for the current stage.
type AdvanceArgs struct {
	RunID string         `json:"run_id"`
	Input map[string]any `json:"input,omitempty"`
}

// Engine is the run surface exposed over MCP. It matches the HTTP adapter's.
type Engine = httpadapter.Engine

// Server exposes an Engine as an MCP server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("datagpt-mcp", strings.TrimSpace(datagpt.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	srv := httpadapter.NewServer(addr, mux)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("mcp server listening (sse)", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_run",
		mcp.WithDescription("Start a new data-to-insights run. Returns its view; the run ID is view.run_id."),
		mcp.WithString("run_id", mcp.Description("Optional run ID; generated when omitted")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("advance",
		mcp.WithDescription("Record input for the current stage and run it. Stage 1 takes "+
			"data_sources (list), use_case (string) and business_rules (list). Later stages take no input. "+
			"While a stage is waiting on its result, this only checks for it."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithObject("input", mcp.Description("Input for the current stage (optional)")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleAdvance))

	s.runTool("get_run", "Get a run. A stage waiting on its result is checked once.", s.engine.Refresh)
	s.runTool("back", "Move the run one stage back. A pending result is abandoned.", s.engine.Back)
	s.runTool("resubmit", "Clear the current stage so the next advance sends it again.", s.engine.Resubmit)
	s.runTool("reset", "Clear every stage and return to the first one.", s.engine.Reset)
}

func (s *Server) runTool(name, desc string, op func(context.Context, string) (*datagpt.Outcome, error)) {
	s.mcpServer.AddTool(mcp.NewTool(name,
		mcp.WithDescription(desc),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, req mcp.CallToolRequest, args RunArgs) (RunResponse, error) {
		if args.RunID == "" {
			return RunResponse{}, errors.New("run_id is required")
		}
		out, err := op(ctx, args.RunID)
		return s.respond(ctx, name, out, err)
	}))
}

func (s *Server) handleStart(ctx context.Context, req mcp.CallToolRequest, args RunArgs) (RunResponse, error) {
	out, err := s.engine.Start(ctx, args.RunID)
	return s.respond(ctx, "start_run", out, err)
}

func (s *Server) handleAdvance(ctx context.Context, req mcp.CallToolRequest, args AdvanceArgs) (RunResponse, error) {
	if args.RunID == "" {
		return RunResponse{}, errors.New("run_id is required")
	}
	if err := runner.SanitizeMap(args.Input); err != nil {
		s.logger.WarnContext(ctx, "input rejected", "tool", "advance", "error", err)
		return RunResponse{}, fmt.Errorf("advance: %w", err)
	}
	out, err := s.engine.Advance(ctx, args.RunID, args.Input)
	return s.respond(ctx, "advance", out, err)
}

// respond folds a rejected payload into the response so the model can
// correct its input; every other error fails the tool call.
func (s *Server) respond(ctx context.Context, tool string, out *datagpt.Outcome, err error) (RunResponse, error) {
	var perr *domain.PayloadError
	if err != nil && (out == nil || !errors.As(err, &perr)) {
		s.logger.WarnContext(ctx, "mcp tool failed", "tool", tool, "error", err)
		return RunResponse{}, fmt.Errorf("%s: %w", tool, err)
	}
	resp := RunResponse{View: out.View, Diff: out.Diff, Report: report.Markdown(out.View)}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

type stageResource struct {
	Index int                 `json:"index"`
	Name  string              `json:"name"`
	Title string              `json:"title"`
	Mode  domain.DispatchMode `json:"mode"`
	Kind  string              `json:"kind"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StagesURI, "Pipeline stages",
		mcp.WithMIMEType("application/json"),
	), s.readStages)
}

func (s *Server) readStages(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	defs := s.engine.Table().All()
	list := make([]stageResource, len(defs))
	for i, d := range defs {
		list[i] = stageResource{Index: i + 1, Name: d.Name, Title: d.Title, Mode: d.Mode, Kind: string(d.Schema.Kind)}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode stages: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StagesURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
