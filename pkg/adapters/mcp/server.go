package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/pitchpilot"
	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
	"github.com/aretw0/pitchpilot/pkg/runner"
)

const (
	sessionsURI    = "pitchpilot://sessions"
	activeTemplate = "pitchpilot://sessions/{id}/active"
)

// Sessions is the part of the session manager the MCP server drives.
type Sessions interface {
	Create(ctx context.Context, viewports ...ports.Viewport) (*pitchpilot.Session, error)
	Get(sessionID string) (*pitchpilot.Session, error)
	Close(ctx context.Context, sessionID string) error
	Open() []string
}

// SessionArgs addresses one open session.
type SessionArgs struct {
	SessionID string `json:"session_id"`
}

// OpenArgs are the arguments of open_session.
type OpenArgs struct {
	Theme string `json:"theme,omitempty"`
}

// GenerateArgs are the arguments of generate.
type GenerateArgs struct {
	SessionID   string `json:"session_id"`
	Requirement string `json:"requirement"`
}

// SelectArgs are the arguments of select_artifact.
type SelectArgs struct {
	SessionID string `json:"session_id"`
	Artifact  string `json:"artifact"`
}

// EditArgs are the arguments of edit_active.
type EditArgs struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// WaitArgs are the arguments of wait.
type WaitArgs struct {
	SessionID      string `json:"session_id"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// DefaultWaitTimeout bounds the wait tool when the caller gives no timeout.
const DefaultWaitTimeout = 2 * time.Minute

// Server exposes playback sessions as an MCP server.
type Server struct {
	sessions  Sessions
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions Sessions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		sessions: sessions,
		logger:   logger,
		mcpServer: server.NewMCPServer("pitchpilot-mcp", strings.TrimSpace(pitchpilot.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionID := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID returned by open_session"))

	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open a new playback session. The state starts idle with the welcome document."),
		mcp.WithString("theme", mcp.Description("Theme name forwarded with generation requests (optional)")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleOpen))

	s.mcpServer.AddTool(mcp.NewTool("generate",
		mcp.WithDescription("Request a site generation. Artifacts are revealed progressively; call wait to block until playback completes."),
		sessionID,
		mcp.WithString("requirement", mcp.Required(), mcp.Description("Natural-language description of the site")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleGenerate))

	s.mcpServer.AddTool(mcp.NewTool("select_artifact",
		mcp.WithDescription("Show an artifact that has already begun reveal in the active slot."),
		sessionID,
		mcp.WithString("artifact", mcp.Required(), mcp.Description("Artifact name, e.g. index.html")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleSelect))

	s.mcpServer.AddTool(mcp.NewTool("edit_active",
		mcp.WithDescription("Replace the active content as a user edit."),
		sessionID,
		mcp.WithString("content", mcp.Required(), mcp.Description("New content")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleEdit))

	s.mcpServer.AddTool(mcp.NewTool("deploy",
		mcp.WithDescription("Deploy the generated site once playback completed."),
		sessionID,
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleDeploy))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the current session state."),
		sessionID,
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("wait",
		mcp.WithDescription("Block until no generation, reveal or deploy is outstanding."),
		sessionID,
		mcp.WithNumber("timeout_seconds", mcp.Description("Maximum wait (default 120)")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleWait))

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Close a session and discard its state."),
		sessionID,
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("session_id", "")
		if err := s.sessions.Close(ctx, id); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("close failed: %v", err)), nil
		}
		return mcp.NewToolResultText("closed " + id), nil
	})
}

func (s *Server) session(id string) (*pitchpilot.Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %q: %w", id, err)
	}
	return sess, nil
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest, args OpenArgs) (*domain.Snapshot, error) {
	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("open failed: %w", err)
	}
	if args.Theme != "" {
		if err := sess.SetTheme(ctx, &domain.Theme{Name: args.Theme}); err != nil {
			return nil, err
		}
	}
	return sess.Snapshot(ctx)
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest, args GenerateArgs) (*domain.Snapshot, error) {
	sess, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}

	clean, err := runner.SanitizeInput(args.Requirement)
	if err != nil {
		s.logger.Warn("MCP Generate: Input rejected", "error", err, "size", len(args.Requirement))
		return nil, fmt.Errorf("input rejected: %w", err)
	}
	if err := sess.RequestGeneration(ctx, clean); err != nil {
		return nil, fmt.Errorf("generate failed: %w", err)
	}
	return sess.Snapshot(ctx)
}

func (s *Server) handleSelect(ctx context.Context, request mcp.CallToolRequest, args SelectArgs) (*domain.Snapshot, error) {
	sess, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.SelectArtifact(ctx, args.Artifact); err != nil {
		return nil, err
	}
	return sess.Snapshot(ctx)
}

func (s *Server) handleEdit(ctx context.Context, request mcp.CallToolRequest, args EditArgs) (*domain.Snapshot, error) {
	sess, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.EditActive(ctx, args.Content); err != nil {
		return nil, err
	}
	return sess.Snapshot(ctx)
}

func (s *Server) handleDeploy(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (*domain.Snapshot, error) {
	sess, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.RequestDeploy(ctx); err != nil {
		return nil, fmt.Errorf("deploy failed: %w", err)
	}
	return sess.Snapshot(ctx)
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args SessionArgs) (*domain.Snapshot, error) {
	sess, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(ctx)
}

func (s *Server) handleWait(ctx context.Context, request mcp.CallToolRequest, args WaitArgs) (*domain.Snapshot, error) {
	sess, err := s.session(args.SessionID)
	if err != nil {
		return nil, err
	}
	timeout := DefaultWaitTimeout
	if args.TimeoutSeconds > 0 {
		timeout = time.Duration(args.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sess.Wait(ctx)
}

func (s *Server) registerResources() {
	// EXPOSE: pitchpilot://sessions
	s.mcpServer.AddResource(mcp.NewResource(sessionsURI, "Open Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, _ := json.Marshal(s.sessions.Open())
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      sessionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: pitchpilot://sessions/{id}/active
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(activeTemplate, "Active Content",
		mcp.WithTemplateDescription("The content currently shown in the editor and preview of a session"),
		mcp.WithTemplateMIMEType("text/html"),
	), s.readActive)
}

func (s *Server) readActive(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id, ok := sessionFromURI(uri)
	if !ok {
		return nil, fmt.Errorf("unexpected resource URI %q", uri)
	}
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/html",
			Text:     snap.Active,
		},
	}, nil
}

// sessionFromURI extracts the id of pitchpilot://sessions/{id}/active.
func sessionFromURI(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, sessionsURI+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/active")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
