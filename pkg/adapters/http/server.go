package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/aretw0/pitchpilot"
	"github.com/aretw0/pitchpilot/internal/logging"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/ports"
	"github.com/aretw0/pitchpilot/pkg/runner"
)

// Sessions is the part of the session manager the server drives.
type Sessions interface {
	Create(ctx context.Context, viewports ...ports.Viewport) (*pitchpilot.Session, error)
	Get(sessionID string) (*pitchpilot.Session, error)
	Close(ctx context.Context, sessionID string) error
	Open() []string
}

// Server exposes playback sessions over HTTP.
type Server struct {
	Sessions Sessions
	Streams  *StreamManager
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStreams shares an existing stream registry. Its Hooks must be registered
// with the engine for events to flow.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		if streams != nil {
			s.Streams = streams
		}
	}
}

// NewServer creates a server over the given sessions.
func NewServer(sessions Sessions, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// NewHandler creates the HTTP handler for the server.
func NewHandler(server *Server) http.Handler {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		spec, err := rawSpec()
		if err != nil {
			http.Error(w, "Failed to load spec", http.StatusInternalServerError)
			server.logger.Error("Failed to load OpenAPI spec", "error", err)
			return
		}
		w.Write(spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", server.ListSessions)
		r.Post("/", server.CreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.withSession(server.GetSession))
			r.Delete("/", server.DeleteSession)
			r.Post("/generate", server.withSession(server.Generate))
			r.Post("/select", server.withSession(server.SelectArtifact))
			r.Put("/active", server.withSession(server.EditActive))
			r.Post("/deploy", server.withSession(server.Deploy))
			r.Get("/wait", server.withSession(server.Wait))
			r.Get("/preview", server.withSession(server.Preview))
			r.Get("/events", server.withSession(server.SubscribeEvents))
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Pitchpilot API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session)

// withSession binds the {id} path parameter and resolves the open session.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := bindSessionID(r)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
			return
		}
		sess, err := s.Sessions.Get(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, sess)
	}
}

func bindSessionID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	return id, err
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionClosed):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRequestInFlight),
		errors.Is(err, domain.ErrNavigationRejected),
		errors.Is(err, domain.ErrDeployNotReady):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	} else {
		s.logger.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, Error{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON body. An empty body leaves v untouched when optional is set.
func decodeBody(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	writeJSON(w, http.StatusOK, Info{
		App:        "pitchpilot-http",
		Version:    strings.TrimSpace(pitchpilot.Version),
		APIVersion: apiVersion,
	})
}

// ListSessions handles the GET /sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionList{Sessions: s.Sessions.Open()})
}

// CreateSession handles the POST /sessions request.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateSessionRequest
	if err := decodeBody(r, &body, true); err != nil {
		s.writeError(w, err)
		return
	}

	sess, err := s.Sessions.Create(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !body.Theme.IsZero() {
		if err := sess.SetTheme(r.Context(), body.Theme); err != nil {
			s.writeError(w, err)
			return
		}
	}

	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, snap)
}

// GetSession handles the GET /sessions/{id} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session) {
	s.respondSnapshot(w, r, sess, http.StatusOK)
}

// DeleteSession handles the DELETE /sessions/{id} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := bindSessionID(r)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	if err := s.Sessions.Close(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate handles the POST /sessions/{id}/generate request.
func (s *Server) Generate(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session) {
	var body GenerateRequest
	if err := decodeBody(r, &body, false); err != nil {
		s.writeError(w, err)
		return
	}

	requirement, err := runner.SanitizeInput(body.Requirement)
	if err != nil {
		s.logger.Warn("Generate: Input rejected", "error", err, "size", len(body.Requirement))
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	if err := sess.RequestGeneration(r.Context(), requirement); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondSnapshot(w, r, sess, http.StatusAccepted)
}

// SelectArtifact handles the POST /sessions/{id}/select request.
func (s *Server) SelectArtifact(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session) {
	var body SelectRequest
	if err := decodeBody(r, &body, false); err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.SelectArtifact(r.Context(), body.Artifact); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondSnapshot(w, r, sess, http.StatusOK)
}

// EditActive handles the PUT /sessions/{id}/active request.
func (s *Server) EditActive(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session) {
	var body ActiveRequest
	if err := decodeBody(r, &body, false); err != nil {
		s.writeError(w, err)
		return
	}
	if err := sess.EditActive(r.Context(), body.Content); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondSnapshot(w, r, sess, http.StatusOK)
}

// Deploy handles the POST /sessions/{id}/deploy request.
func (s *Server) Deploy(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session) {
	if err := sess.RequestDeploy(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondSnapshot(w, r, sess, http.StatusAccepted)
}

// Wait handles the GET /sessions/{id}/wait request.
// It blocks until the session settles or the client goes away.
func (s *Server) Wait(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session) {
	snap, err := sess.Wait(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Preview handles the GET /sessions/{id}/preview request.
func (s *Server) Preview(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session) {
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, snap.Active)
}

func (s *Server) respondSnapshot(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session, status int) {
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status, snap)
}

// SubscribeEvents handles the GET /sessions/{id}/events request (SSE).
//
// The stream opens with a "snapshot" event carrying the full state, followed by
// one data event per state diff. Diffs apply exactly on top of the latest
// snapshot event; a client that falls behind gets a new snapshot event instead
// of a gap.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request, sess *pitchpilot.Session) {
	var params SubscribeEventsParams
	if err := runtime.BindQueryParameter("form", false, false, "watch", r.URL.Query(), &params.Watch); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	var watch []string
	if params.Watch != nil {
		watch = *params.Watch
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var (
		events      chan string
		unsubscribe func()
	)
	subscribe := func() ([]byte, error) {
		var initial []byte
		err := sess.Inspect(r.Context(), func(snap *domain.Snapshot) {
			events, unsubscribe = s.Streams.Subscribe(sess.ID())
			initial, _ = json.Marshal(snap)
		})
		return initial, err
	}
	initial, err := subscribe()
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer func() { unsubscribe() }()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Client subscribed", "session_id", sess.ID(), "watch", watch)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", initial)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: Client disconnected", "session_id", sess.ID())
			return
		case <-sess.Done():
			fmt.Fprintf(w, "event: closed\ndata: %s\n\n", sess.ID())
			flusher.Flush()
			return
		case msg, ok := <-events:
			if !ok {
				// Dropped for lagging: start over from a fresh snapshot.
				initial, err := subscribe()
				if err != nil {
					return
				}
				fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", initial)
				flusher.Flush()
				continue
			}
			if len(watch) > 0 {
				var diff domain.StateDiff
				if err := json.Unmarshal([]byte(msg), &diff); err != nil || !matches(&diff, watch) {
					continue
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
