package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpadapter "github.com/aretw0/pitchpilot/pkg/adapters/http"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// Handler returns the HTTP API of the stack, plus the metrics endpoint when
// enabled.
func (s *Stack) Handler() http.Handler {
	r := chi.NewRouter()
	if s.Config.Metrics.Enabled {
		r.Handle(s.Config.Metrics.Path, promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/", httpadapter.NewHandler(s.HTTP))
	return r
}

// Serve runs the HTTP API on the configured port until sc is cancelled.
func Serve(sc *SignalContext, stack *Stack, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", stack.Config.HTTP.Port),
		Handler:           stack.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		stack.Logger.Info("http server listening", "addr", srv.Addr, "backend", stack.Config.Backend.URL, "store", stack.Config.Store.Driver)
		printSystemMessage(out, "Serving on %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-sc.Done():
	}

	if sig := sc.Signal(); sig != nil {
		printSystemMessage(out, "Shutting down (%v)...", sig)
	}
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		stack.Logger.Warn("graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
		if cerr := srv.Close(); cerr != nil && !errors.Is(cerr, http.ErrServerClosed) {
			return cerr
		}
	}
	if err := stack.Close(ctx); err != nil {
		return err
	}
	printSystemMessage(out, "Server stopped gracefully")
	return nil
}
