package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aretw0/pitchpilot"
	"github.com/aretw0/pitchpilot/internal/adapters/file"
	"github.com/aretw0/pitchpilot/internal/adapters/sqlite"
	"github.com/aretw0/pitchpilot/internal/config"
	"github.com/aretw0/pitchpilot/pkg/adapters/backend"
	httpadapter "github.com/aretw0/pitchpilot/pkg/adapters/http"
	"github.com/aretw0/pitchpilot/pkg/adapters/memory"
	redisstore "github.com/aretw0/pitchpilot/pkg/adapters/redis"
	"github.com/aretw0/pitchpilot/pkg/domain"
	"github.com/aretw0/pitchpilot/pkg/observability"
	"github.com/aretw0/pitchpilot/pkg/persistence/middleware"
	"github.com/aretw0/pitchpilot/pkg/ports"
	"github.com/aretw0/pitchpilot/pkg/session"
)

// DefaultSQLitePath is used by the sqlite driver when store.path is empty.
const DefaultSQLitePath = "pitchpilot.db"

// Stack is a fully wired pitchpilot host: engine, session manager, store,
// HTTP server and metrics built from one Config.
type Stack struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *pitchpilot.Engine
	Sessions *session.Manager
	HTTP     *httpadapter.Server
	Metrics  *observability.Metrics
	Registry *prometheus.Registry

	closeStore func() error
}

type stackOptions struct {
	generator ports.Generator
	deployer  ports.Deployer
	hooks     []domain.LifecycleHooks
}

// StackOption configures NewStack.
type StackOption func(*stackOptions)

// WithBackend replaces the HTTP generation backend.
func WithBackend(g ports.Generator, d ports.Deployer) StackOption {
	return func(o *stackOptions) {
		o.generator = g
		o.deployer = d
	}
}

// WithHooks adds lifecycle hooks after the built-in ones.
func WithHooks(hooks domain.LifecycleHooks) StackOption {
	return func(o *stackOptions) {
		o.hooks = append(o.hooks, hooks)
	}
}

// NewStack wires every component described by cfg.
func NewStack(cfg *config.Config, logger *slog.Logger, opts ...StackOption) (*Stack, error) {
	var o stackOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.generator == nil || o.deployer == nil {
		client := backend.New(cfg.Backend.URL,
			backend.WithTimeout(cfg.Backend.Timeout),
			backend.WithLogger(logger),
		)
		o.generator, o.deployer = client, client
	}

	store, locker, closeStore, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	managerOpts := []session.Option{
		session.WithLogger(logger),
		session.WithLockTTL(cfg.Store.LockTTL),
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker))
	}
	manager := session.NewManager(store, managerOpts...)

	srv := httpadapter.NewServer(manager, httpadapter.WithLogger(logger))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	hooks := append([]domain.LifecycleHooks{
		manager.Hooks(),
		srv.Streams.Hooks(),
		metrics.Hooks(),
		observability.LogHooks(logger),
	}, o.hooks...)

	engineOpts := []pitchpilot.Option{
		pitchpilot.WithLogger(logger),
		pitchpilot.WithLifecycleHooks(domain.ComposeHooks(hooks...)),
		pitchpilot.WithChunkSize(cfg.Playback.ChunkSize),
		pitchpilot.WithEntryPoint(cfg.Playback.EntryPoint),
		pitchpilot.WithRevealInterval(cfg.Playback.Interval),
		pitchpilot.WithRedeploy(cfg.Deploy.AllowRedeploy),
	}
	eng, err := pitchpilot.New(o.generator, o.deployer, engineOpts...)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	manager.Bind(eng)

	return &Stack{
		Config:     cfg,
		Logger:     logger,
		Engine:     eng,
		Sessions:   manager,
		HTTP:       srv,
		Metrics:    metrics,
		Registry:   reg,
		closeStore: closeStore,
	}, nil
}

// OpenSession creates a session carrying the configured theme.
func (s *Stack) OpenSession(ctx context.Context, viewports ...ports.Viewport) (*pitchpilot.Session, error) {
	sess, err := s.Sessions.Create(ctx, viewports...)
	if err != nil {
		return nil, err
	}
	if s.Config.Theme != nil {
		if err := sess.SetTheme(ctx, s.Config.Theme); err != nil {
			_ = s.Sessions.Close(ctx, sess.ID())
			return nil, err
		}
	}
	return sess, nil
}

// Close stops every open session and releases the store.
func (s *Stack) Close(ctx context.Context) error {
	return errors.Join(s.Sessions.CloseAll(ctx), s.closeStore())
}

// OpenStore builds the snapshot store (and the optional distributed locker)
// selected by cfg, wrapped by the configured redaction and encryption.
// The returned func releases it.
func OpenStore(cfg config.StoreConfig) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	store, locker, closeStore, err := openDriver(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	mws, err := storeMiddleware(cfg)
	if err != nil {
		_ = closeStore()
		return nil, nil, nil, err
	}
	return middleware.Chain(store, mws...), locker, closeStore, nil
}

func storeMiddleware(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		enc := middleware.EncryptionConfig{}
		var err error
		if enc.ActiveKey, err = middleware.ParseKey(cfg.EncryptionKey); err != nil {
			return nil, fmt.Errorf("store.encryption_key: %w", err)
		}
		for _, k := range cfg.FallbackKeys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, fmt.Errorf("store.fallback_keys: %w", err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		sealed, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, sealed)
	}
	return mws, nil
}

func openDriver(cfg config.StoreConfig) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.DriverMemory, "":
		return memory.NewStore(), nil, noop, nil
	case config.DriverFile:
		return file.New(cfg.Path), nil, noop, nil
	case config.DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		st, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return st, nil, st.Close, nil
	case config.DriverRedis:
		var opts []redisstore.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redisstore.WithTTL(cfg.Redis.TTL))
		}
		st := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		var locker ports.DistributedLocker
		if cfg.Lock {
			prefix := cfg.Redis.Prefix
			if prefix == "" {
				prefix = redisstore.DefaultPrefix
			}
			locker = redisstore.NewLocker(st.Client(), prefix)
		}
		return st, locker, st.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// DemoBackend returns an in-memory backend serving a small fixed site, for
// trying pitchpilot without a generation service.
func DemoBackend() *memory.Backend {
	return memory.NewBackend(
		memory.WithLatency(300*time.Millisecond),
		memory.WithDeployURL("https://demo.pitchpilot.local/site"),
		memory.WithBundle(map[string]string{
			"index.html": demoIndex,
			"style.css":  demoStyle,
			"app.js":     demoScript,
		}),
	)
}

const demoIndex = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Demo</title>
    <link rel="stylesheet" href="style.css">
  </head>
  <body>
    <main>
      <h1>Hello from PitchPilot</h1>
      <p>This page was revealed chunk by chunk.</p>
      <button id="cta">Get started</button>
    </main>
    <script src="app.js"></script>
  </body>
</html>
`

const demoStyle = `body {
  font-family: system-ui, sans-serif;
  display: grid;
  place-items: center;
  min-height: 100vh;
  margin: 0;
}

h1 {
  color: #6d28d9;
}
`

const demoScript = `document.getElementById("cta").addEventListener("click", () => {
  alert("Ready to ship.");
});
`
