package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// Backend is a scripted generation and deploy backend.
// It implements ports.Generator and ports.Deployer without any network access,
// which makes it suitable for tests, demos and offline runs.
type Backend struct {
	mu sync.Mutex

	bundles   []domain.Bundle
	genErr    error
	url       string
	deployErr error
	latency   time.Duration

	requests []domain.GenerateRequest
	deploys  int
}

// BackendOption configures the Backend.
type BackendOption func(*Backend)

// WithBundle queues a bundle answer. Queued bundles are returned in order and the
// last one repeats once the queue is exhausted.
func WithBundle(files map[string]string) BackendOption {
	return func(b *Backend) {
		b.bundles = append(b.bundles, domain.NewBundle(files))
	}
}

// WithGenerateError makes every generation fail with err.
func WithGenerateError(err error) BackendOption {
	return func(b *Backend) {
		b.genErr = err
	}
}

// WithDeployURL sets the URL returned by Deploy. An empty URL simulates a
// response without a link.
func WithDeployURL(url string) BackendOption {
	return func(b *Backend) {
		b.url = url
	}
}

// WithDeployError makes every deploy fail with err.
func WithDeployError(err error) BackendOption {
	return func(b *Backend) {
		b.deployErr = err
	}
}

// WithLatency delays every answer, honoring context cancellation.
func WithLatency(d time.Duration) BackendOption {
	return func(b *Backend) {
		b.latency = d
	}
}

// NewBackend creates a new scripted backend.
func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Generate records the request and returns the next queued bundle.
func (b *Backend) Generate(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
	if err := b.wait(ctx); err != nil {
		return domain.Bundle{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)

	if b.genErr != nil {
		return domain.Bundle{}, b.genErr
	}
	if len(b.bundles) == 0 {
		return domain.NewBundle(nil), nil
	}
	next := b.bundles[0]
	if len(b.bundles) > 1 {
		b.bundles = b.bundles[1:]
	}
	return next.Clone(), nil
}

// Deploy counts the call and returns the configured URL.
func (b *Backend) Deploy(ctx context.Context) (string, error) {
	if err := b.wait(ctx); err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.deploys++
	if b.deployErr != nil {
		return "", b.deployErr
	}
	return b.url, nil
}

// Requests returns a copy of every generation request received so far.
func (b *Backend) Requests() []domain.GenerateRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.GenerateRequest(nil), b.requests...)
}

// Deploys returns how many deploy calls were received.
func (b *Backend) Deploys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deploys
}

func (b *Backend) wait(ctx context.Context) error {
	if b.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(b.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
