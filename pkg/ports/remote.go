package ports

import (
	"context"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

// Generator turns a natural-language requirement into an artifact bundle.
// A response without a recognizable bundle is returned as an empty bundle, not an error.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error)
}

// Deployer publishes the current artifact bundle and returns its public URL.
// An empty URL with a nil error means the remote call succeeded without a URL.
type Deployer interface {
	Deploy(ctx context.Context) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error)

// Generate calls f(ctx, req).
func (f GeneratorFunc) Generate(ctx context.Context, req domain.GenerateRequest) (domain.Bundle, error) {
	return f(ctx, req)
}

// DeployerFunc adapts a function to the Deployer interface.
type DeployerFunc func(ctx context.Context) (string, error)

// Deploy calls f(ctx).
func (f DeployerFunc) Deploy(ctx context.Context) (string, error) {
	return f(ctx)
}
