package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/pitchpilot/pkg/domain"
)

const namespace = "pitchpilot"

// Metrics holds the Prometheus collectors fed by session lifecycle events.
type Metrics struct {
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	GenerationsRunning prometheus.Gauge
	ArtifactsRevealed  prometheus.Counter
	RevealChunks       prometheus.Counter
	Deploys            *prometheus.CounterVec
	DeployDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Generation requests answered by the backend, by outcome",
			},
			[]string{"outcome"},
		),
		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of generation requests",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
		GenerationsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generations_in_flight",
			Help:      "Generation requests waiting for the backend",
		}),
		ArtifactsRevealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_revealed_total",
			Help:      "Artifacts whose reveal finished",
		}),
		RevealChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reveal_chunks_total",
			Help:      "Reveal steps applied to the active slot",
		}),
		Deploys: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deploys_total",
				Help:      "Deploy requests answered by the backend, by outcome",
			},
			[]string{"outcome"},
		),
		DeployDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "deploy_duration_seconds",
				Help:      "Duration of deploy requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.Generations,
			m.GenerationDuration,
			m.GenerationsRunning,
			m.ArtifactsRevealed,
			m.RevealChunks,
			m.Deploys,
			m.DeployDuration,
		)
	}
	return m
}

// Hooks returns lifecycle hooks recording every event into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGenerationStart: func(ctx context.Context, e *domain.GenerationEvent) {
			m.GenerationsRunning.Inc()
		},
		OnGenerationEnd: func(ctx context.Context, e *domain.GenerationEvent) {
			m.GenerationsRunning.Dec()
			m.Generations.WithLabelValues(string(e.Outcome)).Inc()
			m.GenerationDuration.WithLabelValues(string(e.Outcome)).Observe(e.Duration.Seconds())
		},
		OnArtifactLeave: func(ctx context.Context, e *domain.ArtifactEvent) {
			m.ArtifactsRevealed.Inc()
		},
		OnRevealChunk: func(ctx context.Context, e *domain.ChunkEvent) {
			m.RevealChunks.Inc()
		},
		OnDeployEnd: func(ctx context.Context, e *domain.DeployEvent) {
			m.Deploys.WithLabelValues(string(e.Outcome)).Inc()
			m.DeployDuration.WithLabelValues(string(e.Outcome)).Observe(e.Duration.Seconds())
		},
	}
}
