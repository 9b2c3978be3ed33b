/*
Package observability turns session lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks, so they compose with any other hooks:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng, err := pitchpilot.New(gen, dep, pitchpilot.WithLifecycleHooks(
		domain.ComposeHooks(metrics.Hooks(), observability.LogHooks(logger)),
	))
*/
package observability
