package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the engine's instruments. All are no-ops when OTEL is not
// configured.
type Metrics struct {
	FormationsStarted   metric.Int64Counter
	FormationsActivated metric.Int64Counter
	FormationsFailed    metric.Int64Counter
	EvaluatorSkips      metric.Int64Counter
	FormationSeconds    metric.Float64Histogram
	ActiveCoalitions    metric.Int64UpDownCounter
}

// NewMetrics registers the engine's instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := Meter("coalition-engine")
	m := &Metrics{}
	var err error

	if m.FormationsStarted, err = meter.Int64Counter("coalition.formations.started",
		metric.WithDescription("Formation requests received")); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if m.FormationsActivated, err = meter.Int64Counter("coalition.formations.activated",
		metric.WithDescription("Coalitions that reached activation")); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if m.FormationsFailed, err = meter.Int64Counter("coalition.formations.failed",
		metric.WithDescription("Formation lifecycles that failed")); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if m.EvaluatorSkips, err = meter.Int64Counter("coalition.evaluator.skips",
		metric.WithDescription("Strategy evaluators skipped per request")); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if m.FormationSeconds, err = meter.Float64Histogram("coalition.formation.duration",
		metric.WithDescription("End-to-end formation duration"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	if m.ActiveCoalitions, err = meter.Int64UpDownCounter("coalition.active",
		metric.WithDescription("Currently active coalitions")); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return m, nil
}
