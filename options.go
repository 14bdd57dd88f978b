package coalition

import (
	"log/slog"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	port       int
	logger     *slog.Logger
	version    string
	seed       *int64
	trust      TrustOracle
	reputation ReputationOracle
	source     UtilitySource
	director   Director
	eventHooks []EventHook
}

// WithPort overrides the TCP port from config (ARENA_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithRandSeed overrides the seed for the sampled game-theoretic search
// (ARENA_RAND_SEED env var). Fixed seeds make formation runs reproducible.
func WithRandSeed(seed int64) Option {
	return func(o *resolvedOptions) { o.seed = &seed }
}

// WithTrustOracle replaces the built-in demo trust oracle.
func WithTrustOracle(t TrustOracle) Option {
	return func(o *resolvedOptions) { o.trust = t }
}

// WithReputationOracle replaces the built-in demo reputation oracle.
func WithReputationOracle(r ReputationOracle) Option {
	return func(o *resolvedOptions) { o.reputation = r }
}

// WithUtilitySource replaces the built-in demo utility source.
func WithUtilitySource(s UtilitySource) Option {
	return func(o *resolvedOptions) { o.source = s }
}

// WithDirector replaces the default auto-accepting formation director.
// Only the last call wins.
func WithDirector(d Director) Option {
	return func(o *resolvedOptions) { o.director = d }
}

// WithEventHook registers an event hook to receive coalition lifecycle
// notifications. Multiple hooks may be registered; all registered hooks
// receive every event.
func WithEventHook(hook EventHook) Option {
	return func(o *resolvedOptions) { o.eventHooks = append(o.eventHooks, hook) }
}
