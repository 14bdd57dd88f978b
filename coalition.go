// Package coalition is the public API for embedding the coalition
// formation engine.
//
// Consumers import this package to construct and extend the engine without
// forking it:
//
//	app, err := coalition.New(
//	    coalition.WithVersion(version),
//	    coalition.WithLogger(logger),
//	    coalition.WithTrustOracle(myTrustGraph),
//	    coalition.WithReputationOracle(myLedger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: coalition (root)
// imports internal/*, but internal/* never imports coalition (root).
// Public interfaces (TrustOracle, Director, etc.) use plain strings for
// agent IDs; the adapters that convert them to internal types live here
// because this is the only file that sees both sides of the boundary.
package coalition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ghogue02/living-economy-arena-sub000/internal/config"
	"github.com/ghogue02/living-economy-arena-sub000/internal/engine"
	"github.com/ghogue02/living-economy-arena-sub000/internal/executor"
	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/monitor"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
	"github.com/ghogue02/living-economy-arena-sub000/internal/registry"
	"github.com/ghogue02/living-economy-arena-sub000/internal/server"
	"github.com/ghogue02/living-economy-arena-sub000/internal/telemetry"
	"github.com/ghogue02/living-economy-arena-sub000/internal/utility"
)

// demoScore is the flat trust/reputation/utility value the built-in demo
// oracles report for agents they have no data on.
const demoScore = 50

// App is the coalition engine lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	cfg          config.Config
	srv          *server.Server
	broker       *server.Broker
	engine       *engine.Engine
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
}

// New initialises the coalition engine: configuration, telemetry, oracles,
// the strategy pipeline, registry, monitor, and HTTP server. It does NOT
// start any goroutines or accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	// Apply options.
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.seed != nil {
		cfg.RandSeed = *o.seed
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("coalition engine starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	metrics, err := telemetry.NewMetrics()
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Oracles: externally provided, or flat-scoring demo fallbacks.
	var trust oracle.TrustOracle
	if o.trust != nil {
		trust = &trustAdapter{t: o.trust}
	} else {
		trust = oracle.NewStaticTrust(demoScore)
		logger.Warn("trust oracle: demo fallback (flat scores); wire WithTrustOracle for production")
	}
	var rep oracle.ReputationOracle
	if o.reputation != nil {
		rep = &reputationAdapter{r: o.reputation}
	} else {
		rep = oracle.NewStaticReputation(demoScore)
		logger.Warn("reputation oracle: demo fallback (flat scores); wire WithReputationOracle for production")
	}
	var src utility.Source
	if o.source != nil {
		src = &sourceAdapter{s: o.source}
	} else {
		src = utility.NewStaticSource(demoScore)
		logger.Warn("utility source: demo fallback (flat base utility); wire WithUtilitySource for production")
	}

	loader := oracle.NewLoader(trust, rep, cfg.OracleRetryBackoff, logger)
	store := registry.New(cfg.MaxCoalitionsPerAgent)
	mon := monitor.New(store, loader, src,
		cfg.DefectionThreshold, cfg.StabilityFloor, cfg.MonitorWeakTrust,
		cfg.MonitorHistorySize, logger)

	// Formation director.
	var director executor.Director = executor.AutoAccept{}
	if o.director != nil {
		director = &directorAdapter{d: o.director}
	}

	// Event fan-out: SSE broker plus registered hooks.
	broker := server.NewBroker(cfg.EventBufferSize, logger)
	sinks := []engine.Sink{broker.Publish}
	for _, hook := range o.eventHooks {
		sinks = append(sinks, hookSink(hook, logger))
	}

	eng := engine.New(engine.Deps{
		Config:   cfg,
		Loader:   loader,
		Source:   src,
		Director: director,
		Store:    store,
		Monitor:  mon,
		Metrics:  metrics,
		Logger:   logger,
		Sinks:    sinks,
	})

	srv := server.New(server.Config{
		Engine:              eng,
		Broker:              broker,
		Logger:              logger,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	return &App{
		cfg:          cfg,
		srv:          srv,
		broker:       broker,
		engine:       eng,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Handler returns the root HTTP handler for use in tests and embedding.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown is called automatically —
// callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown drains in-flight HTTP requests, then closes the OTEL providers.
// All coalition state is in-memory and process-scoped, so there is nothing
// to persist.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("coalition engine shutting down")

	httpCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	_ = a.otelShutdown(context.Background())
	a.logger.Info("coalition engine stopped")
	return nil
}

// ── Adapters (defined here because this file imports both sides) ───────────────

// trustAdapter wraps a public TrustOracle to satisfy oracle.TrustOracle.
type trustAdapter struct {
	t TrustOracle
}

func (a *trustAdapter) Trust(ctx context.Context, from, to model.AgentID) (float64, error) {
	return a.t.Trust(ctx, string(from), string(to))
}

// reputationAdapter wraps a public ReputationOracle to satisfy oracle.ReputationOracle.
type reputationAdapter struct {
	r ReputationOracle
}

func (a *reputationAdapter) Reputation(ctx context.Context, agent model.AgentID) (float64, error) {
	return a.r.Reputation(ctx, string(agent))
}

func (a *reputationAdapter) History(ctx context.Context, agent model.AgentID) ([]float64, error) {
	return a.r.History(ctx, string(agent))
}

// sourceAdapter wraps a public UtilitySource to satisfy utility.Source.
type sourceAdapter struct {
	s UtilitySource
}

func (a *sourceAdapter) BaseUtility(ctx context.Context, agent model.AgentID, purpose model.PurposeTag) (float64, error) {
	return a.s.BaseUtility(ctx, string(agent), string(purpose))
}

func (a *sourceAdapter) Skills(ctx context.Context, agent model.AgentID) ([]model.Skill, error) {
	raw, err := a.s.Skills(ctx, string(agent))
	if err != nil {
		return nil, err
	}
	skills := make([]model.Skill, len(raw))
	for i, s := range raw {
		skills[i] = model.Skill(s)
	}
	return skills, nil
}

// directorAdapter wraps a public Director to satisfy executor.Director.
type directorAdapter struct {
	d Director
}

func (a *directorAdapter) Invite(ctx context.Context, id uuid.UUID, agent model.AgentID, purpose model.PurposeTag) (bool, error) {
	return a.d.Invite(ctx, id, string(agent), string(purpose))
}

func (a *directorAdapter) Negotiate(ctx context.Context, id uuid.UUID, agent model.AgentID, share float64) (bool, error) {
	return a.d.Negotiate(ctx, id, string(agent), share)
}

func (a *directorAdapter) Commit(ctx context.Context, id uuid.UUID, agent model.AgentID) (bool, error) {
	return a.d.Commit(ctx, id, string(agent))
}

// hookSink adapts an EventHook into a non-blocking engine.Sink. Hooks run
// in their own goroutine with a bounded deadline so a stuck hook cannot
// stall the formation pipeline.
func hookSink(hook EventHook, logger *slog.Logger) engine.Sink {
	return func(ev engine.Event) {
		pub := Event{
			Type:        string(ev.Type),
			CoalitionID: ev.CoalitionID,
			At:          ev.At,
			Payload:     ev.Payload,
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := hook.OnCoalitionEvent(ctx, pub); err != nil {
				logger.Warn("event hook failed", "type", pub.Type, "error", err)
			}
		}()
	}
}
