// Package config loads and validates engine configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all engine configuration.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Search gating. EnumerationCeiling is the largest total agent count
	// (initiator included) for which exhaustive bitmask enumeration runs.
	// Above it the Optimal and Game-Theoretic evaluators are skipped.
	// Unguarded 2^n enumeration is a denial-of-service risk, so this gate
	// is a correctness requirement, not a tuning knob.
	EnumerationCeiling int

	// Shapley computation. Exact over all orderings up to ShapleyExactMax
	// agents; Monte-Carlo with ShapleySamples seeded permutations above it.
	ShapleyExactMax int
	ShapleySamples  int
	RandSeed        int64

	// Trust thresholds.
	StrongBondThreshold float64 // pairwise trust above this is a strong bond
	VerificationFloor   float64 // avg trust below this flags the coalition high-risk
	MonitorWeakTrust    float64 // weak-link threshold once the request's own is gone

	// Stability and monitoring.
	StabilityThreshold    float64 // below this the optimizer proposes improvements
	StabilityFloor        float64 // below this the monitor recommends dissolution
	DefectionThreshold    float64 // defection probability above this recommends dissolution
	ReputationVarianceMax float64 // admission bound on reputation history variance
	MonitorHistorySize    int

	// Concurrency policy.
	MaxCoalitionsPerAgent int

	// Event broker.
	EventBufferSize int

	// HTTP request body cap in bytes.
	MaxRequestBodyBytes int64

	// Operational settings.
	LogLevel     string
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Oracle retry backoff for the single local retry per call.
	OracleRetryBackoff time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                  envInt("ARENA_PORT", 8090),
		ReadTimeout:           envDuration("ARENA_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:          envDuration("ARENA_WRITE_TIMEOUT", 30*time.Second),
		EnumerationCeiling:    envInt("ARENA_ENUMERATION_CEILING", 24),
		ShapleyExactMax:       envInt("ARENA_SHAPLEY_EXACT_MAX", 8),
		ShapleySamples:        envInt("ARENA_SHAPLEY_SAMPLES", 2000),
		RandSeed:              int64(envInt("ARENA_RAND_SEED", 1)),
		StrongBondThreshold:   envFloat("ARENA_STRONG_BOND_THRESHOLD", 80),
		VerificationFloor:     envFloat("ARENA_VERIFICATION_FLOOR", 30),
		MonitorWeakTrust:      envFloat("ARENA_MONITOR_WEAK_TRUST", 40),
		StabilityThreshold:    envFloat("ARENA_STABILITY_THRESHOLD", 60),
		StabilityFloor:        envFloat("ARENA_STABILITY_FLOOR", 35),
		DefectionThreshold:    envFloat("ARENA_DEFECTION_THRESHOLD", 0.6),
		ReputationVarianceMax: envFloat("ARENA_REPUTATION_VARIANCE_MAX", 150),
		MonitorHistorySize:    envInt("ARENA_MONITOR_HISTORY_SIZE", 32),
		MaxCoalitionsPerAgent: envInt("ARENA_MAX_COALITIONS_PER_AGENT", 3),
		EventBufferSize:       envInt("ARENA_EVENT_BUFFER_SIZE", 64),
		MaxRequestBodyBytes:   int64(envInt("ARENA_MAX_REQUEST_BODY_BYTES", 1<<20)),
		LogLevel:              envStr("ARENA_LOG_LEVEL", "info"),
		OTELEndpoint:          envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:          envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:           envStr("OTEL_SERVICE_NAME", "coalition-engine"),
		OracleRetryBackoff:    envDuration("ARENA_ORACLE_RETRY_BACKOFF", 50*time.Millisecond),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c Config) Validate() error {
	if c.EnumerationCeiling < 1 || c.EnumerationCeiling > 30 {
		return fmt.Errorf("config: ARENA_ENUMERATION_CEILING must be in [1,30], got %d", c.EnumerationCeiling)
	}
	if c.ShapleyExactMax < 1 {
		return fmt.Errorf("config: ARENA_SHAPLEY_EXACT_MAX must be positive")
	}
	if c.ShapleySamples < 1 {
		return fmt.Errorf("config: ARENA_SHAPLEY_SAMPLES must be positive")
	}
	if c.MaxCoalitionsPerAgent < 1 {
		return fmt.Errorf("config: ARENA_MAX_COALITIONS_PER_AGENT must be >= 1")
	}
	if c.EventBufferSize < 1 {
		return fmt.Errorf("config: ARENA_EVENT_BUFFER_SIZE must be positive")
	}
	if c.StrongBondThreshold < 0 || c.StrongBondThreshold > 100 {
		return fmt.Errorf("config: ARENA_STRONG_BOND_THRESHOLD must be in [0,100]")
	}
	if c.DefectionThreshold < 0 || c.DefectionThreshold > 1 {
		return fmt.Errorf("config: ARENA_DEFECTION_THRESHOLD must be in [0,1]")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
