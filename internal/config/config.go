// Package config loads the process configuration from the environment once
// at startup. The resulting value is passed explicitly into every
// component; there is no ambient configuration state.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	TranscriptsDir string
	StateDir       string
	MaxSessions    int
	HealthTimeout  time.Duration
	Debug          bool
	Redact         bool

	LangfuseEnabled   bool
	LangfusePublicKey string
	LangfuseSecretKey string
	LangfuseHost      string

	OTLPEnabled  bool
	OTLPEndpoint string

	NATSEnabled bool
	NATSURL     string
	NATSToken   string

	PostgresEnabled bool
	DatabaseURL     string
}

func Load() Config {
	return Config{
		TranscriptsDir: expandHome(envStr("SCRIBE_TRANSCRIPTS_DIR", "~/.claude/projects")),
		StateDir:       expandHome(envStr("SCRIBE_STATE_DIR", "~/.claude/state")),
		MaxSessions:    envInt("SCRIBE_MAX_SESSIONS", 5),
		HealthTimeout:  envDur("SCRIBE_HEALTH_TIMEOUT", 2*time.Second),
		Debug:          envBool("SCRIBE_DEBUG", false),
		Redact:         envBool("SCRIBE_REDACT", true),

		LangfuseEnabled:   envBool("SCRIBE_LANGFUSE_ENABLED", false),
		LangfusePublicKey: envStr("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: envStr("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      envStr("LANGFUSE_HOST", "http://localhost:3050"),

		OTLPEnabled:  envBool("SCRIBE_OTLP_ENABLED", false),
		OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),

		NATSEnabled: envBool("SCRIBE_NATS_ENABLED", false),
		NATSURL:     envStr("NATS_URL", "nats://127.0.0.1:4222"),
		NATSToken:   envStr("NATS_TOKEN", ""),

		PostgresEnabled: envBool("SCRIBE_PG_ENABLED", false),
		DatabaseURL:     envStr("DATABASE_URL", ""),
	}
}

// CheckpointPath is the per-session processing state file.
func (c Config) CheckpointPath() string {
	return filepath.Join(c.StateDir, "scribe_state.json")
}

// QueuePath is the durable fallback queue for undelivered turns.
func (c Config) QueuePath() string {
	return filepath.Join(c.StateDir, "pending_traces.jsonl")
}

// LogPath is the hook log file.
func (c Config) LogPath() string {
	return filepath.Join(c.StateDir, "scribe.log")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
