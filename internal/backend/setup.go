package backend

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/redact"
)

// FromConfig constructs every enabled adapter. A backend with missing
// credentials or a failing setup is disabled for the run with a log line;
// it never aborts the others.
func FromConfig(ctx context.Context, cfg config.Config, red *redact.Redactor, logger *slog.Logger) []Adapter {
	var adapters []Adapter

	if cfg.LangfuseEnabled {
		if cfg.LangfusePublicKey == "" || cfg.LangfuseSecretKey == "" {
			logger.Warn("langfuse enabled but API keys not set, disabling for this run")
		} else {
			adapters = append(adapters, NewLangfuse(
				cfg.LangfuseHost, cfg.LangfusePublicKey, cfg.LangfuseSecretKey,
				cfg.HealthTimeout, red, logger,
			))
		}
	}

	if cfg.OTLPEnabled {
		o, err := NewOTLP(ctx, cfg.OTLPEndpoint, cfg.HealthTimeout, red, logger)
		if err != nil {
			logger.Warn("otlp setup failed, disabling for this run", "error", err)
		} else {
			adapters = append(adapters, o)
		}
	}

	if cfg.NATSEnabled {
		n, err := NewNATS(cfg.NATSURL, cfg.NATSToken, red, logger)
		if err != nil {
			logger.Warn("nats connect failed, disabling for this run", "error", err)
		} else {
			adapters = append(adapters, n)
		}
	}

	if cfg.PostgresEnabled {
		if cfg.DatabaseURL == "" {
			logger.Warn("postgres enabled but DATABASE_URL not set, disabling for this run")
		} else {
			p, err := NewPostgres(ctx, cfg.DatabaseURL, red, logger)
			if err != nil {
				logger.Warn("postgres connect failed, disabling for this run", "error", err)
			} else {
				adapters = append(adapters, p)
			}
		}
	}

	return adapters
}
