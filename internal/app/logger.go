package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide logger. Deployments set LOG_FORMAT=json
// for ingestion; anything else gets the human-readable text handler. Source
// locations are always attached.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
