package observability

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/citizen-feed-service/internal/config"
)

// NewLogger builds the service logger from config. Unknown levels fall back
// to info; any format other than "text" produces JSON.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
