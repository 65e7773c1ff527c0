package observability

import (
	"log/slog"

	"github.com/couchcryptid/snowpack-climatology/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const serviceName = "snowpack-climatology"

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT and tags
// every line with the service name.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
}
