package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/location-intel-service/internal/config"
)

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT. The
// shared constructor also installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
}
