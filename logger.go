package luabridge

import (
	"go.uber.org/zap"
)

// nopLogger is used when no logger is configured. Diagnostics (missing
// member probes, host callback failures, script errors) are emitted through
// the environment's logger; by default they go nowhere.
var nopLogger = zap.NewNop()

// WithLogger directs the environment's diagnostics to the given logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
