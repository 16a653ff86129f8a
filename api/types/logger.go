package types

import (
	"go.uber.org/zap"
)

// NewLogger returns the custom logger when set, otherwise a development logger in
// debug mode and a no-op logger in production.
func NewLogger(custom *zap.Logger, debug bool) *zap.Logger {
	if custom != nil {
		return custom
	}
	if debug {
		if logger, err := zap.NewDevelopment(); err == nil {
			return logger
		}
	}
	return zap.NewNop()
}
