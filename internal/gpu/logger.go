//go:build !nogpu

package gpu

import (
	"log/slog"

	"github.com/gogpu/liveview"
)

// slogger returns the package logger. All logging in internal/gpu goes
// through this function; the root package owns the configured logger.
func slogger() *slog.Logger { return liveview.Logger() }
