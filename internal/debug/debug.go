// Package debug provides conditional diagnostic logging.
//
// Debug logging is enabled by setting the GLV_DEBUG environment variable:
//
//	GLV_DEBUG=1 glv show
//
// When disabled (default), all functions are no-ops.
package debug

import (
	"log"
	"os"
	"sync/atomic"
)

var (
	enabled atomic.Bool
	logger  = log.New(os.Stderr, "[GLV_DEBUG] ", log.Ltime|log.Lmicroseconds)
)

func init() {
	if os.Getenv("GLV_DEBUG") != "" {
		enabled.Store(true)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// Log writes a printf-style message prefixed with the area it concerns.
func Log(area, format string, args ...any) {
	if !enabled.Load() {
		return
	}
	logger.Printf("["+area+"] "+format, args...)
}
