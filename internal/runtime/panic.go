// Package runtime holds small process-lifetime helpers: panic recovery
// and the slog default-handler bootstrap, adapted from the reverse
// tool's internal/reverse/log package.
package runtime

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// SetupSlog installs a text slog handler on stderr, gated by debug.
// This is separate from internal/logging (which drives the charmbracelet
// logger used for user-facing CLI output); SetupSlog only backs
// RecoverPanic's crash reporting.
func SetupSlog(debugLevel bool) {
	initOnce.Do(func() {
		level := slog.LevelInfo
		if debugLevel {
			level = slog.LevelDebug
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:     level,
			AddSource: debugLevel,
		})
		slog.SetDefault(slog.New(handler))
		initialized.Store(true)
	})
}

// Initialized reports whether SetupSlog has run.
func Initialized() bool {
	return initialized.Load()
}

// RecoverPanic is deferred at the top of main (cmd/bincfg), so it covers
// every subcommand including the TUI. It logs the panic and
// stack trace, then runs an optional cleanup before letting the process
// continue unwinding normally (it does not re-panic).
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
