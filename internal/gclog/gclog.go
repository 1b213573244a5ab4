// Package gclog provides the structured logger shared by the rc and
// collector packages. It wraps log/slog rather than pulling in a
// third-party logging framework, matching how logging is done
// elsewhere in this line of work: a thin, dependency-injectable
// wrapper over the standard library's structured logger.
package gclog

import (
	"log/slog"
	"os"
	"sync"
)

var (
	once sync.Once
	base *slog.Logger
)

// Default returns the package-wide logger. It is safe for concurrent
// use and is initialized lazily on first call so that importing this
// package never has a side effect at program startup.
func Default() *slog.Logger {
	once.Do(func() {
		base = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))
	})
	return base
}

// With returns a logger tagged with a component name, for attributing
// log lines to "rc" vs "collector" without either package depending on
// the other.
func With(component string) *slog.Logger {
	return Default().With("component", component)
}

// SetLevel adjusts the minimum level logged. Intended for tests that
// want to see Debug-level lifecycle events; production callers of this
// library are not expected to call it.
func SetLevel(level slog.Level) {
	once.Do(func() {})
	base = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
