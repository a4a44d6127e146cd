// Package testlogger routes session log output to the testing package's
// t.Log(), so that it shows up next to the failing test only.
package testlogger

import (
	"sync"
	"testing"
)

// Logger implements log.Logger on top of a testing.TB.
type Logger struct {
	tb testing.TB

	mu   sync.Mutex
	done bool
}

func New(tb testing.TB) *Logger {
	tl := &Logger{tb: tb}
	tb.Cleanup(func() {
		// Sessions may still log from goroutines after the test returned,
		// which testing.T does not permit.
		tl.mu.Lock()
		defer tl.mu.Unlock()
		tl.done = true
	})
	return tl
}

func (tl *Logger) Printf(msg string, a ...interface{}) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.done {
		return
	}
	tl.tb.Helper()
	tl.tb.Logf(msg, a...)
}
