// Package log defines the logger interface used throughout rsynk.
package log

import (
	"fmt"
	"log"
)

// Logger logs messages.
type Logger interface {
	// Printf logs message to the underlaying log output. Arguments are handled in the manner of fmt.Printf.
	Printf(msg string, a ...interface{})
}

// instance is the global instance of the logger.
// Default logger is log.Logger.
var instance Logger = log.Default()

// Default returns the global logger.
func Default() Logger {
	return instance
}

// Printf logs message to the default logger.
func Printf(msg string, a ...interface{}) {
	instance.Printf(msg, a...)
}

// SetLogger overrides the default logger to use in rsynk.
// This should be call from the very beggining of the program.
func SetLogger(logger Logger) {
	instance = logger
}

type prefixed struct {
	prefix string
	logger Logger
}

func (p *prefixed) Printf(msg string, a ...interface{}) {
	p.logger.Printf("%s%s", p.prefix, fmt.Sprintf(msg, a...))
}

// WithPrefix returns a Logger which prepends "[prefix] " to every message,
// e.g. to tell concurrent sessions apart.
func WithPrefix(logger Logger, prefix string) Logger {
	return &prefixed{
		prefix: "[" + prefix + "] ",
		logger: logger,
	}
}
