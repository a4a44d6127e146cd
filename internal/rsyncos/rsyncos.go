// Package rsyncos bundles the process environment a command runs in, so
// that tests can substitute it.
package rsyncos

import (
	"fmt"
	"io"

	"github.com/boob-sbcm/rsynk/internal/log"
)

type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Logger receives diagnostic messages. If nil, messages are written
	// to Stderr.
	Logger log.Logger

	DontRestrict bool
}

func (s *Env) Restrict() bool { return !s.DontRestrict }

func (s *Env) Logf(format string, v ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, v...)
		return
	}
	if s.Stderr == nil {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		msg += "\n"
	}
	io.WriteString(s.Stderr, msg)
}
