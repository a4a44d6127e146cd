package rsyncostest

import (
	"bytes"
	"testing"

	"github.com/boob-sbcm/rsynk/internal/rsyncos"
	"github.com/boob-sbcm/rsynk/internal/testlogger"
)

// New returns an Env whose diagnostics go to t.Log() and whose standard
// streams are empty buffers. Restrictions are disabled, as landlock cannot
// be undone within the test process.
func New(t *testing.T) *rsyncos.Env {
	return &rsyncos.Env{
		Stdin:        &bytes.Buffer{},
		Stdout:       &bytes.Buffer{},
		Stderr:       &bytes.Buffer{},
		Logger:       testlogger.New(t),
		DontRestrict: true,
	}
}
