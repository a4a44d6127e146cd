package log_test

import (
	"bytes"
	"fmt"
	golog "log"
	"testing"

	"github.com/boob-sbcm/rsynk/internal/log"
)

// make sure we won't panic for calling directly
func Test_DefaultLoggerUsage(t *testing.T) {
	log.Printf("foo")
	log.Printf("foo: %s", "bar")
}

type fakeLogger struct {
	out *bytes.Buffer
}

var _ log.Logger = (*fakeLogger)(nil)

func (f *fakeLogger) Printf(msg string, a ...any) {
	fmt.Fprintf(f.out, msg, a...)
}

func Test_SetLogger(t *testing.T) {
	defer func() {
		log.SetLogger(golog.Default())
	}()

	l := &fakeLogger{out: new(bytes.Buffer)}

	log.SetLogger(l)
	log.Printf("foo")
	log.Printf("foo: %s", "bar")

	if v := l.out.String(); v != "foofoo: bar" {
		t.Errorf("unexpected log output: %s", v)
	}
	if log.Default() != log.Logger(l) {
		t.Errorf("Default() did not return the logger set via SetLogger")
	}
}

func TestWithPrefix(t *testing.T) {
	l := &fakeLogger{out: new(bytes.Buffer)}
	pl := log.WithPrefix(l, "session-1")
	pl.Printf("sent %d entries", 3)
	if got, want := l.out.String(), "[session-1] sent 3 entries"; got != want {
		t.Errorf("unexpected log output: got %q, want %q", got, want)
	}
}
