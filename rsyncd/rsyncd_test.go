package rsyncd_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/metrics"
	"github.com/boob-sbcm/rsynk/internal/testlogger"
	"github.com/boob-sbcm/rsynk/rsyncd"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func int32LE(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

func concat(parts ...[]byte) []byte {
	var b []byte
	for _, p := range parts {
		b = append(b, p...)
	}
	return b
}

func newServer(t *testing.T, opts ...rsyncd.Option) *rsyncd.Server {
	t.Helper()
	root := t.TempDir()
	fn := filepath.Join(root, "hello.txt")
	if err := os.WriteFile(fn, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(fn, 0o644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Unix(1500000000, 0)
	if err := os.Chtimes(fn, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	srv, err := rsyncd.NewServer(root, append([]rsyncd.Option{rsyncd.WithLogger(testlogger.New(t))}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return srv
}

// clientInput is what a protocol 31 client sends: its version, its compat
// flags and an empty filter list.
var clientInput = concat(int32LE(31), []byte{0x28}, int32LE(0))

func TestHandleCommand(t *testing.T) {
	m := metrics.New()
	srv := newServer(t, rsyncd.WithMetrics(m))

	var stdout bytes.Buffer
	args := []string{"rsync", "--server", "--sender", "-ve.LsfxC", "--checksum-seed=42", ".", "hello.txt"}
	if err := srv.HandleCommand(context.Background(), args, bytes.NewReader(clientInput), &stdout); err != nil {
		t.Fatal(err)
	}

	want := concat(
		int32LE(31),
		[]byte{0x28},
		int32LE(42),

		[]byte{0x01},
		[]byte{0x09}, []byte("hello.txt"),
		[]byte{0x00, 0x0b, 0x00},
		[]byte{0x59, 0x00, 0x2f, 0x68},
		[]byte{0xa4, 0x81, 0x00, 0x00},
		[]byte{0x00},
	)
	if diff := cmp.Diff(want, stdout.Bytes()); diff != "" {
		t.Errorf("session output: diff (-want +got):\n%s", diff)
	}

	const wantMetrics = `
# HELP rsynk_sessions_total Send sessions by result
# TYPE rsynk_sessions_total counter
rsynk_sessions_total{result="ok"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(wantMetrics), "rsynk_sessions_total"); err != nil {
		t.Error(err)
	}
}

func TestHandleCommandFailures(t *testing.T) {
	for _, tt := range []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "not a send request",
			args:    []string{"rsync", "--server", ".", "hello.txt"},
			wantErr: rsynk.ErrUnsupportedFeature,
		},
		{
			name:    "other program",
			args:    []string{"scp", "--server", "--sender", ".", "hello.txt"},
			wantErr: rsynk.ErrUnsupportedFeature,
		},
		{
			name:    "unknown option",
			args:    []string{"rsync", "--server", "--sender", "-q", ".", "hello.txt"},
			wantErr: rsynk.ErrArgumentParse,
		},
		{
			name:    "multiple paths",
			args:    []string{"rsync", "--server", "--sender", "-r", ".", "hello.txt", "other.txt"},
			wantErr: rsynk.ErrUnsupportedFeature,
		},
		{
			name:    "directories without content",
			args:    []string{"rsync", "--server", "--sender", "-d", ".", "hello.txt"},
			wantErr: rsynk.ErrUnsupportedFeature,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			srv := newServer(t, rsyncd.WithMetrics(m))
			var stdout bytes.Buffer
			err := srv.HandleCommand(context.Background(), tt.args, bytes.NewReader(clientInput), &stdout)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("HandleCommand(%q) = %v, want %v", tt.args, err, tt.wantErr)
			}
			// All of these are detected before the handshake starts.
			if stdout.Len() > 0 {
				t.Errorf("HandleCommand wrote %d bytes, want 0", stdout.Len())
			}
			if got, want := testutil.ToFloat64(m.SessionsCounter(metrics.Classify(err))), 1.0; got != want {
				t.Errorf("sessions counter = %v, want %v", got, want)
			}
		})
	}
}

func TestHandleCommandCanceled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout bytes.Buffer
	args := []string{"rsync", "--server", "--sender", ".", "hello.txt"}
	if err := srv.HandleCommand(ctx, args, bytes.NewReader(clientInput), &stdout); !errors.Is(err, context.Canceled) {
		t.Errorf("HandleCommand = %v, want %v", err, context.Canceled)
	}
}

func TestNewServer(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		name string
		root string
		opts []rsyncd.Option
	}{
		{name: "empty root", root: ""},
		{name: "missing root", root: filepath.Join(t.TempDir(), "missing")},
		{name: "file root", root: file},
		{
			name: "invalid protocol",
			root: t.TempDir(),
			opts: []rsyncd.Option{rsyncd.WithProtocol(rsyncd.Protocol{Version: 31, MinVersion: 32, MaxVersion: 31})},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rsyncd.NewServer(tt.root, tt.opts...); err == nil {
				t.Errorf("NewServer(%q) unexpectedly succeeded", tt.root)
			}
		})
	}
}

func ExampleNewServer() {
	rsyncServer, err := rsyncd.NewServer("/srv/music")
	if err != nil {
		panic(err)
	}

	// e.g. from an SSH exec request:
	args := []string{"rsync", "--server", "--sender", "-vlogDtpre.iLsfxC", ".", "albums/"}
	if err := rsyncServer.HandleCommand(context.Background(), args, os.Stdin, os.Stdout); err != nil {
		panic(err)
	}
}
