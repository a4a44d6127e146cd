package rsyncdconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/rsyncdconfig"
	"github.com/boob-sbcm/rsynk/internal/sender"
	"github.com/google/go-cmp/cmp"
)

func TestConfig(t *testing.T) {
	cfg, err := rsyncdconfig.FromString(`
root = "/srv/data"
log_level = "debug"

[protocol]
min_version = 31
compat_flags = ["safe_flist"]

[[listener]]
http_monitoring = "localhost:8738"

[[listener]]
anon_ssh = "localhost:22873"
max_sessions = 16
idle_timeout = "5m"

[[listener]]
authorized_ssh = { address = "localhost:22874", authorized_keys = "/etc/rsynk/authorized_keys" }
host_key_path = "/var/lib/rsynk/host_key"
`)
	if err != nil {
		t.Fatal(err)
	}

	want := &rsyncdconfig.Config{
		Root:     "/srv/data",
		LogLevel: "debug",
		Protocol: rsyncdconfig.Protocol{
			MinVersion:  31,
			CompatFlags: []string{"safe_flist"},
		},
		Listeners: []rsyncdconfig.Listener{
			{HTTPMonitoring: "localhost:8738"},
			{AnonSSH: "localhost:22873", MaxSessions: 16, IdleTimeout: "5m"},
			{
				AuthorizedSSH: rsyncdconfig.SSHListener{
					Address:        "localhost:22874",
					AuthorizedKeys: "/etc/rsynk/authorized_keys",
				},
				HostKeyPath: "/var/lib/rsynk/host_key",
			},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("unexpected config: diff (-want +got):\n%s", diff)
	}

	idle, err := cfg.Listeners[1].Idle()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := idle, 5*time.Minute; got != want {
		t.Errorf("Idle() = %v, want %v", got, want)
	}

	proto, err := cfg.SenderProtocol()
	if err != nil {
		t.Fatal(err)
	}
	wantProto := sender.Protocol{
		Version:     31,
		MinVersion:  31,
		MaxVersion:  31,
		CompatFlags: rsynk.CF_SAFE_FLIST,
	}
	if diff := cmp.Diff(wantProto, proto); diff != "" {
		t.Errorf("SenderProtocol(): diff (-want +got):\n%s", diff)
	}
}

func TestConfigErrors(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
	}{
		{name: "syntax", input: `root = `},
		{name: "unknown key", input: `modules = []`},
		{name: "unknown compat flag", input: "[protocol]\ncompat_flags = [\"inc_recursive\"]"},
		{name: "inverted version range", input: "[protocol]\nmin_version = 31\nmax_version = 30"},
		{name: "unsupported version", input: "[protocol]\nversion = 27\nmin_version = 27"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := rsyncdconfig.FromString(tt.input)
			if err != nil {
				return
			}
			if _, err := cfg.SenderProtocol(); err == nil {
				t.Errorf("config %q unexpectedly accepted", tt.input)
			}
		})
	}
}

func TestIdleTimeoutErrors(t *testing.T) {
	for _, timeout := range []string{"5", "soon", "-1s"} {
		l := rsyncdconfig.Listener{IdleTimeout: timeout}
		if _, err := l.Idle(); err == nil {
			t.Errorf("Idle(%q) unexpectedly succeeded", timeout)
		}
	}
}

func TestFromFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "rsynk.toml")
	if err := os.WriteFile(fn, []byte(`root = "/srv"`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := rsyncdconfig.FromFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := cfg.Root, "/srv"; got != want {
		t.Errorf("Root = %q, want %q", got, want)
	}
	if _, err := rsyncdconfig.FromFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Errorf("FromFile(missing) unexpectedly succeeded")
	}
}
