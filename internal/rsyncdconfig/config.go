// Package rsyncdconfig reads the rsynk daemon configuration file.
package rsyncdconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/sender"
)

type SSHListener struct {
	Address        string `toml:"address"`
	AuthorizedKeys string `toml:"authorized_keys"`
}

type Listener struct {
	HTTPMonitoring string      `toml:"http_monitoring"`
	AnonSSH        string      `toml:"anon_ssh"`
	AuthorizedSSH  SSHListener `toml:"authorized_ssh"`

	// HostKeyPath is the SSH host key, generated on first start. Defaults to
	// os.UserConfigDir()/rsynk/ssh_host_ed25519_key.
	HostKeyPath string `toml:"host_key_path"`

	// MaxSessions bounds the number of concurrent sessions on this listener.
	// Zero means no limit.
	MaxSessions int `toml:"max_sessions"`

	// IdleTimeout closes connections which neither sent nor received data
	// for the given duration, e.g. "5m". Empty means no timeout.
	IdleTimeout string `toml:"idle_timeout"`
}

// Idle returns the parsed IdleTimeout.
func (l Listener) Idle() (time.Duration, error) {
	if l.IdleTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("idle_timeout: %v", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("idle_timeout: negative duration %v", d)
	}
	return d, nil
}

// Protocol overrides the protocol parameters the server announces. Zero
// values keep the defaults.
type Protocol struct {
	Version     int32    `toml:"version"`
	MinVersion  int32    `toml:"min_version"`
	MaxVersion  int32    `toml:"max_version"`
	CompatFlags []string `toml:"compat_flags"`
}

type Config struct {
	// Root is the directory served to clients. Requested paths are resolved
	// relative to it.
	Root         string     `toml:"root"`
	Listeners    []Listener `toml:"listener"`
	Protocol     Protocol   `toml:"protocol"`
	DontRestrict bool       `toml:"dont_restrict"`
	LogLevel     string     `toml:"log_level"`
}

// SenderProtocol returns the protocol parameters with the configured
// overrides applied.
func (c *Config) SenderProtocol() (sender.Protocol, error) {
	proto := sender.DefaultProtocol
	if v := c.Protocol.Version; v != 0 {
		proto.Version = v
	}
	if v := c.Protocol.MinVersion; v != 0 {
		proto.MinVersion = v
	}
	if v := c.Protocol.MaxVersion; v != 0 {
		proto.MaxVersion = v
	}
	if names := c.Protocol.CompatFlags; names != nil {
		var flags rsynk.CompatFlags
		for _, name := range names {
			flag, ok := rsynk.CompatFlagByName(name)
			if !ok {
				return sender.Protocol{}, fmt.Errorf("unknown compat flag %q", name)
			}
			flags |= flag
		}
		proto.CompatFlags = flags
	}
	if err := proto.Validate(); err != nil {
		return sender.Protocol{}, err
	}
	return proto, nil
}

func FromString(input string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(input, &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown configuration keys: %v", undecoded)
	}
	return &cfg, nil
}

func FromFile(path string) (*Config, error) {
	input, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := FromString(string(input))
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return cfg, nil
}

// FromDefaultFiles loads os.UserConfigDir()/rsynk.toml. A missing file
// results in an empty configuration.
func FromDefaultFiles() (*Config, string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, "", err
	}
	fn := filepath.Join(configDir, "rsynk.toml")
	cfg, err := FromFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, fn, nil
		}
		return nil, "", err
	}
	return cfg, fn, nil
}
