package maincmd

import (
	"github.com/DavidGamba/go-getoptions"
	"github.com/boob-sbcm/rsynk/internal/rsyncdconfig"
)

// Opts are the daemon command line flags. They override the corresponding
// configuration file settings.
type Opts struct {
	Config           string
	Root             string
	AnonSSHListen    string
	MonitoringListen string
	HostKeyPath      string
	MaxSessions      int
	IdleTimeout      string
	LogLevel         string
	DontRestrict     bool
	Version          bool
}

func NewGetOpt() (*Opts, *getoptions.GetOpt) {
	var opts Opts
	opt := getoptions.New()

	opt.Bool("help", false, opt.Alias("h"))
	opt.BoolVar(&opts.Version, "version", false, opt.Description("print the version and exit"))

	opt.StringVar(&opts.Config, "config", "", opt.Description("path to a config file (if unspecified, os.UserConfigDir()/rsynk.toml is used)"))
	opt.StringVar(&opts.Root, "root", "", opt.Description("directory to serve"))
	opt.StringVar(&opts.AnonSSHListen, "anonssh_listen", "", opt.Description("[host]:port listen address for rsync over anonymous SSH"))
	opt.StringVar(&opts.MonitoringListen, "monitoring_listen", "", opt.Description("optional [host]:port listen address for a HTTP debug and metrics interface"))
	opt.StringVar(&opts.HostKeyPath, "host_key", "", opt.Description("path to the SSH host key, generated if missing"))
	opt.IntVar(&opts.MaxSessions, "max_sessions", 0, opt.Description("maximum number of concurrent SSH connections (0: unlimited)"))
	opt.StringVar(&opts.IdleTimeout, "idle_timeout", "", opt.Description("close SSH connections after this long without traffic, e.g. 5m"))
	opt.StringVar(&opts.LogLevel, "log_level", "", opt.Description("one of panic, fatal, error, warn, info, debug, trace"))
	opt.BoolVar(&opts.DontRestrict, "dont_restrict", false, opt.Description("do not drop privileges or restrict file system access"))

	return &opts, opt
}

// apply overrides cfg with the flags which were set.
func (o *Opts) apply(cfg *rsyncdconfig.Config) {
	if o.Root != "" {
		cfg.Root = o.Root
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.DontRestrict {
		cfg.DontRestrict = true
	}
	if o.AnonSSHListen != "" {
		cfg.Listeners = append(cfg.Listeners, rsyncdconfig.Listener{
			AnonSSH:     o.AnonSSHListen,
			HostKeyPath: o.HostKeyPath,
			MaxSessions: o.MaxSessions,
			IdleTimeout: o.IdleTimeout,
		})
	}
	if o.MonitoringListen != "" {
		cfg.Listeners = append(cfg.Listeners, rsyncdconfig.Listener{
			HTTPMonitoring: o.MonitoringListen,
		})
	}
}
