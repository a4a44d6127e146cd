// Package maincmd implements the rsynk command line:
//   - with --server as its first argument, it serves one send session over
//     stdin/stdout (invoked by sshd, e.g. via rsync --rsync-path=rsynk)
//   - otherwise, it runs a daemon serving send sessions via SSH
package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/boob-sbcm/rsynk/internal/anonssh"
	"github.com/boob-sbcm/rsynk/internal/log"
	"github.com/boob-sbcm/rsynk/internal/metrics"
	"github.com/boob-sbcm/rsynk/internal/restrict"
	"github.com/boob-sbcm/rsynk/internal/rsyncdconfig"
	"github.com/boob-sbcm/rsynk/internal/rsyncopts"
	"github.com/boob-sbcm/rsynk/internal/rsyncos"
	"github.com/boob-sbcm/rsynk/internal/version"
	"github.com/boob-sbcm/rsynk/rsyncd"
)

// Main runs the command line args. cfg, if nil, is loaded from the
// configuration file.
func Main(ctx context.Context, osenv *rsyncos.Env, args []string, cfg *rsyncdconfig.Config) error {
	if len(args) > 1 && args[1] == "--server" {
		return serverMain(ctx, osenv, args, cfg)
	}
	return daemonMain(ctx, osenv, args, cfg)
}

func loadConfig(path string) (*rsyncdconfig.Config, error) {
	if path != "" {
		return rsyncdconfig.FromFile(path)
	}
	cfg, fn, err := rsyncdconfig.FromDefaultFiles()
	if err != nil {
		return nil, err
	}
	log.Printf("using config file %s (if present)", fn)
	return cfg, nil
}

// serverMain serves one session over stdin/stdout.
//
// calling convention: rsynk --server --sender -vlogDtpre.iLsfxC . path
func serverMain(ctx context.Context, osenv *rsyncos.Env, args []string, cfg *rsyncdconfig.Config) error {
	if cfg == nil {
		var err error
		if cfg, err = loadConfig(""); err != nil {
			return err
		}
	}

	// stderr is displayed by the rsync client, so only warnings go there
	// unless configured otherwise.
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	logger, err := newLogger(osenv.Stderr, level)
	if err != nil {
		return err
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	proto, err := cfg.SenderProtocol()
	if err != nil {
		return err
	}
	srv, err := rsyncd.NewServer(root,
		rsyncd.WithLogger(logger),
		rsyncd.WithProtocol(proto))
	if err != nil {
		return err
	}

	if osenv.Restrict() && !cfg.DontRestrict {
		if err := restrict.MaybeFileSystem([]string{root}, nil); err != nil {
			return err
		}
	}

	cmd := append([]string{rsyncopts.ProgramName}, args[1:]...)
	return srv.HandleCommand(ctx, cmd, osenv.Stdin, osenv.Stdout)
}

func daemonMain(ctx context.Context, osenv *rsyncos.Env, args []string, cfg *rsyncdconfig.Config) error {
	opts, opt := NewGetOpt()
	remaining, err := opt.Parse(args[1:])
	if opt.Called("help") {
		fmt.Fprint(osenv.Stderr, opt.Help())
		return nil
	}
	if err != nil {
		return err
	}
	if len(remaining) > 0 {
		return fmt.Errorf("unexpected arguments: %q", remaining)
	}
	if opts.Version {
		fmt.Fprintln(osenv.Stdout, version.Read())
		return nil
	}

	if cfg == nil {
		if cfg, err = loadConfig(opts.Config); err != nil {
			return err
		}
	}
	opts.apply(cfg)

	logger, err := newLogger(osenv.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	osenv.Logger = logger
	logger.Printf("%s, pid %d", version.Read(), os.Getpid())

	var (
		sshCfg     *rsyncdconfig.Listener
		monitoring string
	)
	for i, l := range cfg.Listeners {
		if l.HTTPMonitoring != "" {
			monitoring = l.HTTPMonitoring
		}
		if l.AnonSSH != "" || l.AuthorizedSSH.Address != "" {
			if sshCfg != nil {
				return errors.New("more than one SSH listener configured")
			}
			sshCfg = &cfg.Listeners[i]
		}
	}
	if sshCfg == nil {
		return errors.New("no SSH listener configured: specify -anonssh_listen or a [[listener]] in the config file")
	}
	if cfg.Root == "" {
		return errors.New("no root directory configured: specify -root or root in the config file")
	}

	proto, err := cfg.SenderProtocol()
	if err != nil {
		return err
	}
	m := metrics.New()
	srv, err := rsyncd.NewServer(cfg.Root,
		rsyncd.WithLogger(logger),
		rsyncd.WithProtocol(proto),
		rsyncd.WithMetrics(m))
	if err != nil {
		return err
	}

	// Load (or generate) the host key before dropping privileges.
	listener, err := anonssh.ListenerFromConfig(osenv, *sshCfg)
	if err != nil {
		return err
	}

	ln, err := listen(sshCfg)
	if err != nil {
		return err
	}

	if monitoring != "" {
		go func() {
			if err := serveMonitoring(ctx, monitoring, m); err != nil {
				logger.Printf("-monitoring_listen: %v", err)
			}
		}()
	}

	if osenv.Restrict() && !cfg.DontRestrict {
		if err := dropPrivileges(); err != nil {
			return err
		}
		if err := canUnexpectedlyWriteTo(srv.Root()); err != nil {
			return err
		}
		if err := restrict.MaybeFileSystem([]string{srv.Root()}, nil); err != nil {
			return err
		}
	}

	logger.Printf("serving %s via SSH on %s", srv.Root(), ln.Addr())
	return anonssh.Serve(ctx, osenv, ln, listener, func(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
		return srv.HandleCommand(ctx, args, stdin, stdout)
	})
}

func listen(l *rsyncdconfig.Listener) (net.Listener, error) {
	listeners, err := systemdListeners()
	if err != nil {
		return nil, err
	}
	if len(listeners) > 0 {
		return listeners[0], nil
	}
	addr := l.AnonSSH
	if addr == "" {
		addr = l.AuthorizedSSH.Address
	}
	log.Printf("not using systemd socket activation, creating listener on %s", addr)
	return net.Listen("tcp", addr)
}

func monitoringHandler(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func serveMonitoring(ctx context.Context, addr string, m *metrics.Metrics) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           monitoringHandler(m),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Printf("HTTP server for monitoring listening on http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
