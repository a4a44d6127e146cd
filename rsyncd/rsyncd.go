// Package rsyncd serves files to rsync clients which invoke
// "rsync --server --sender" on the remote side, e.g. via SSH.
package rsyncd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/log"
	"github.com/boob-sbcm/rsynk/internal/metrics"
	"github.com/boob-sbcm/rsynk/internal/rsyncopts"
	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
	"github.com/boob-sbcm/rsynk/internal/sender"
	"github.com/google/uuid"
)

// Protocol holds the protocol parameters a Server announces.
type Protocol = sender.Protocol

// DefaultProtocol announces protocol version 31 and accepts clients
// speaking versions 30 and 31.
var DefaultProtocol = sender.DefaultProtocol

// sendCommand is the command line prefix of a send request.
var sendCommand = []string{rsyncopts.ProgramName, "--server", "--sender"}

// Option specifies the server options.
type Option interface {
	applyServer(*Server)
}

type serverOptionFunc func(server *Server)

func (f serverOptionFunc) applyServer(s *Server) {
	f(s)
}

// WithLogger specifies the logger to use for the server.
// It also sets the global logger used by the rsynk package.
func WithLogger(logger rsynk.Logger) Option {
	return serverOptionFunc(func(s *Server) {
		s.logger = logger
		log.SetLogger(logger)
	})
}

// WithProtocol overrides DefaultProtocol.
func WithProtocol(proto Protocol) Option {
	return serverOptionFunc(func(s *Server) {
		s.protocol = proto
	})
}

// WithMetrics makes the server record session statistics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return serverOptionFunc(func(s *Server) {
		s.metrics = m
	})
}

type Server struct {
	logger   log.Logger
	root     string
	protocol Protocol
	metrics  *metrics.Metrics
}

// NewServer returns a Server which serves the directory root. Paths
// requested by clients are resolved relative to root and cannot escape it.
func NewServer(root string, opts ...Option) (*Server, error) {
	if root == "" {
		return nil, errors.New("no root directory configured")
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", root)
	}

	server := &Server{
		logger:   log.Default(),
		root:     root,
		protocol: DefaultProtocol,
	}

	for _, opt := range opts {
		opt.applyServer(server)
	}

	if err := server.protocol.Validate(); err != nil {
		return nil, err
	}

	return server, nil
}

// Root returns the directory served by s.
func (s *Server) Root() string { return s.root }

// matchCommand reports an error unless args start with the send command.
func matchCommand(args []string) error {
	if len(args) < len(sendCommand) || !slices.Equal(args[:len(sendCommand)], sendCommand) {
		return fmt.Errorf("%w: no command matches %q", rsynk.ErrUnsupportedFeature, args)
	}
	return nil
}

// HandleCommand runs the send session requested by the command line args
// (e.g. rsync --server --sender -vlogDtpre.iLsfxC . path) over stdin and
// stdout. args[0] must be "rsync".
//
// The session itself does not observe ctx once started: transports end a
// session by closing its stream, which fails the next read or write.
func (s *Server) HandleCommand(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger := log.WithPrefix(s.logger, uuid.New().String())
	s.metrics.SessionStarted()
	defer func() {
		s.metrics.SessionFinished(err)
		if err != nil {
			logger.Printf("session failed: %v", err)
		}
	}()

	if err := matchCommand(args); err != nil {
		return err
	}
	req, err := rsyncopts.Parse(args)
	if err != nil {
		return err
	}
	logger.Printf("options: %v, files: %q", req.Options.List(), req.Files)
	if info := req.Options.PreReleaseInfo(); info != "" {
		logger.Printf("client pre-release info: %q", info)
	}

	src, err := sender.NewRootSource(s.root)
	if err != nil {
		return err
	}
	defer src.Close()

	crd, cwr := rsyncwire.CounterPair(stdin, stdout)
	st := &sender.Transfer{
		Logger:   logger,
		Opts:     req.Options,
		Protocol: s.protocol,
		Source:   src,
		Conn: &rsyncwire.Conn{
			Reader: crd,
			Writer: cwr,
		},
		Seed: req.ChecksumSeed,
	}
	stats, err := st.Do(crd, cwr, req.Files)
	if err != nil {
		return err
	}
	s.metrics.RecordTransfer(stats.Read, stats.Written, stats.Entries)
	logger.Printf("sent %d file list entries (total size %d bytes), read %d bytes, wrote %d bytes",
		stats.Entries, stats.Size, stats.Read, stats.Written)
	return nil
}
