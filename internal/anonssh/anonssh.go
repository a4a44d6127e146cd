// Package anonssh serves rsynk sessions via SSH exec requests. Without
// authorized keys, any client is admitted.
package anonssh

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/binary"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/boob-sbcm/rsynk/internal/rsyncdconfig"
	"github.com/boob-sbcm/rsynk/internal/rsyncos"
	"github.com/google/renameio/v2"
	"github.com/google/shlex"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
)

// MainFunc runs the command line args of an exec request, with the SSH
// channel as stdin and stdout.
type MainFunc func(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error

type anonssh struct {
	main  MainFunc
	osenv *rsyncos.Env
}

// env is a Environment Variable request as per RFC4254 6.4.
type env struct {
	VariableName  string
	VariableValue string
}

// execR is a Command request as per RFC4254 6.5.
type execR struct {
	Command string
}

type session struct {
	channel ssh.Channel
	anonssh *anonssh
	started bool
}

func (s *session) request(ctx context.Context, req *ssh.Request) error {
	switch req.Type {

	case "env":
		var r env
		if err := ssh.Unmarshal(req.Payload, &r); err != nil {
			return err
		}
		s.anonssh.osenv.Logf("env request: %s=%s", r.VariableName, r.VariableValue)

	case "exec":
		if s.started {
			return errors.New("only one exec request per session")
		}
		var r execR
		if err := ssh.Unmarshal(req.Payload, &r); err != nil {
			return err
		}

		cmdline, err := shlex.Split(r.Command)
		if err != nil {
			return err
		}
		if len(cmdline) > 0 && filepath.Base(cmdline[0]) == "rsynk" {
			// invoked via rsync --rsync-path=rsynk
			cmdline[0] = "rsync"
		}

		s.anonssh.osenv.Logf("cmdline: %q", cmdline)
		// 2024/03/02 12:01:44 cmdline: ["rsync" "--server" "--sender" "-vlogDtpre.iLsfxC" "." "dir/"]
		s.started = true
		// Reply before the command can send its exit status.
		if req.WantReply {
			if err := req.Reply(true, nil); err != nil {
				return err
			}
		}
		go func() {
			stderr := s.channel.Stderr()
			err := s.anonssh.main(ctx, cmdline, s.channel, s.channel, stderr)
			if err != nil {
				fmt.Fprintf(stderr, "%s\n", err)
			}

			status := make([]byte, 4)
			if err != nil {
				binary.BigEndian.PutUint32(status, 1)
			}

			// See https://tools.ietf.org/html/rfc4254#section-6.10
			if _, err := s.channel.SendRequest("exit-status", false /* wantReply */, status); err != nil {
				s.anonssh.osenv.Logf("exit-status: %v", err)
			}
			s.channel.Close()
		}()
		return nil

	default:
		return fmt.Errorf("unknown request type: %q", req.Type)
	}

	if req.WantReply {
		return req.Reply(true, nil)
	}
	return nil
}

func (as *anonssh) handleSession(ctx context.Context, newChannel ssh.NewChannel) {
	channel, requests, err := newChannel.Accept()
	if err != nil {
		as.osenv.Logf("Could not accept channel (%s)", err)
		return
	}

	// Sessions have out-of-band requests such as "shell", "pty-req" and "env"
	go func(channel ssh.Channel, requests <-chan *ssh.Request) {
		s := session{
			channel: channel,
			anonssh: as,
		}
		for req := range requests {
			if err := s.request(ctx, req); err != nil {
				as.osenv.Logf("request(%q): %v", req.Type, err)
				errmsg := []byte(err.Error())
				// Append a trailing newline; the error message is
				// displayed as-is by ssh(1).
				if errmsg[len(errmsg)-1] != '\n' {
					errmsg = append(errmsg, '\n')
				}
				req.Reply(false, errmsg)
				channel.Write(errmsg)
				channel.Close()
			}
		}
	}(channel, requests)
}

func (as *anonssh) handleChannel(ctx context.Context, newChan ssh.NewChannel) {
	switch t := newChan.ChannelType(); t {
	case "session":
		as.handleSession(ctx, newChan)
	default:
		newChan.Reject(ssh.UnknownChannelType, fmt.Sprintf("unknown channel type: %q", t))
	}
}

func genHostKey(keyPath string) ([]byte, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	x509b, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	privateKeyPEM := &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: x509b,
	}
	b := pem.EncodeToMemory(privateKeyPEM)
	// Write atomically: a partially written key would fail every later start.
	if err := renameio.WriteFile(keyPath, b, 0o600); err != nil {
		return nil, err
	}
	return b, nil
}

type Listener struct {
	hostKey            ssh.Signer
	authorizedKeys     map[string]bool
	authorizedKeysPath string
	maxSessions        int
	idleTimeout        time.Duration
}

func ListenerFromConfig(osenv *rsyncos.Env, cfg rsyncdconfig.Listener) (*Listener, error) {
	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, err
		}
		hostKeyPath = filepath.Join(dir, "rsynk", "ssh_host_ed25519_key")
	}
	hostKey, err := loadHostKey(hostKeyPath)
	if err != nil {
		return nil, err
	}

	idle, err := cfg.Idle()
	if err != nil {
		return nil, err
	}
	if cfg.MaxSessions < 0 {
		return nil, fmt.Errorf("max_sessions: must not be negative, got %d", cfg.MaxSessions)
	}

	var authorizedKeys map[string]bool
	if cfg.AuthorizedSSH.Address != "" {
		if cfg.AuthorizedSSH.AuthorizedKeys == "" {
			return nil, fmt.Errorf("authorized_keys not specified")
		}

		var err error
		authorizedKeys, err = loadAuthorizedKeys(osenv, cfg.AuthorizedSSH.AuthorizedKeys)
		if err != nil {
			return nil, err
		}
	}

	return &Listener{
		hostKey:            hostKey,
		authorizedKeys:     authorizedKeys,
		authorizedKeysPath: cfg.AuthorizedSSH.AuthorizedKeys,
		maxSessions:        cfg.MaxSessions,
		idleTimeout:        idle,
	}, nil
}

func loadHostKey(path string) (ssh.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		b, err = genHostKey(path)
		if err != nil {
			return nil, err
		}
	}
	return ssh.ParsePrivateKey(b)
}

func loadAuthorizedKeys(osenv *rsyncos.Env, path string) (map[string]bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	result := make(map[string]bool)

	s := bufio.NewScanner(bytes.NewReader(b))
	for lineNum := 1; s.Scan(); lineNum++ {
		if tr := strings.TrimSpace(s.Text()); tr == "" || strings.HasPrefix(tr, "#") {
			continue
		}
		pubKey, _, _, _, err := ssh.ParseAuthorizedKey(s.Bytes())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %v", path, lineNum, err)
		}
		if keyType := pubKey.Type(); keyType == "ssh-rsa" {
			osenv.Logf("Warning: ignoring unsupported ssh-rsa key in %s:%d", path, lineNum)
			continue
		}
		result[string(pubKey.Marshal())] = true
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// idleConn closes the connection if no data was transferred in either
// direction for timeout.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *idleConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}

func (l *Listener) serverConfig(osenv *rsyncos.Env) *ssh.ServerConfig {
	config := &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, pubKey ssh.PublicKey) (*ssh.Permissions, error) {
			if l.authorizedKeys == nil {
				osenv.Logf("user %q successfully authorized from remote addr %s", conn.User(), conn.RemoteAddr())
				return nil, nil
			}
			if l.authorizedKeys[string(pubKey.Marshal())] {
				osenv.Logf("user %q successfully authorized from remote addr %s", conn.User(), conn.RemoteAddr())
				return nil, nil
			}
			return nil, fmt.Errorf("public key not found in %s", l.authorizedKeysPath)
		},
	}
	config.AddHostKey(l.hostKey)
	return config
}

// Serve accepts SSH connections on ln until ctx is canceled. At most
// maxSessions connections are served at a time; further connections wait
// in the listen backlog.
func Serve(ctx context.Context, osenv *rsyncos.Env, ln net.Listener, listener *Listener, main MainFunc) error {
	go func() {
		<-ctx.Done()
		ln.Close() // unblocks Accept()
	}()

	as := &anonssh{
		main:  main,
		osenv: osenv,
	}
	config := listener.serverConfig(osenv)

	osenv.Logf("SSH host key fingerprint: %s", ssh.FingerprintSHA256(listener.hostKey.PublicKey()))

	var eg errgroup.Group
	if listener.maxSessions > 0 {
		eg.SetLimit(listener.maxSessions)
	}
	defer eg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil // ignore expected 'use of closed network connection' error on context cancel
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return err
			}
			osenv.Logf("accept: %v", err)
			continue
		}
		if listener.idleTimeout > 0 {
			conn = &idleConn{Conn: conn, timeout: listener.idleTimeout}
		}

		eg.Go(func() error {
			as.serveConn(ctx, conn, config)
			return nil
		})
	}
}

func (as *anonssh) serveConn(ctx context.Context, conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	sconn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		as.osenv.Logf("handshake: %v", err)
		return
	}
	defer sconn.Close()

	// discard all out of band requests
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		as.handleChannel(ctx, newChannel)
	}
}
