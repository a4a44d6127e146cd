// Package sender implements the sending side of an rsync session: protocol
// negotiation, the filter list phase and the file list.
package sender

import (
	"fmt"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/log"
	"github.com/boob-sbcm/rsynk/internal/rsyncopts"
	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
)

// Protocol is the process-wide protocol configuration. It is immutable once
// the server is running and shared by all sessions.
type Protocol struct {
	// Version is the protocol version the server announces.
	Version int32

	// MinVersion and MaxVersion bound the client versions the server
	// accepts.
	MinVersion int32
	MaxVersion int32

	// CompatFlags is the compatibility flag set the server advertises.
	CompatFlags rsynk.CompatFlags
}

var DefaultProtocol = Protocol{
	Version:     rsynk.ProtocolVersion,
	MinVersion:  rsynk.MinProtocolVersion,
	MaxVersion:  rsynk.MaxProtocolVersion,
	CompatFlags: rsynk.DefaultCompatFlags,
}

func (p Protocol) Validate() error {
	if p.MinVersion > p.MaxVersion {
		return fmt.Errorf("invalid protocol version range [%d, %d]", p.MinVersion, p.MaxVersion)
	}
	if p.Version < p.MinVersion || p.Version > p.MaxVersion {
		return fmt.Errorf("protocol version %d outside of range [%d, %d]", p.Version, p.MinVersion, p.MaxVersion)
	}
	if p.MinVersion < rsynk.MinProtocolVersion {
		return fmt.Errorf("protocol version %d not implemented (minimum: %d)", p.MinVersion, rsynk.MinProtocolVersion)
	}
	return nil
}

type Transfer struct {
	// config
	Logger   log.Logger
	Opts     *rsyncopts.Options
	Protocol Protocol
	Source   FileSource

	// state
	Conn *rsyncwire.Conn
	Seed int32
}

// streamError marks err as a failure of the underlying connection.
func streamError(err error) error {
	return fmt.Errorf("%w: %w", rsynk.ErrStreamFailure, err)
}
