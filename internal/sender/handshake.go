package sender

import (
	"fmt"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
)

// NegotiateVersion sends the server's protocol version and reads the
// client's. A client version outside of [MinVersion, MaxVersion] ends the
// session: nothing else is written in that case.
func NegotiateVersion(c *rsyncwire.Conn, proto Protocol) (int32, error) {
	if err := c.WriteInt32(proto.Version); err != nil {
		return 0, streamError(err)
	}
	remote, err := c.ReadInt32()
	if err != nil {
		return 0, streamError(err)
	}
	if remote < proto.MinVersion {
		return 0, fmt.Errorf("%w: client protocol version %d is older than the minimum version %d",
			rsynk.ErrUnsupportedProtocolVersion, remote, proto.MinVersion)
	}
	if remote > proto.MaxVersion {
		return 0, fmt.Errorf("%w: client protocol version %d is newer than the maximum version %d",
			rsynk.ErrUnsupportedProtocolVersion, remote, proto.MaxVersion)
	}
	return min(remote, proto.Version), nil
}

// ExchangeCompatFlags sends the server's compatibility flags and returns the
// flags the client sent back. The client's flags are returned as-is.
func ExchangeCompatFlags(c *rsyncwire.Conn, flags rsynk.CompatFlags) (rsynk.CompatFlags, error) {
	if err := c.WriteByte(byte(flags)); err != nil {
		return 0, streamError(err)
	}
	remote, err := c.ReadByte()
	if err != nil {
		return 0, streamError(err)
	}
	return rsynk.CompatFlags(remote), nil
}

// WriteChecksumSeed sends the session's checksum seed.
func WriteChecksumSeed(c *rsyncwire.Conn, seed int32) error {
	if err := c.WriteInt32(seed); err != nil {
		return streamError(err)
	}
	return nil
}
