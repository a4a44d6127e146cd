package sender

import (
	"fmt"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
)

// A length above spuriousFilterLength in place of the first filter rule is
// not a filter rule, but data some clients send ahead of the filter list.
// The next length field is the actual start of the list.
const spuriousFilterLength = 5 * 1024

// RecvFilterList consumes the filter list sent by the client. Only empty
// filter lists are supported: the rule bytes are never read, so any other
// list fails the session.
//
// exclude.c:recv_filter_list
func RecvFilterList(c *rsyncwire.Conn) error {
	length, err := c.ReadInt32()
	if err != nil {
		return streamError(err)
	}
	if length > spuriousFilterLength {
		length, err = c.ReadInt32()
		if err != nil {
			return streamError(err)
		}
	}
	const exclusionListEnd = 0
	if length != exclusionListEnd {
		return fmt.Errorf("%w: non-empty filter list received (first rule length %d)", rsynk.ErrUnsupportedFeature, length)
	}
	return nil
}
