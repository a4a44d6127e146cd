// Package rsyncchecksum implements the checksum seed and the weak rolling
// checksum of the rsync protocol.
package rsyncchecksum

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/boob-sbcm/rsynk"
)

// seedSource is established once per process. The seeds it produces differ
// across process restarts, but are not cryptographically secure.
var seedSource = struct {
	sync.Mutex
	rnd *rand.Rand
}{
	rnd: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid()))),
}

// NewSeed returns a fresh checksum seed for one session. It is safe for
// concurrent use.
func NewSeed() int32 {
	seedSource.Lock()
	defer seedSource.Unlock()
	return seedSource.rnd.Int32()
}

// Checksum1 computes the weak checksum over all of buf.
func Checksum1(buf []byte) uint32 {
	if len(buf) == 0 {
		return 0
	}
	return RollingChecksum(buf, 0, len(buf)-1)
}

// RollingChecksum computes rsync's two-part weak checksum over
// buf[begin..end], both ends inclusive. s1 is the sum of all bytes, s2 the
// sum weighted 4,3,2,1 per group of four bytes.
func RollingChecksum(buf []byte, begin, end int) uint32 {
	window := buf[begin : end+1]
	n := len(window)

	var total uint64
	for _, b := range window {
		total += uint64(b)
	}

	var s1, s2 uint64
	var i int
	if n > 4 {
		for i = 0; i < (n - 4); i += 4 {
			s2 += 4*(s1+uint64(window[i])) +
				3*uint64(window[i+1]) +
				2*uint64(window[i+2]) +
				uint64(window[i+3])
			s1 += uint64(window[i]) +
				uint64(window[i+1]) +
				uint64(window[i+2]) +
				uint64(window[i+3])
		}
	}
	for ; i < n; i++ {
		s2 += total
	}
	return uint32(((total & 0xffff) + (s2 >> 16)) % 0xffffffff)
}

// StrongChecksum would compute the MD5-based strong checksum. It is not
// implemented and always fails.
func StrongChecksum(seed int32, buf []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: md5 strong checksum (%d bytes, seed %d)", rsynk.ErrUnsupportedFeature, len(buf), seed)
}
