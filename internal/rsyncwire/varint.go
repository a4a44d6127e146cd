package rsyncwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// intByteExtra maps the top 6 bits of a varint marker byte to the number of
// bytes which follow the first minBytes bytes (rsync/io.c:int_byte_extra).
var intByteExtra = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, /* (00 - 3F)/4 */
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, /* (40 - 7F)/4 */
	1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, /* (80 - BF)/4 */
	2, 2, 2, 2, 2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 5, 6, /* (C0 - FF)/4 */
}

// AppendVarint appends the variable-length encoding of x to dst
// (rsync/io.c:write_varint).
func AppendVarint(dst []byte, x int32) []byte {
	var b [5]byte
	binary.LittleEndian.PutUint32(b[1:], uint32(x))
	return appendMarked(dst, b[:], 4, 1)
}

// AppendVarlong appends the variable-length encoding of x to dst, using at
// least minBytes bytes (rsync/io.c:write_varlong). The protocol uses a
// minimum width of 3 for file sizes and 4 for modification times. Widths
// below 3 cannot represent every int64 unambiguously and are rejected.
func AppendVarlong(dst []byte, x int64, minBytes int) []byte {
	if minBytes < 3 || minBytes > 8 {
		panic(fmt.Sprintf("BUG: invalid varlong width %d", minBytes))
	}
	var b [9]byte
	binary.LittleEndian.PutUint64(b[1:], uint64(x))
	return appendMarked(dst, b[:], 8, minBytes)
}

// appendMarked encodes the little-endian value in b[1:size+1]. b[0] is
// scratch space for the marker byte.
func appendMarked(dst []byte, b []byte, size, minBytes int) []byte {
	cnt := size
	for cnt > minBytes && b[cnt] == 0 {
		cnt--
	}
	bit := byte(1) << (7 - cnt + minBytes)
	if b[cnt] >= bit {
		cnt++
		b[0] = ^(bit - 1)
	} else if cnt > minBytes {
		b[0] = b[cnt] | ^(bit*2 - 1)
	} else {
		b[0] = b[cnt]
	}
	return append(dst, b[:cnt]...)
}

// ReadVarint reads a value written by AppendVarint (rsync/io.c:read_varint).
func ReadVarint(r io.Reader) (int32, error) {
	var u [5]byte
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, err
	}
	ch := first[0]
	extra := intByteExtra[ch/4]
	if extra > 0 {
		if extra >= len(u) {
			return 0, fmt.Errorf("overflow in varint: marker byte %#x", ch)
		}
		bit := byte(1) << (8 - extra)
		if _, err := io.ReadFull(r, u[:extra]); err != nil {
			return 0, err
		}
		u[extra] = ch & (bit - 1)
	} else {
		u[0] = ch
	}
	return int32(binary.LittleEndian.Uint32(u[:4])), nil
}

// ReadVarlong reads a value written by AppendVarlong with the same minBytes
// (rsync/io.c:read_varlong).
func ReadVarlong(r io.Reader, minBytes int) (int64, error) {
	if minBytes < 1 || minBytes > 8 {
		return 0, fmt.Errorf("invalid varlong width %d", minBytes)
	}
	var u [9]byte
	var head [8]byte
	if _, err := io.ReadFull(r, head[:minBytes]); err != nil {
		return 0, err
	}
	copy(u[:], head[1:minBytes])
	ch := head[0]
	extra := intByteExtra[ch/4]
	if extra > 0 {
		if minBytes+extra > len(u) {
			return 0, fmt.Errorf("overflow in varlong: marker byte %#x, width %d", ch, minBytes)
		}
		bit := byte(1) << (8 - extra)
		if _, err := io.ReadFull(r, u[minBytes-1:minBytes-1+extra]); err != nil {
			return 0, err
		}
		u[minBytes+extra-1] = ch & (bit - 1)
	} else {
		u[minBytes-1] = ch
	}
	return int64(binary.LittleEndian.Uint64(u[:8])), nil
}
