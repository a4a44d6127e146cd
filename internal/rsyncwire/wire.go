// Package rsyncwire implements the primitive encodings of the rsync wire
// protocol: fixed-width little-endian integers, rsync's variable-length
// integers and byte counting for transfer statistics.
package rsyncwire

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Buffer assembles a wire record in memory so that it can be written to the
// connection in one piece, or not at all.
type Buffer struct {
	// buf.Write() never fails, making for a convenient API.
	buf bytes.Buffer
}

func (b *Buffer) WriteByte(data byte) {
	b.buf.WriteByte(data)
}

func (b *Buffer) WriteInt16(data uint16) {
	b.buf.Write(binary.LittleEndian.AppendUint16(nil, data))
}

func (b *Buffer) WriteInt32(data int32) {
	b.buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(data)))
}

// WriteVarint writes data in rsync's variable-length format with a minimum
// width of one byte (rsync/io.c:write_varint).
func (b *Buffer) WriteVarint(data int32) {
	b.buf.Write(AppendVarint(nil, data))
}

// WriteVarlong writes data in rsync's variable-length format using at least
// minBytes bytes (rsync/io.c:write_varlong).
func (b *Buffer) WriteVarlong(data int64, minBytes int) {
	b.buf.Write(AppendVarlong(nil, data, minBytes))
}

func (b *Buffer) WriteString(data string) {
	b.buf.WriteString(data)
}

func (b *Buffer) Reset() {
	b.buf.Reset()
}

func (b *Buffer) Len() int {
	return b.buf.Len()
}

func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

func (b *Buffer) String() string {
	return b.buf.String()
}

type Conn struct {
	Writer io.Writer
	Reader io.Reader
}

func (c *Conn) WriteByte(data byte) error {
	_, err := c.Writer.Write([]byte{data})
	return err
}

func (c *Conn) WriteInt32(data int32) error {
	_, err := c.Writer.Write(binary.LittleEndian.AppendUint32(nil, uint32(data)))
	return err
}

func (c *Conn) WriteString(data string) error {
	_, err := io.WriteString(c.Writer, data)
	return err
}

// WriteBuffer flushes an assembled record to the connection.
func (c *Conn) WriteBuffer(b *Buffer) error {
	_, err := c.Writer.Write(b.Bytes())
	return err
}

func (c *Conn) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(c.Reader, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *Conn) ReadInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(c.Reader, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (c *Conn) ReadVarint() (int32, error) {
	return ReadVarint(c.Reader)
}

func (c *Conn) ReadVarlong(minBytes int) (int64, error) {
	return ReadVarlong(c.Reader, minBytes)
}

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R         io.Reader
	BytesRead int64
}

func (r *CountingReader) Read(p []byte) (n int, err error) {
	n, err = r.R.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// CountingWriter counts the bytes written through it.
type CountingWriter struct {
	W            io.Writer
	BytesWritten int64
}

func (w *CountingWriter) Write(p []byte) (n int, err error) {
	n, err = w.W.Write(p)
	w.BytesWritten += int64(n)
	return n, err
}

func CounterPair(r io.Reader, w io.Writer) (*CountingReader, *CountingWriter) {
	crd := &CountingReader{R: r}
	cwr := &CountingWriter{W: w}
	return crd, cwr
}
