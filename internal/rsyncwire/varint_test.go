package rsyncwire_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
	"github.com/google/go-cmp/cmp"
)

func TestAppendVarlong(t *testing.T) {
	for _, tt := range []struct {
		x        int64
		minBytes int
		want     []byte
	}{
		{x: 0, minBytes: 3, want: []byte{0x00, 0x00, 0x00}},
		{x: 1, minBytes: 3, want: []byte{0x00, 0x01, 0x00}},
		{x: 0x123456, minBytes: 3, want: []byte{0x12, 0x56, 0x34}},
		{x: 0x800000, minBytes: 3, want: []byte{0x80, 0x00, 0x00, 0x80}},
		{x: 0x1000000, minBytes: 3, want: []byte{0x81, 0x00, 0x00, 0x00}},
		{x: 1500000000, minBytes: 4, want: []byte{0x59, 0x00, 0x2f, 0x68}},
		{x: 0, minBytes: 4, want: []byte{0x00, 0x00, 0x00, 0x00}},
	} {
		got := rsyncwire.AppendVarlong(nil, tt.x, tt.minBytes)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("AppendVarlong(%#x, %d): unexpected encoding: diff (-want +got):\n%s", tt.x, tt.minBytes, diff)
		}
	}
}

func TestAppendVarint(t *testing.T) {
	for _, tt := range []struct {
		x    int32
		want []byte
	}{
		{x: 0, want: []byte{0x00}},
		{x: 1, want: []byte{0x01}},
		{x: 0x7f, want: []byte{0x7f}},
		{x: 0x80, want: []byte{0x80, 0x80}},
		{x: 1000, want: []byte{0x83, 0xe8}},
		{x: -1, want: []byte{0xf0, 0xff, 0xff, 0xff, 0xff}},
	} {
		got := rsyncwire.AppendVarint(nil, tt.x)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("AppendVarint(%d): unexpected encoding: diff (-want +got):\n%s", tt.x, diff)
		}
	}
}

func TestVarlongRoundTrip(t *testing.T) {
	values := []int64{
		0,
		1,
		127,
		128,
		255,
		256,
		0x7fffff,
		0x800000,
		0xffffff,
		0x1000000,
		1500000000,
		math.MaxInt32,
		1 << 40,
		math.MaxInt64,
		-1,
		math.MinInt64,
	}
	for _, minBytes := range []int{3, 4} {
		for _, v := range values {
			enc := rsyncwire.AppendVarlong(nil, v, minBytes)
			if len(enc) < minBytes {
				t.Errorf("AppendVarlong(%d, %d) = %d bytes, want at least %d", v, minBytes, len(enc), minBytes)
			}
			rd := bytes.NewReader(enc)
			got, err := rsyncwire.ReadVarlong(rd, minBytes)
			if err != nil {
				t.Fatalf("ReadVarlong(%x, %d): %v", enc, minBytes, err)
			}
			if got != v {
				t.Errorf("ReadVarlong(AppendVarlong(%d, %d)) = %d", v, minBytes, got)
			}
			if rd.Len() != 0 {
				t.Errorf("ReadVarlong(%x, %d) left %d bytes unread", enc, minBytes, rd.Len())
			}
		}
	}
}

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, 0x7f, 0x80, 1000, 65534, 65535, 1 << 24, math.MaxInt32, -1, math.MinInt32} {
		enc := rsyncwire.AppendVarint(nil, v)
		rd := bytes.NewReader(enc)
		got, err := rsyncwire.ReadVarint(rd)
		if err != nil {
			t.Fatalf("ReadVarint(%x): %v", enc, err)
		}
		if got != v {
			t.Errorf("ReadVarint(AppendVarint(%d)) = %d", v, got)
		}
		if rd.Len() != 0 {
			t.Errorf("ReadVarint(%x) left %d bytes unread", enc, rd.Len())
		}
	}
}

func TestReadVarlongTruncated(t *testing.T) {
	enc := rsyncwire.AppendVarlong(nil, 0x1000000, 3)
	if _, err := rsyncwire.ReadVarlong(bytes.NewReader(enc[:len(enc)-1]), 3); err == nil {
		t.Fatalf("ReadVarlong(truncated input) unexpectedly succeeded")
	}
}

func TestConnVarint(t *testing.T) {
	var buf rsyncwire.Buffer
	buf.WriteVarint(1000)
	buf.WriteVarlong(4096, 3)
	buf.WriteVarlong(1500000000, 4)

	var out bytes.Buffer
	c := &rsyncwire.Conn{
		Reader: bytes.NewReader(buf.Bytes()),
		Writer: &out,
	}
	if v, err := c.ReadVarint(); err != nil || v != 1000 {
		t.Errorf("ReadVarint() = %d, %v; want 1000, nil", v, err)
	}
	if v, err := c.ReadVarlong(3); err != nil || v != 4096 {
		t.Errorf("ReadVarlong(3) = %d, %v; want 4096, nil", v, err)
	}
	if v, err := c.ReadVarlong(4); err != nil || v != 1500000000 {
		t.Errorf("ReadVarlong(4) = %d, %v; want 1500000000, nil", v, err)
	}

	if err := c.WriteBuffer(&buf); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(buf.Bytes(), out.Bytes()); diff != "" {
		t.Errorf("WriteBuffer: unexpected output: diff (-want +got):\n%s", diff)
	}
}
