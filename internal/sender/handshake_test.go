package sender_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
	"github.com/boob-sbcm/rsynk/internal/sender"
	"github.com/google/go-cmp/cmp"
)

func int32LE(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}

func TestNegotiateVersion(t *testing.T) {
	proto := sender.DefaultProtocol
	for _, tt := range []struct {
		remote  int32
		want    int32
		wantErr error
	}{
		{remote: proto.MinVersion - 1, wantErr: rsynk.ErrUnsupportedProtocolVersion},
		{remote: proto.MinVersion, want: proto.MinVersion},
		{remote: proto.MaxVersion, want: proto.Version},
		{remote: proto.MaxVersion + 1, wantErr: rsynk.ErrUnsupportedProtocolVersion},
	} {
		t.Run(fmt.Sprint(tt.remote), func(t *testing.T) {
			var out bytes.Buffer
			c := &rsyncwire.Conn{
				Reader: bytes.NewReader(int32LE(tt.remote)),
				Writer: &out,
			}
			got, err := sender.NegotiateVersion(c, proto)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NegotiateVersion(%d) = %v, want %v", tt.remote, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NegotiateVersion(%d) = %d, want %d", tt.remote, got, tt.want)
			}
			// The server version is sent first, even if the client is
			// rejected afterwards.
			if diff := cmp.Diff(int32LE(proto.Version), out.Bytes()); diff != "" {
				t.Errorf("written bytes: diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNegotiateVersionOlderServer(t *testing.T) {
	proto := sender.Protocol{
		Version:    30,
		MinVersion: 30,
		MaxVersion: 31,
	}
	c := &rsyncwire.Conn{
		Reader: bytes.NewReader(int32LE(31)),
		Writer: &bytes.Buffer{},
	}
	got, err := sender.NegotiateVersion(c, proto)
	if err != nil {
		t.Fatal(err)
	}
	if want := int32(30); got != want {
		t.Errorf("NegotiateVersion = %d, want %d", got, want)
	}
}

func TestNegotiateVersionTruncated(t *testing.T) {
	c := &rsyncwire.Conn{
		Reader: bytes.NewReader([]byte{31, 0}),
		Writer: &bytes.Buffer{},
	}
	if _, err := sender.NegotiateVersion(c, sender.DefaultProtocol); !errors.Is(err, rsynk.ErrStreamFailure) {
		t.Errorf("NegotiateVersion = %v, want %v", err, rsynk.ErrStreamFailure)
	}
}

func TestExchangeCompatFlags(t *testing.T) {
	var out bytes.Buffer
	c := &rsyncwire.Conn{
		Reader: bytes.NewReader([]byte{0xff}),
		Writer: &out,
	}
	got, err := sender.ExchangeCompatFlags(c, rsynk.CF_SAFE_FLIST|rsynk.CF_CHKSUM_SEED_FIX)
	if err != nil {
		t.Fatal(err)
	}
	// The client's flags are returned unvalidated.
	if want := rsynk.CompatFlags(0xff); got != want {
		t.Errorf("ExchangeCompatFlags = %v, want %v", got, want)
	}
	want := []byte{byte(rsynk.CF_SAFE_FLIST | rsynk.CF_CHKSUM_SEED_FIX)}
	if diff := cmp.Diff(want, out.Bytes()); diff != "" {
		t.Errorf("written bytes: diff (-want +got):\n%s", diff)
	}
}

func TestWriteChecksumSeed(t *testing.T) {
	for _, seed := range []int32{0, 42, -1, 0x01020304} {
		var out bytes.Buffer
		c := &rsyncwire.Conn{Writer: &out}
		if err := sender.WriteChecksumSeed(c, seed); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(int32LE(seed), out.Bytes()); diff != "" {
			t.Errorf("WriteChecksumSeed(%d): diff (-want +got):\n%s", seed, diff)
		}
	}
}

func TestProtocolValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		proto   sender.Protocol
		wantErr bool
	}{
		{name: "default", proto: sender.DefaultProtocol},
		{name: "inverted range", proto: sender.Protocol{Version: 30, MinVersion: 31, MaxVersion: 30}, wantErr: true},
		{name: "version outside range", proto: sender.Protocol{Version: 29, MinVersion: 30, MaxVersion: 31}, wantErr: true},
		{name: "too old", proto: sender.Protocol{Version: 29, MinVersion: 27, MaxVersion: 31}, wantErr: true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.proto.Validate()
			if got := err != nil; got != tt.wantErr {
				t.Errorf("Validate() = %v, want error: %v", err, tt.wantErr)
			}
		})
	}
}
