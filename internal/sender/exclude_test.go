package sender_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
	"github.com/boob-sbcm/rsynk/internal/sender"
)

func TestRecvFilterList(t *testing.T) {
	for _, tt := range []struct {
		name     string
		input    []byte
		wantErr  error
		wantRest int // bytes left unread
	}{
		{
			name:  "empty",
			input: int32LE(0),
		},
		{
			name:     "empty, followed by more data",
			input:    append(int32LE(0), 1, 2, 3),
			wantRest: 3,
		},
		{
			name:  "spurious length",
			input: append(int32LE(5*1024+1), int32LE(0)...),
		},
		{
			name:    "threshold is not spurious",
			input:   append(int32LE(5*1024), int32LE(0)...),
			wantErr: rsynk.ErrUnsupportedFeature,
		},
		{
			name:    "spurious length, then a rule",
			input:   append(int32LE(10000), int32LE(3)...),
			wantErr: rsynk.ErrUnsupportedFeature,
		},
		{
			name:    "rule",
			input:   append(int32LE(4), []byte("- *~")...),
			wantErr: rsynk.ErrUnsupportedFeature,
		},
		{
			name:    "negative length",
			input:   int32LE(-1),
			wantErr: rsynk.ErrUnsupportedFeature,
		},
		{
			name:    "truncated",
			input:   []byte{0, 0},
			wantErr: rsynk.ErrStreamFailure,
		},
		{
			name:    "spurious length, then EOF",
			input:   int32LE(6000),
			wantErr: rsynk.ErrStreamFailure,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rd := bytes.NewReader(tt.input)
			c := &rsyncwire.Conn{Reader: rd, Writer: &bytes.Buffer{}}
			err := sender.RecvFilterList(c)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RecvFilterList = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got := rd.Len(); got != tt.wantRest {
				t.Errorf("RecvFilterList left %d bytes unread, want %d", got, tt.wantRest)
			}
		})
	}
}
