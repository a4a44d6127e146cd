package sender

import (
	"fmt"

	"github.com/boob-sbcm/rsynk"
	"github.com/boob-sbcm/rsynk/internal/rsyncopts"
	"github.com/boob-sbcm/rsynk/internal/rsyncstats"
	"github.com/boob-sbcm/rsynk/internal/rsyncwire"
)

// validate rejects requests which cannot be served. It runs before any
// protocol I/O, as nothing written to the client can be taken back.
func (st *Transfer) validate(paths []string) error {
	if len(paths) != 1 {
		return fmt.Errorf("%w: exactly one path must be requested, got %d (%q)", rsynk.ErrUnsupportedFeature, len(paths), paths)
	}
	switch sel := st.Opts.FileSelection(); sel {
	case rsyncopts.NoDirectories, rsyncopts.RecurseDirectories:
	default:
		return fmt.Errorf("%w: directory mode %v", rsynk.ErrUnsupportedFeature, sel)
	}
	return nil
}

// Do runs one send session: version and compatibility flag negotiation,
// checksum seed, filter list and file list, strictly in that order.
//
// rsync/main.c:start_server am_sender
func (st *Transfer) Do(crd *rsyncwire.CountingReader, cwr *rsyncwire.CountingWriter, paths []string) (*rsyncstats.TransferStats, error) {
	if err := st.validate(paths); err != nil {
		return nil, err
	}

	version, err := NegotiateVersion(st.Conn, st.Protocol)
	if err != nil {
		return nil, err
	}
	st.Logger.Printf("protocol version %d negotiated", version)

	remoteFlags, err := ExchangeCompatFlags(st.Conn, st.Protocol.CompatFlags)
	if err != nil {
		return nil, err
	}
	st.Logger.Printf("compat flags: sent %v, received %v", st.Protocol.CompatFlags, remoteFlags)

	if err := WriteChecksumSeed(st.Conn, st.Seed); err != nil {
		return nil, err
	}

	if err := RecvFilterList(st.Conn); err != nil {
		return nil, err
	}
	st.Logger.Printf("filter list read")

	entries, err := st.ListFiles(paths[0])
	if err != nil {
		return nil, err
	}

	enc := NewFileListEncoder(st.Opts)
	if err := enc.Encode(st.Conn, entries); err != nil {
		return nil, err
	}
	if err := enc.Finish(st.Conn); err != nil {
		return nil, err
	}
	st.Logger.Printf("file list sent (entries: %d)", len(entries))

	var size int64
	for _, f := range entries {
		if f.Type == Regular {
			size += f.Size
		}
	}
	return &rsyncstats.TransferStats{
		Read:    crd.BytesRead,
		Written: cwr.BytesWritten,
		Size:    size,
		Entries: int64(len(entries)),
	}, nil
}
