// Package rsynk contains a server-side Go implementation of the rsync wire
// protocol, as spoken by rsync clients which invoke
// "rsync --server --sender" on the remote end (typically via SSH).
//
// The server negotiates the protocol version and compatibility flags, sends
// the checksum seed, consumes the filter list and transmits the file list
// using rsync's differential attribute encoding. File contents are not
// transferred.
package rsynk
