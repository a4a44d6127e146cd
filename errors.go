package rsynk

import "errors"

// Each failure of a send session is reported wrapping exactly one of these
// errors, so that callers can classify it with errors.Is. None of them is
// recoverable within the session: the connection must be torn down.
var (
	// ErrUnsupportedProtocolVersion is returned when the client's protocol
	// version lies outside of the supported range.
	ErrUnsupportedProtocolVersion = errors.New("unsupported protocol version")

	// ErrUnsupportedFeature is returned for requests this server cannot
	// serve: non-empty filter lists, multiple paths, device, special file
	// or symlink transmission.
	ErrUnsupportedFeature = errors.New("unsupported feature")

	// ErrArgumentParse is returned for unknown or malformed command line
	// tokens. It is always returned before any protocol I/O.
	ErrArgumentParse = errors.New("argument parse error")

	// ErrStreamFailure is returned when reading from or writing to the
	// connection fails.
	ErrStreamFailure = errors.New("stream failure")
)
