package client

import "fmt"

// ErrorKind classifies client failures so callers can distinguish a slow
// server from a refused connection or a malformed reply.
type ErrorKind int

const (
	// KindTimeout means the server did not answer within the request
	// timeout.
	KindTimeout ErrorKind = iota
	// KindRefused means the transport could not reach the server.
	KindRefused
	// KindProtocol means the server answered with something the protocol
	// does not allow.
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRefused:
		return "refused"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by client operations.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
