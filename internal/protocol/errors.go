package protocol

import "fmt"

// TransportError indicates a network-level failure (unreachable host,
// timeout, cancelled request) talking to the policy service.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates the policy service answered, but with something
// this client cannot use: an error status or a malformed body.
type ProtocolError struct {
	Op     string
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
