package domain

import "fmt"

// ReadError wraps a failed file read. One bad file never aborts a batch;
// the payload builder absorbs these per file.
type ReadError struct {
	Name string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Name, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// TransportError reports a non-2xx status from the submission endpoint.
// Status and StatusText are surfaced to the user verbatim.
type TransportError struct {
	Status     int
	StatusText string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("submission failed: %d %s", e.Status, e.StatusText)
}

// ProtocolError reports a success response whose body could not be parsed
// or lacks a stream identifier.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad submission response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("bad submission response: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ConnectionError reports a stream transport failure. Terminal for the
// session it occurred on.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stream connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
