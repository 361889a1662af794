package analysis

import "fmt"

// ErrorKind classifies provider failures so the supervisor can decide the
// fallback path by matching on kind instead of catching everything.
type ErrorKind string

const (
	// KindTimeout covers per-call timeouts and pipeline deadline expiry.
	KindTimeout ErrorKind = "timeout"
	// KindProvider covers auth, network, and throttling failures from the
	// external service.
	KindProvider ErrorKind = "provider"
	// KindUnavailable means a required dependency is missing entirely
	// (no client configured, ffmpeg not installed).
	KindUnavailable ErrorKind = "unavailable"
)

// Error is the typed failure returned by providers.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analysis %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("analysis %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func timeoutErr(op string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Err: err}
}

func providerErr(op string, err error) *Error {
	return &Error{Kind: KindProvider, Op: op, Err: err}
}

func unavailableErr(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}
