package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a failed gateway call.
type Kind int

const (
	// KindTransport covers network failures, timeouts, 5xx statuses and non-JSON bodies.
	KindTransport Kind = iota + 1
	// KindEnvelope covers JSON that lacks the expected keys or whose nested payload is malformed.
	KindEnvelope
	// KindRemote is an explicit error block returned by the platform.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindEnvelope:
		return "envelope"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Error is returned by every failed Call. All kinds mean the catalog is
// unavailable for this request; none are retried by the client.
type Error struct {
	Kind    Kind
	Method  string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("gateway %s error calling %s", e.Kind, e.Method)
	if e.Code != "" {
		msg += " [" + e.Code + "]"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return kindOf(err) == KindTransport }

// IsEnvelope reports whether err is an envelope decoding failure.
func IsEnvelope(err error) bool { return kindOf(err) == KindEnvelope }

// IsRemote reports whether err carries an error block from the platform.
func IsRemote(err error) bool { return kindOf(err) == KindRemote }

// IsUnavailable reports whether err came from the gateway at all.
func IsUnavailable(err error) bool { return kindOf(err) != 0 }
