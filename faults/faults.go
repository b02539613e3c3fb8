// Package faults defines the error taxonomy of the payment core.
// Every failure surfaced to a caller carries a Kind so transports and
// schedulers can decide what is retryable without parsing messages.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind uint8

const (
	// Other is the zero kind for unclassified errors.
	Other Kind = iota
	// Decode: malformed Base64 or JSON in a parameter blob.
	Decode
	// MissingOrderReference: neither merchant nor gateway order field present.
	MissingOrderReference
	// MalformedCallback: a required callback field is missing.
	MalformedCallback
	// UnknownTransaction: reference lookup returned zero or multiple matches.
	UnknownTransaction
	// SignatureMismatch: recomputed signature differs from the candidate.
	SignatureMismatch
	// Validation: echoed amount or reference disagrees with local state.
	Validation
	// Transport: network or timeout failure on the synchronous gateway POST.
	Transport
	// Gateway: the REST endpoint rejected the request with an errorCode.
	Gateway
)

func (k Kind) String() string {
	switch k {
	case Decode:
		return "decode"
	case MissingOrderReference:
		return "missing order reference"
	case MalformedCallback:
		return "malformed callback"
	case UnknownTransaction:
		return "unknown transaction"
	case SignatureMismatch:
		return "signature mismatch"
	case Validation:
		return "validation"
	case Transport:
		return "transport"
	case Gateway:
		return "gateway"
	}
	return "other"
}

// Error is a classified failure with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error. err may be nil.
func E(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Ef builds a classified error with a formatted message.
func Ef(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err, or Other for foreign errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Other
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
