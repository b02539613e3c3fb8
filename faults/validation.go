package faults

import (
	"fmt"
	"strings"
)

// InvalidParameter is a single business-invariant mismatch found while
// reconciling a callback against local transaction state.
type InvalidParameter struct {
	Field    string
	Received string
	Expected string
}

func (p InvalidParameter) String() string {
	return fmt.Sprintf("%s: received %q, expected %q", p.Field, p.Received, p.Expected)
}

// ValidationError collects all invalid parameters of one callback so the
// caller sees the full mismatch list, not just the first.
type ValidationError struct {
	Parameters []InvalidParameter
}

func (v *ValidationError) Error() string {
	parts := make([]string, len(v.Parameters))
	for i, p := range v.Parameters {
		parts[i] = p.String()
	}
	return "invalid parameters: " + strings.Join(parts, "; ")
}

// Validation wraps the collected mismatches into a Validation-kind error.
func (v *ValidationError) Wrap() error {
	return E(Validation, "callback does not match transaction", v)
}

// InvalidParametersOf returns the mismatch list carried by err, if any.
func InvalidParametersOf(err error) []InvalidParameter {
	fe, ok := err.(*Error)
	if !ok {
		return nil
	}
	ve, ok := fe.Err.(*ValidationError)
	if !ok {
		return nil
	}
	return ve.Parameters
}
