package serde

import "github.com/pingcap/errors"

// Errors reported at the contract/driver boundary. Raise sites annotate
// them with context; the Is* predicates see through the annotations.
// Failures a concrete driver reports about its own wire format pass
// through the contract unchanged and match none of these.
var (
	ErrShapeMismatch    = errors.New("event stream does not match the expected shape")
	ErrUnknownField     = errors.New("unknown field")
	ErrDuplicateKey     = errors.New("duplicate mapping key")
	ErrTruncated        = errors.New("input truncated")
	ErrInvalidPrimitive = errors.New("primitive not representable in the target type")
)

// IsShapeMismatch reports whether err is ErrShapeMismatch, however annotated.
func IsShapeMismatch(err error) bool { return errors.Cause(err) == ErrShapeMismatch }

// IsUnknownField reports whether err is ErrUnknownField, however annotated.
func IsUnknownField(err error) bool { return errors.Cause(err) == ErrUnknownField }

// IsDuplicateKey reports whether err is ErrDuplicateKey, however annotated.
func IsDuplicateKey(err error) bool { return errors.Cause(err) == ErrDuplicateKey }

// IsTruncated reports whether err is ErrTruncated, however annotated.
func IsTruncated(err error) bool { return errors.Cause(err) == ErrTruncated }

// IsInvalidPrimitive reports whether err is ErrInvalidPrimitive, however annotated.
func IsInvalidPrimitive(err error) bool { return errors.Cause(err) == ErrInvalidPrimitive }
