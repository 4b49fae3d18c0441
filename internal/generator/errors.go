package generator

import (
	"fmt"

	"bincfg/internal/bincfgerr"
)

// errInvariant is a local alias kept for terse call sites inside
// phases.go; wraps the shared invariant-violation sentinel so callers
// outside the package can still match it with errors.Is.
var errInvariant = bincfgerr.ErrInvariantViolation

// wrapInvariant is a small helper for constructing a wrapped
// invariant-violation error with a formatted message.
func wrapInvariant(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errInvariant}, args...)...)
}
