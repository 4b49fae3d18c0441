// Package bincfgerr defines the error taxonomy shared by the reader,
// instruction model, and flow generator.
package bincfgerr

import "errors"

// Sentinel errors. Callers wrap these with fmt.Errorf("...: %w", Err...)
// so that errors.Is still matches across package boundaries.
var (
	// ErrMalformedInput is returned when a disassembly or DWARF input
	// record does not match any recognized shape.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnknownArch is returned by the factory when no instruction
	// model is registered for the requested architecture name.
	ErrUnknownArch = errors.New("unknown architecture")

	// ErrUnknownMnemonic is returned by an instruction model when a
	// mnemonic is not present in its opcode table. Downgraded to a
	// logged warning and a NOP classification in ignore-errors mode.
	ErrUnknownMnemonic = errors.New("unknown mnemonic")

	// ErrUnresolvableTarget is returned when a branch/jump/call
	// instruction that should carry a literal target has none: its
	// operand is missing or cannot be parsed. Indirect control flow
	// (register targets) is not an error: the target set is empty.
	ErrUnresolvableTarget = errors.New("unresolvable target address")

	// ErrInvariantViolation marks a condition that should be impossible
	// by construction (a missing InsnMap entry at an address the
	// algorithm itself produced, a predicate promising a target count
	// it did not deliver). Callers may panic on this kind; it is a
	// programming error, not a data error.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrIO wraps any file open/read/write failure surfaced to the CLI.
	ErrIO = errors.New("i/o error")
)
