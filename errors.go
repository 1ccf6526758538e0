// errors.go - error kinds reported by the register allocation passes
package jasm

import (
	"errors"
)

// Pass errors. A nil error is the "ok" result; the pipeline is fail-fast,
// so the first non-nil error aborts the remaining stages.
var (
	// ErrNoHeapMemory is returned when the scratch arena cannot satisfy an
	// allocation because its configured byte limit has been reached.
	ErrNoHeapMemory = errors.New("no heap memory")

	// ErrInvalidState is returned for contract violations detected at
	// runtime, such as a jump node that declares tied registers.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidArgument is returned for malformed requests, such as a
	// stack cell with a non-power-of-two alignment.
	ErrInvalidArgument = errors.New("invalid argument")
)
