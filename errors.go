// Copyright 2024 The ftlsim Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package ftlsim

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds named in the design: most are
// handled locally (NoSuitableVictim, Unmapped, HotnessTableFull).
// OutOfRange and NoFreeLines are returned by ftl.Partition.Write to its
// caller as ordinary errors; nothing in this module panics on them. Only
// InvariantViolation panics.
var (
	// ErrOutOfRange is returned when an LPN falls outside [0, TotalPgs).
	ErrOutOfRange = errors.New("ftlsim: lpn out of range")

	// ErrNoFreeLines means the free list is exhausted. Admission control
	// via write credits is supposed to make this unreachable; treat it
	// as fatal.
	ErrNoFreeLines = errors.New("ftlsim: no free lines left")

	// ErrNoSuitableVictim means GC was invoked but no line in the victim
	// priority queue meets the force/threshold criteria. The caller
	// should treat this as a no-op, not a failure.
	ErrNoSuitableVictim = errors.New("ftlsim: no suitable gc victim")

	// ErrHotnessTableFull means the open-addressed hotness table has no
	// free slot for a new LPN. The access update is dropped; writes
	// proceed unaffected.
	ErrHotnessTableFull = errors.New("ftlsim: hotness table full")

	// ErrUnmapped is returned by ftl.Partition.Read when none of the
	// requested LPNs has a mapping. The migration scan skips unmapped
	// LPNs without returning it.
	ErrUnmapped = errors.New("ftlsim: lpn is unmapped")
)

// InvariantViolation panics with a message identifying a block/line
// counter or mapping invariant that the design considers impossible to
// reach. These are assertions, not recoverable errors, not retryable
// ones.
func InvariantViolation(format string, args ...any) {
	panic(invariantError{fmt.Sprintf(format, args...)})
}

type invariantError struct{ msg string }

func (e invariantError) Error() string { return "ftlsim: invariant violation: " + e.msg }
