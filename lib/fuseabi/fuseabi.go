// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package fuseabi

import "fmt"

// Operation identifies one filesystem operation slot in the driver's
// callback table.
type Operation int

// Operations in callback table slot order. The order must match the
// struct layout compiled into the native driver exactly.
const (
	OpOpen Operation = iota
	OpReaddir
	OpGetattr
	OpAccess
	OpRead
	OpWrite
	OpTruncate

	operationCount
)

// String returns the slot name as declared in the driver's callback
// struct ("open", "readdir", ...).
func (op Operation) String() string {
	switch op {
	case OpOpen:
		return "open"
	case OpReaddir:
		return "readdir"
	case OpGetattr:
		return "getattr"
	case OpAccess:
		return "access"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpTruncate:
		return "truncate"
	}
	return fmt.Sprintf("operation(%d)", int(op))
}

// ArgKind is the semantic type of one callback argument.
type ArgKind int

const (
	// ArgPath is a NUL-terminated path string owned by the driver for
	// the duration of the call.
	ArgPath ArgKind = iota

	// ArgFileInfo is a pointer to a driver-owned FileInfo record. The
	// callback may update its fields in place but must not replace it.
	ArgFileInfo

	// ArgAttrsOut is a pointer to a driver-owned FileAttributes record
	// that the callback fills on success and leaves untouched on
	// failure.
	ArgAttrsOut

	// ArgEntriesOut is a pointer to a slot that the callback points at
	// a NULL-terminated array of NUL-terminated strings built with the
	// driver's allocator. The driver frees the array and its elements.
	ArgEntriesOut

	// ArgBufferOut is a driver-allocated byte buffer the callback
	// copies result data into. Binary data, no terminator.
	ArgBufferOut

	// ArgBufferIn is a driver-owned byte buffer the callback copies
	// payload data out of before returning.
	ArgBufferIn

	// ArgSize is an unsigned 64-bit byte count.
	ArgSize

	// ArgOffset is an unsigned 64-bit byte offset.
	ArgOffset

	// ArgMask is the access(2) permission mask.
	ArgMask
)

// Descriptor declares the exact native signature of one operation
// callback: argument order and semantic argument types. All callbacks
// return a signed 32-bit status.
type Descriptor struct {
	Op   Operation
	Args []ArgKind
}

// descriptors is ordered by callback table slot. Signatures mirror the
// typedefs in the embedded bridge header.
var descriptors = []Descriptor{
	{Op: OpOpen, Args: []ArgKind{ArgPath, ArgFileInfo}},
	{Op: OpReaddir, Args: []ArgKind{ArgPath, ArgEntriesOut}},
	{Op: OpGetattr, Args: []ArgKind{ArgPath, ArgAttrsOut}},
	{Op: OpAccess, Args: []ArgKind{ArgPath, ArgMask}},
	{Op: OpRead, Args: []ArgKind{ArgPath, ArgBufferOut, ArgSize, ArgOffset, ArgFileInfo}},
	{Op: OpWrite, Args: []ArgKind{ArgPath, ArgBufferIn, ArgSize, ArgOffset, ArgFileInfo}},
	{Op: OpTruncate, Args: []ArgKind{ArgPath, ArgSize}},
}

// Descriptors returns the full descriptor set in callback table slot
// order. The returned slice is shared; callers must not modify it.
func Descriptors() []Descriptor {
	return descriptors
}

// Lookup returns the descriptor for op.
func Lookup(op Operation) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Op == op {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Validate checks that a descriptor set covers every operation exactly
// once, in callback table slot order. The driver loader runs this
// before exposing a callback table, making a descriptor/driver
// mismatch a load-time failure rather than undefined behavior at the
// first dispatched operation.
func Validate(set []Descriptor) error {
	if len(set) != int(operationCount) {
		return fmt.Errorf("descriptor set has %d entries, want %d", len(set), operationCount)
	}
	for i, d := range set {
		if d.Op != Operation(i) {
			return fmt.Errorf("descriptor %d is %q, want %q", i, d.Op, Operation(i))
		}
		if len(d.Args) == 0 {
			return fmt.Errorf("descriptor %q has no arguments", d.Op)
		}
		if d.Args[0] != ArgPath {
			return fmt.Errorf("descriptor %q does not start with a path argument", d.Op)
		}
	}
	return nil
}
