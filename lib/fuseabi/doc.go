// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuseabi declares the call signatures that the native bridge
// driver expects for every filesystem operation callback, along with
// the two fixed-layout records ([FileInfo] and [FileAttributes]) that
// cross the boundary by pointer.
//
// The package is purely declarative: it contains no cgo and no
// marshaling logic. [Descriptors] is the single source of truth for
// slot order in the driver's callback table — the marshaling layer
// installs trampolines in this order, and the driver loader refuses a
// driver whose descriptor set fails [Validate].
//
// Every callback returns a signed 32-bit integer: negative values are
// negated platform error codes, non-negative values mean success (for
// read, the number of bytes produced). The return type is therefore
// not part of a descriptor.
package fuseabi
