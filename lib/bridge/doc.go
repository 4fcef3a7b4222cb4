// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge adapts application-level filesystem handlers into the
// fixed C ABI the native driver dispatches into, and back.
//
// An application implements [Filesystem], constructs a [Bridge] over a
// loaded driver handle, calls [Bridge.Install] to populate the
// driver's callback table, and finally [Bridge.Main] to hand control
// to the driver's event loop. Install must complete before Main — an
// unpopulated callback slot invoked by the driver is undefined
// behavior, so Main refuses to run on an uninstalled bridge.
//
// The marshaling rules live in marshal.go, one function per
// operation; the cgo-exported trampolines in callbacks.go only convert
// argument representations and delegate. Handler panics never cross
// the boundary: every operation is wrapped in a recover that logs the
// fault and returns a negated generic I/O error to the driver, since a
// Go panic unwinding through a foreign call frame is unrecoverable.
//
// Callbacks execute on whatever thread the driver dispatches from and
// the driver is not assumed single-threaded, so the marshaling path
// holds no mutable shared state.
package bridge
