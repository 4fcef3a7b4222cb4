// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package membridge implements the allocator-mediated memory protocol
// between the Go runtime and a loaded native driver.
//
// Memory that the driver will later free — or that must stay valid
// after a callback returns — must come from the driver's own
// allocator: freeing host-runtime memory with the native deallocator
// (or vice versa) is undefined behavior. [Arena] is the single
// chokepoint enforcing that rule. Every cross-boundary allocation goes
// through the [Allocator] the arena was built with, which in
// production is bound to the driver's exported zalloc/zfree symbols.
//
// The primitives mirror what the callback contract needs: copying
// bytes into driver-allocated buffers (read), pulling bytes out of
// driver-owned buffers (write), and building NULL-terminated arrays of
// NUL-terminated strings (readdir results and the argv handed to the
// driver entry point).
package membridge
