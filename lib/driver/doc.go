// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package driver loads a prebuilt native bridge driver — a shared
// object wrapping libfuse — and resolves its well-known exports: the
// zalloc/zfree allocator pair, the fixed-layout callback table, and
// the bridge_main entry point.
//
// Loading is strict: a missing or unloadable object is a [LoadError],
// a missing export is a [SymbolError] naming the symbol, and both are
// fatal before any mount is attempted. The loader also verifies the
// ABI descriptor set up front so that a descriptor/driver mismatch
// fails at load time instead of at the first dispatched operation.
//
// The canonical driver C source ships embedded in this package
// ([BridgeSource], [BridgeHeader]); an external builder (lib/ccbuild)
// compiles it into the loadable object at startup. The [Handle]
// records the temporary build directory so the process supervisor can
// remove it on teardown.
package driver
