// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import _ "embed"

//go:embed native/bridge.c
var bridgeSource []byte

//go:embed native/bridge.h
var bridgeHeader []byte

// BridgeSource returns the canonical C source of the native driver.
// The external builder writes it out and compiles it at startup; the
// Go side never compiles C itself.
func BridgeSource() []byte {
	return bridgeSource
}

// BridgeHeader returns the driver header declaring the callback table
// layout and the boundary structs. Kept in lockstep with
// lib/fuseabi — the layout tests guard one side, the compiler guards
// the other.
func BridgeHeader() []byte {
	return bridgeHeader
}
