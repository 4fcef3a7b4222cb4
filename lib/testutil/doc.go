// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for fusebridge
// packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls.
//
// [WaitFor] polls a condition until it holds or the deadline passes.
// Use it for external state that has no channel to wait on, such as a
// mount appearing or a process exiting.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
