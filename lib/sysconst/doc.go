// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package sysconst maps symbolic platform constant names (errno codes,
// stat mode bits, open flags) to their integer values.
//
// The bridge core never hardcodes platform integers; it asks a
// [Resolver]. Two implementations are provided: [Host], backed by the
// constant tables in golang.org/x/sys/unix, and [FromYAML], which
// loads a table produced by an external compiler-based discovery run
// (preprocessing errno.h and friends with the host cc). The discovery
// tool itself is an external collaborator; this package only consumes
// its output format.
package sysconst
