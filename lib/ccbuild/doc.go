// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package ccbuild compiles C sources into a loadable shared object
// using the host toolchain. It is the build collaborator the bridge
// core consumes: the core only ever sees the output path and the
// exported symbol set.
//
// The compiler is "cc" unless the CC environment variable overrides
// it, and CFLAGS (when set) replaces the default optimization flags —
// the same contract the historical build helper honored. Compilation
// failures are loud: the error carries the full command line and the
// compiler's combined output, and the partially-populated temporary
// directory is removed.
package ccbuild
