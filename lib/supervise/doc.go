// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervise runs the native filesystem event loop in a child
// process and guarantees cleanup when it ends.
//
// The native event loop blocks its process until the filesystem is
// unmounted, and a crash inside a callback takes the whole process
// down with it. Running the loop in a re-exec'd copy of the current
// binary keeps the controlling process alive: it can unmount the
// filesystem, collect the child's exit status, and remove scratch
// directories no matter how the child ended.
//
// The child is marked through the environment (see Worker) rather
// than a flag so that the worker check can run before any argument
// parsing.
package supervise
