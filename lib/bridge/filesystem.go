// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import "github.com/nrclark/fusebridge/lib/fuseabi"

// Filesystem is the application-side contract. Every method returns 0
// (or, for Read, a byte count) on success and a negated platform
// errno on failure, resolved through a sysconst.Resolver.
//
// Methods are invoked from whatever thread the native driver
// dispatches on and must be independently reentrant.
type Filesystem interface {
	// Open validates an open request. The driver owns info; the
	// implementation may set Handle, DirectIO, and Nonseekable in
	// place.
	Open(path string, info *fuseabi.FileInfo) int

	// Readdir lists a directory. Entries must EXCLUDE the virtual
	// "." and ".." entries — the bridge always prepends them exactly
	// once. Entries are ignored when the returned status is negative.
	Readdir(path string) (int, []string)

	// Getattr returns the attributes of the entry at path. On a
	// negative status the returned attributes are discarded and the
	// driver-side record is left untouched. On success Mode must be
	// set.
	Getattr(path string) (int, fuseabi.FileAttributes)

	// Access checks permissions per access(2) mask semantics.
	Access(path string, mask uint32) int

	// Read produces up to size bytes at offset. A status >= 0 means
	// success and the returned data (truncated to size by the bridge)
	// is copied to the driver; empty data at or past end-of-file
	// yields a zero count. A negative status is returned unchanged.
	Read(path string, size, offset uint64, info *fuseabi.FileInfo) (int, []byte)

	// Write stores data at offset and returns the number of bytes
	// written or a negated errno.
	Write(path string, data []byte, offset uint64, info *fuseabi.FileInfo) int

	// Truncate resizes the entry at path.
	Truncate(path string, size uint64) int
}
