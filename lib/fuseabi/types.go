// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package fuseabi

// FileInfo mirrors the driver's file_info struct, a reduced version of
// fuse_file_info with no bitfields. The driver owns the record for the
// lifetime of an open file descriptor; callbacks receive a pointer to
// it and may update fields in place, but must never reallocate it.
//
// Field order and widths must match the C declaration — the record
// crosses the boundary by pointer, not by marshaling.
type FileInfo struct {
	// Handle is an opaque 64-bit file handle chosen by the
	// application in open and passed back on read/write.
	Handle uint64

	// Flags carries the open(2) flags.
	Flags uint32

	// DirectIO requests bypassing the kernel page cache.
	DirectIO bool

	// Nonseekable marks the file as non-seekable.
	Nonseekable bool
}

// FileAttributes mirrors the driver's file_attributes struct, a
// reduced stat record. The application fills one per getattr call and
// the marshaling layer copies it field by field into driver-owned
// memory; ownership never crosses the boundary.
//
// Mode must be set on every successful getattr. An unset mode is a
// defect, not an "unknown" state.
type FileAttributes struct {
	Size uint64
	Mode uint32
	UID  uint32
	GID  uint32
}
