// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"unsafe"

	"github.com/nrclark/fusebridge/lib/fuseabi"
)

// The do* functions hold the complete marshaling logic, one per
// operation, over raw boundary pointers. They are deliberately free
// of cgo so they can be exercised against plain Go memory — the
// boundary structs in lib/fuseabi are layout-identical to their C
// counterparts and the trampolines in callbacks.go only cast.

// contain is the MarshalFault policy: a handler panic is logged and
// converted to the generic negated I/O error instead of unwinding
// through the native call frame.
func (b *Bridge) contain(op string, status *int32) {
	if fault := recover(); fault != nil {
		b.logger.Error("filesystem handler fault contained at boundary",
			"op", op,
			"fault", fault,
		)
		*status = int32(b.eio)
	}
}

func (b *Bridge) doOpen(path string, infoPtr unsafe.Pointer) (status int32) {
	defer b.contain("open", &status)

	info := (*fuseabi.FileInfo)(infoPtr)
	return int32(b.fs.Open(path, info))
}

// virtualEntries are always prepended to readdir results; the
// application contract excludes them.
var virtualEntries = [][]byte{[]byte("."), []byte("..")}

func (b *Bridge) doReaddir(path string, entriesOut unsafe.Pointer) (status int32) {
	defer b.contain("readdir", &status)

	result, entries := b.fs.Readdir(path)
	if result < 0 {
		return int32(result)
	}

	listing := make([][]byte, 0, len(entries)+len(virtualEntries))
	listing = append(listing, virtualEntries...)
	for _, entry := range entries {
		listing = append(listing, []byte(entry))
	}

	array, err := b.arena.BuildStringArray(listing, true, true)
	if err != nil {
		b.logger.Error("building readdir entry array", "path", path, "error", err)
		return int32(b.eio)
	}
	*(*unsafe.Pointer)(entriesOut) = array
	return int32(result)
}

func (b *Bridge) doGetattr(path string, attrsPtr unsafe.Pointer) (status int32) {
	defer b.contain("getattr", &status)

	result, attributes := b.fs.Getattr(path)
	if result < 0 {
		// Failed resolution must leave the driver-side record at its
		// pre-call values.
		return int32(result)
	}

	out := (*fuseabi.FileAttributes)(attrsPtr)
	out.Size = attributes.Size
	out.Mode = attributes.Mode
	out.UID = attributes.UID
	out.GID = attributes.GID
	return int32(result)
}

func (b *Bridge) doAccess(path string, mask uint32) (status int32) {
	defer b.contain("access", &status)

	return int32(b.fs.Access(path, mask))
}

func (b *Bridge) doRead(path string, buffer unsafe.Pointer, size, offset uint64, infoPtr unsafe.Pointer) (status int32) {
	defer b.contain("read", &status)

	info := (*fuseabi.FileInfo)(infoPtr)
	result, data := b.fs.Read(path, size, offset, info)
	if result < 0 {
		return int32(result)
	}

	count := len(data)
	if uint64(count) > size {
		count = int(size)
	}
	if count > 0 {
		// Binary data: no terminator.
		b.arena.CopyInto(buffer, data[:count], false)
	}
	return int32(count)
}

func (b *Bridge) doWrite(path string, buffer unsafe.Pointer, size, offset uint64, infoPtr unsafe.Pointer) (status int32) {
	defer b.contain("write", &status)

	info := (*fuseabi.FileInfo)(infoPtr)
	data := b.arena.ReadBytes(buffer, int(size))
	return int32(b.fs.Write(path, data, offset, info))
}

func (b *Bridge) doTruncate(path string, size uint64) (status int32) {
	defer b.contain("truncate", &status)

	return int32(b.fs.Truncate(path, size))
}
