// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

/*
#include <stdint.h>
#include <stdbool.h>

struct file_info {
	uint64_t handle;
	uint32_t flags;
	bool direct_io;
	bool nonseekable;
};

struct file_attributes {
	uint64_t size;
	uint32_t mode;
	uint32_t uid;
	uint32_t gid;
};
*/
import "C"

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// The trampolines below are the functions whose addresses end up in
// the driver's callback table. They convert representations (C string
// to Go string, typed pointer to unsafe.Pointer) and delegate every
// decision to the active bridge's do* functions.
//
// A callback arriving with no active bridge means registration was
// torn down while the event loop still runs; answer with a plain
// negated EIO rather than touching any state.

func fallbackErrno() C.int {
	return -C.int(unix.EIO)
}

//export fusebridgeOpen
func fusebridgeOpen(path *C.char, info *C.struct_file_info) C.int {
	b := active.Load()
	if b == nil {
		return fallbackErrno()
	}
	return C.int(b.doOpen(C.GoString(path), unsafe.Pointer(info)))
}

//export fusebridgeReaddir
func fusebridgeReaddir(path *C.char, entries ***C.char) C.int {
	b := active.Load()
	if b == nil {
		return fallbackErrno()
	}
	return C.int(b.doReaddir(C.GoString(path), unsafe.Pointer(entries)))
}

//export fusebridgeGetattr
func fusebridgeGetattr(path *C.char, attr *C.struct_file_attributes) C.int {
	b := active.Load()
	if b == nil {
		return fallbackErrno()
	}
	return C.int(b.doGetattr(C.GoString(path), unsafe.Pointer(attr)))
}

//export fusebridgeAccess
func fusebridgeAccess(path *C.char, mask C.uint32_t) C.int {
	b := active.Load()
	if b == nil {
		return fallbackErrno()
	}
	return C.int(b.doAccess(C.GoString(path), uint32(mask)))
}

//export fusebridgeRead
func fusebridgeRead(path *C.char, outbuf *C.char, size, offset C.uint64_t, info *C.struct_file_info) C.int {
	b := active.Load()
	if b == nil {
		return fallbackErrno()
	}
	return C.int(b.doRead(C.GoString(path), unsafe.Pointer(outbuf),
		uint64(size), uint64(offset), unsafe.Pointer(info)))
}

//export fusebridgeWrite
func fusebridgeWrite(path *C.char, inbuf *C.char, size, offset C.uint64_t, info *C.struct_file_info) C.int {
	b := active.Load()
	if b == nil {
		return fallbackErrno()
	}
	return C.int(b.doWrite(C.GoString(path), unsafe.Pointer(inbuf),
		uint64(size), uint64(offset), unsafe.Pointer(info)))
}

//export fusebridgeTruncate
func fusebridgeTruncate(path *C.char, size C.uint64_t) C.int {
	b := active.Load()
	if b == nil {
		return fallbackErrno()
	}
	return C.int(b.doTruncate(C.GoString(path), uint64(size)))
}
