// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package driver

/*
#include <stddef.h>

typedef void *(*bridge_zalloc_fn)(size_t size);
typedef void (*bridge_zfree_fn)(void *ptr);

static void *bridge_call_zalloc(void *fn, size_t size) {
	return ((bridge_zalloc_fn)fn)(size);
}

static void bridge_call_zfree(void *fn, void *ptr) {
	((bridge_zfree_fn)fn)(ptr);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/nrclark/fusebridge/lib/membridge"
)

// Allocator returns a membridge.Allocator bound to the driver's
// exported zalloc/zfree pair. Memory it returns lives on the driver's
// heap and must only ever be released through the same pair.
func (h *Handle) Allocator() membridge.Allocator {
	return &nativeAllocator{zalloc: h.zalloc, zfree: h.zfree}
}

type nativeAllocator struct {
	zalloc unsafe.Pointer
	zfree  unsafe.Pointer
}

func (n *nativeAllocator) Alloc(size int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative allocation size %d", size)
	}
	if size == 0 {
		// zalloc(0) may legally return NULL; always request at least
		// one byte so NULL reliably means exhaustion.
		size = 1
	}
	ptr := C.bridge_call_zalloc(n.zalloc, C.size_t(size))
	if ptr == nil {
		return nil, fmt.Errorf("driver allocator returned NULL for %d bytes", size)
	}
	return ptr, nil
}

func (n *nativeAllocator) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	C.bridge_call_zfree(n.zfree, ptr)
}
