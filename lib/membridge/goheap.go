// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package membridge

import (
	"fmt"
	"sync"
	"unsafe"
)

// GoHeap returns an Allocator backed by Go-managed memory. It exists
// for in-process use — exercising the arena primitives in tests and
// staging argument vectors that never leave the controller. Memory
// from GoHeap must NEVER be handed to a native driver that will free
// it: the driver's deallocator and the Go runtime do not share a heap.
func GoHeap() *GoHeapAllocator {
	return &GoHeapAllocator{live: make(map[unsafe.Pointer][]byte)}
}

// GoHeapAllocator allocates zero-filled Go byte slices and pins them
// against garbage collection until freed.
type GoHeapAllocator struct {
	mu   sync.Mutex
	live map[unsafe.Pointer][]byte
}

// Alloc returns a pointer to size bytes of zeroed memory.
func (g *GoHeapAllocator) Alloc(size int) (unsafe.Pointer, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative allocation size %d", size)
	}
	if size == 0 {
		size = 1
	}
	buffer := make([]byte, size)
	ptr := unsafe.Pointer(&buffer[0])

	g.mu.Lock()
	g.live[ptr] = buffer
	g.mu.Unlock()
	return ptr, nil
}

// Free releases the allocation at ptr. Freeing nil or an unknown
// pointer is a no-op.
func (g *GoHeapAllocator) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	g.mu.Lock()
	delete(g.live, ptr)
	g.mu.Unlock()
}

// LiveCount returns the number of outstanding allocations. Tests use
// it to assert that builds and teardowns balance.
func (g *GoHeapAllocator) LiveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}
