// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package membridge

import (
	"fmt"
	"log/slog"
	"unsafe"
)

// pointerSize is the width of one slot in a string array.
const pointerSize = int(unsafe.Sizeof(unsafe.Pointer(nil)))

// Allocator allocates and frees memory on the native driver's heap.
// The production implementation calls the driver's exported
// zalloc/zfree symbols; allocations are zero-filled.
type Allocator interface {
	// Alloc returns a pointer to size bytes of zeroed native memory.
	Alloc(size int) (unsafe.Pointer, error)

	// Free releases memory previously returned by Alloc. Freeing nil
	// is a no-op.
	Free(ptr unsafe.Pointer)
}

// Arena builds and reads cross-boundary memory through a single
// Allocator. An Arena is stateless apart from its allocator and
// logger, and is safe for concurrent use by multiple callback threads.
type Arena struct {
	allocator Allocator
	logger    *slog.Logger
}

// New returns an Arena over the given allocator. A nil logger
// disables diagnostics.
func New(allocator Allocator, logger *slog.Logger) *Arena {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Arena{allocator: allocator, logger: logger}
}

// Allocator returns the allocator the arena was built with.
func (a *Arena) Allocator() Allocator {
	return a.allocator
}

// CopyInto writes data into already-allocated native memory at dst,
// appending a trailing NUL byte when terminate is set. The caller
// guarantees the destination holds at least len(data)+1 bytes when
// terminating, len(data) otherwise. No allocation is performed.
func (a *Arena) CopyInto(dst unsafe.Pointer, data []byte, terminate bool) {
	size := len(data)
	if terminate {
		size++
	}
	if size == 0 {
		return
	}
	target := unsafe.Slice((*byte)(dst), size)
	copy(target, data)
	if terminate {
		target[size-1] = 0
	}
}

// AllocateAndCopy allocates len(data) bytes of native memory (plus one
// for the terminator when terminate is set), copies data in, and
// returns the address. The caller owns the allocation and must release
// it through the arena's allocator.
func (a *Arena) AllocateAndCopy(data []byte, terminate bool) (unsafe.Pointer, error) {
	size := len(data)
	if terminate {
		size++
	}
	ptr, err := a.allocator.Alloc(size)
	if err != nil {
		return nil, fmt.Errorf("allocating %d bytes: %w", size, err)
	}
	a.CopyInto(ptr, data, terminate)
	return ptr, nil
}

// BuildStringArray allocates an array of pointer-sized slots, one per
// string plus a trailing NULL slot when terminateArray is set, and
// points each slot at a freshly allocated copy of the corresponding
// string. On a mid-build allocation failure everything already
// allocated is freed before the error is returned.
//
// Ownership of the array and every element transfers to whichever side
// asked for it to be built; release is via [Arena.FreeStringArray] or
// the driver's own teardown.
func (a *Arena) BuildStringArray(strings [][]byte, terminateStrings, terminateArray bool) (unsafe.Pointer, error) {
	count := len(strings)
	if terminateArray {
		count++
	}

	array, err := a.allocator.Alloc(count * pointerSize)
	if err != nil {
		return nil, fmt.Errorf("allocating %d-slot string array: %w", count, err)
	}
	slots := unsafe.Slice((*unsafe.Pointer)(array), count)

	for i, s := range strings {
		element, err := a.AllocateAndCopy(s, terminateStrings)
		if err != nil {
			for j := 0; j < i; j++ {
				a.allocator.Free(slots[j])
			}
			a.allocator.Free(array)
			return nil, fmt.Errorf("string array element %d: %w", i, err)
		}
		slots[i] = element
	}
	if terminateArray {
		slots[count-1] = nil
	}
	return array, nil
}

// ReadBytes copies length bytes of native memory starting at src into
// a freshly allocated Go slice. Used to pull write payloads back from
// the driver side.
func (a *Arena) ReadBytes(src unsafe.Pointer, length int) []byte {
	if length <= 0 {
		return nil
	}
	data := make([]byte, length)
	copy(data, unsafe.Slice((*byte)(src), length))
	return data
}

// ReadString reads a NUL-terminated native string of at most limit
// bytes starting at src. The terminator is not included in the result.
func (a *Arena) ReadString(src unsafe.Pointer, limit int) string {
	if src == nil {
		return ""
	}
	bytes := unsafe.Slice((*byte)(src), limit)
	for i, b := range bytes {
		if b == 0 {
			return string(bytes[:i])
		}
	}
	return string(bytes)
}

// FreeStringArray walks a NULL-terminated string array built by
// [Arena.BuildStringArray], freeing every element and then the array
// itself. Freeing nil is a no-op. Only arrays built with
// terminateArray set may be passed here — without the NULL sentinel
// the walk cannot know where to stop.
func (a *Arena) FreeStringArray(array unsafe.Pointer) {
	if array == nil {
		return
	}
	for i := 0; ; i++ {
		slot := *(*unsafe.Pointer)(unsafe.Add(array, i*pointerSize))
		if slot == nil {
			break
		}
		a.allocator.Free(slot)
	}
	a.allocator.Free(array)
}
