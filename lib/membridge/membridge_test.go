// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package membridge

import (
	"bytes"
	"errors"
	"testing"
	"unsafe"
)

func TestAllocateAndCopyRoundTrip(t *testing.T) {
	heap := GoHeap()
	arena := New(heap, nil)

	payload := []byte("hello world")
	ptr, err := arena.AllocateAndCopy(payload, true)
	if err != nil {
		t.Fatalf("AllocateAndCopy: %v", err)
	}
	defer heap.Free(ptr)

	// len(s)+1 bytes back must be s followed by NUL.
	got := arena.ReadBytes(ptr, len(payload)+1)
	want := append([]byte("hello world"), 0)
	if !bytes.Equal(got, want) {
		t.Errorf("ReadBytes = %q, want %q", got, want)
	}
}

func TestAllocateAndCopyUnterminated(t *testing.T) {
	heap := GoHeap()
	arena := New(heap, nil)

	ptr, err := arena.AllocateAndCopy([]byte{0x01, 0x00, 0xff}, false)
	if err != nil {
		t.Fatalf("AllocateAndCopy: %v", err)
	}
	defer heap.Free(ptr)

	got := arena.ReadBytes(ptr, 3)
	if !bytes.Equal(got, []byte{0x01, 0x00, 0xff}) {
		t.Errorf("ReadBytes = %v, want [1 0 255]", got)
	}
}

func TestCopyIntoTerminates(t *testing.T) {
	heap := GoHeap()
	arena := New(heap, nil)

	dst, err := heap.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer heap.Free(dst)

	arena.CopyInto(dst, []byte("abc"), true)
	if got := arena.ReadBytes(dst, 4); !bytes.Equal(got, []byte{'a', 'b', 'c', 0}) {
		t.Errorf("ReadBytes = %v, want \"abc\\x00\"", got)
	}
}

func TestBuildStringArrayLayout(t *testing.T) {
	heap := GoHeap()
	arena := New(heap, nil)

	array, err := arena.BuildStringArray([][]byte{[]byte("a"), []byte("bb")}, true, true)
	if err != nil {
		t.Fatalf("BuildStringArray: %v", err)
	}
	defer arena.FreeStringArray(array)

	slots := unsafe.Slice((*unsafe.Pointer)(array), 3)
	if got := arena.ReadBytes(slots[0], 2); !bytes.Equal(got, []byte{'a', 0}) {
		t.Errorf("slot 0 = %v, want \"a\\x00\"", got)
	}
	if got := arena.ReadBytes(slots[1], 3); !bytes.Equal(got, []byte{'b', 'b', 0}) {
		t.Errorf("slot 1 = %v, want \"bb\\x00\"", got)
	}
	if slots[2] != nil {
		t.Error("slot 2 should be the NULL terminator")
	}
}

func TestBuildStringArrayUnterminatedArray(t *testing.T) {
	heap := GoHeap()
	arena := New(heap, nil)

	array, err := arena.BuildStringArray([][]byte{[]byte("x")}, false, false)
	if err != nil {
		t.Fatalf("BuildStringArray: %v", err)
	}
	slots := unsafe.Slice((*unsafe.Pointer)(array), 1)
	if got := arena.ReadBytes(slots[0], 1); !bytes.Equal(got, []byte{'x'}) {
		t.Errorf("slot 0 = %v, want \"x\"", got)
	}
	heap.Free(slots[0])
	heap.Free(array)
}

func TestFreeStringArrayBalances(t *testing.T) {
	heap := GoHeap()
	arena := New(heap, nil)

	array, err := arena.BuildStringArray([][]byte{[]byte("."), []byte(".."), []byte("hello")}, true, true)
	if err != nil {
		t.Fatalf("BuildStringArray: %v", err)
	}
	if heap.LiveCount() != 4 { // 3 strings + array block
		t.Fatalf("LiveCount = %d after build, want 4", heap.LiveCount())
	}
	arena.FreeStringArray(array)
	if heap.LiveCount() != 0 {
		t.Errorf("LiveCount = %d after free, want 0", heap.LiveCount())
	}
}

// failingAllocator fails the nth allocation.
type failingAllocator struct {
	inner  Allocator
	calls  int
	failOn int
}

func (f *failingAllocator) Alloc(size int) (unsafe.Pointer, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, errors.New("out of native memory")
	}
	return f.inner.Alloc(size)
}

func (f *failingAllocator) Free(ptr unsafe.Pointer) { f.inner.Free(ptr) }

func TestBuildStringArrayMidBuildFailureFreesEverything(t *testing.T) {
	heap := GoHeap()
	arena := New(&failingAllocator{inner: heap, failOn: 3}, nil)

	// Allocation order: array block, element 0, element 1 (fails).
	_, err := arena.BuildStringArray([][]byte{[]byte("aa"), []byte("bb"), []byte("cc")}, true, true)
	if err == nil {
		t.Fatal("expected mid-build allocation failure")
	}
	if heap.LiveCount() != 0 {
		t.Errorf("LiveCount = %d after failed build, want 0", heap.LiveCount())
	}
}

func TestReadString(t *testing.T) {
	heap := GoHeap()
	arena := New(heap, nil)

	ptr, err := arena.AllocateAndCopy([]byte("/hello"), true)
	if err != nil {
		t.Fatalf("AllocateAndCopy: %v", err)
	}
	defer heap.Free(ptr)

	if got := arena.ReadString(ptr, 64); got != "/hello" {
		t.Errorf("ReadString = %q, want %q", got, "/hello")
	}
	if got := arena.ReadString(nil, 64); got != "" {
		t.Errorf("ReadString(nil) = %q, want empty", got)
	}
}

func TestReadBytesZeroLength(t *testing.T) {
	arena := New(GoHeap(), nil)
	if got := arena.ReadBytes(nil, 0); got != nil {
		t.Errorf("ReadBytes(nil, 0) = %v, want nil", got)
	}
}
