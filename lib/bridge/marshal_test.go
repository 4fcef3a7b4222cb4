// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"bytes"
	"log/slog"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nrclark/fusebridge/lib/fuseabi"
	"github.com/nrclark/fusebridge/lib/membridge"
)

// fakeFS lets each test supply just the handlers it cares about.
// Unset handlers fail loudly.
type fakeFS struct {
	open     func(path string, info *fuseabi.FileInfo) int
	readdir  func(path string) (int, []string)
	getattr  func(path string) (int, fuseabi.FileAttributes)
	access   func(path string, mask uint32) int
	read     func(path string, size, offset uint64, info *fuseabi.FileInfo) (int, []byte)
	write    func(path string, data []byte, offset uint64, info *fuseabi.FileInfo) int
	truncate func(path string, size uint64) int
}

func (f *fakeFS) Open(path string, info *fuseabi.FileInfo) int { return f.open(path, info) }
func (f *fakeFS) Readdir(path string) (int, []string)          { return f.readdir(path) }
func (f *fakeFS) Getattr(path string) (int, fuseabi.FileAttributes) {
	return f.getattr(path)
}
func (f *fakeFS) Access(path string, mask uint32) int { return f.access(path, mask) }
func (f *fakeFS) Read(path string, size, offset uint64, info *fuseabi.FileInfo) (int, []byte) {
	return f.read(path, size, offset, info)
}
func (f *fakeFS) Write(path string, data []byte, offset uint64, info *fuseabi.FileInfo) int {
	return f.write(path, data, offset, info)
}
func (f *fakeFS) Truncate(path string, size uint64) int { return f.truncate(path, size) }

// testBridge builds a Bridge over Go-heap memory, bypassing the
// driver requirement. The marshaling logic is identical either way;
// only the allocator differs.
func testBridge(fs Filesystem) (*Bridge, *membridge.GoHeapAllocator) {
	heap := membridge.GoHeap()
	return &Bridge{
		fs:     fs,
		arena:  membridge.New(heap, nil),
		logger: slog.New(slog.DiscardHandler),
		eio:    -int(unix.EIO),
	}, heap
}

func TestOpenForwardsInfoInPlace(t *testing.T) {
	fs := &fakeFS{
		open: func(path string, info *fuseabi.FileInfo) int {
			if path != "/hello" {
				t.Errorf("path = %q, want /hello", path)
			}
			info.Handle = 42
			info.DirectIO = true
			return 0
		},
	}
	b, _ := testBridge(fs)

	info := fuseabi.FileInfo{Flags: 0x8000}
	status := b.doOpen("/hello", unsafe.Pointer(&info))
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	if info.Handle != 42 || !info.DirectIO {
		t.Errorf("info not updated in place: %+v", info)
	}
}

func TestReaddirPrependsVirtualEntries(t *testing.T) {
	fs := &fakeFS{
		readdir: func(path string) (int, []string) {
			return 0, []string{"hello", "moto"}
		},
	}
	b, heap := testBridge(fs)

	var array unsafe.Pointer
	status := b.doReaddir("/", unsafe.Pointer(&array))
	if status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	if array == nil {
		t.Fatal("entry array not written")
	}

	want := []string{".", "..", "hello", "moto"}
	slots := unsafe.Slice((*unsafe.Pointer)(array), len(want)+1)
	for i, entry := range want {
		got := b.arena.ReadString(slots[i], 256)
		if got != entry {
			t.Errorf("entry %d = %q, want %q", i, got, entry)
		}
	}
	if slots[len(want)] != nil {
		t.Error("entry array is not NULL-terminated")
	}

	b.arena.FreeStringArray(array)
	if heap.LiveCount() != 0 {
		t.Errorf("leaked %d allocations", heap.LiveCount())
	}
}

func TestReaddirEmptyListingStillHasVirtualEntries(t *testing.T) {
	fs := &fakeFS{
		readdir: func(path string) (int, []string) { return 0, nil },
	}
	b, _ := testBridge(fs)

	var array unsafe.Pointer
	if status := b.doReaddir("/empty", unsafe.Pointer(&array)); status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	slots := unsafe.Slice((*unsafe.Pointer)(array), 3)
	if got := b.arena.ReadString(slots[0], 8); got != "." {
		t.Errorf("slot 0 = %q, want \".\"", got)
	}
	if got := b.arena.ReadString(slots[1], 8); got != ".." {
		t.Errorf("slot 1 = %q, want \"..\"", got)
	}
	if slots[2] != nil {
		t.Error("missing NULL terminator")
	}
	b.arena.FreeStringArray(array)
}

func TestReaddirErrorWritesNoArray(t *testing.T) {
	fs := &fakeFS{
		readdir: func(path string) (int, []string) {
			return -int(unix.ENOENT), nil
		},
	}
	b, heap := testBridge(fs)

	var array unsafe.Pointer
	status := b.doReaddir("/missing", unsafe.Pointer(&array))
	if status != -int32(unix.ENOENT) {
		t.Errorf("status = %d, want %d", status, -int32(unix.ENOENT))
	}
	if array != nil {
		t.Error("array written despite error status")
	}
	if heap.LiveCount() != 0 {
		t.Errorf("leaked %d allocations", heap.LiveCount())
	}
}

func TestGetattrCopiesEveryField(t *testing.T) {
	fs := &fakeFS{
		getattr: func(path string) (int, fuseabi.FileAttributes) {
			return 0, fuseabi.FileAttributes{
				Size: 13,
				Mode: uint32(unix.S_IFREG) | 0444,
				UID:  1000,
				GID:  1000,
			}
		},
	}
	b, _ := testBridge(fs)

	var out fuseabi.FileAttributes
	if status := b.doGetattr("/hello", unsafe.Pointer(&out)); status != 0 {
		t.Fatalf("status = %d, want 0", status)
	}
	if out.Size != 13 || out.Mode != uint32(unix.S_IFREG)|0444 || out.UID != 1000 || out.GID != 1000 {
		t.Errorf("attributes not copied: %+v", out)
	}
}

func TestGetattrFailureLeavesOutputUntouched(t *testing.T) {
	fs := &fakeFS{
		getattr: func(path string) (int, fuseabi.FileAttributes) {
			// Payload must be discarded on failure.
			return -int(unix.ENOENT), fuseabi.FileAttributes{Size: 999, Mode: 0777}
		},
	}
	b, _ := testBridge(fs)

	sentinel := fuseabi.FileAttributes{Size: 0xDEAD, Mode: 0xBEEF, UID: 7, GID: 8}
	out := sentinel
	status := b.doGetattr("/missing", unsafe.Pointer(&out))
	if status != -int32(unix.ENOENT) {
		t.Errorf("status = %d, want %d", status, -int32(unix.ENOENT))
	}
	if out != sentinel {
		t.Errorf("output modified on failure: %+v", out)
	}
}

func TestReadCopiesAtMostSize(t *testing.T) {
	content := []byte("Hello World!\n")
	fs := &fakeFS{
		read: func(path string, size, offset uint64, info *fuseabi.FileInfo) (int, []byte) {
			return 0, content
		},
	}
	b, heap := testBridge(fs)

	buffer, err := heap.Alloc(5)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer heap.Free(buffer)

	var info fuseabi.FileInfo
	status := b.doRead("/hello", buffer, 5, 0, unsafe.Pointer(&info))
	if status != 5 {
		t.Fatalf("status = %d, want 5", status)
	}
	if got := b.arena.ReadBytes(buffer, 5); !bytes.Equal(got, []byte("Hello")) {
		t.Errorf("buffer = %q, want \"Hello\"", got)
	}
}

func TestReadPastEOFReturnsZeroWithoutCopy(t *testing.T) {
	fs := &fakeFS{
		read: func(path string, size, offset uint64, info *fuseabi.FileInfo) (int, []byte) {
			// Handler signals EOF with empty data.
			return 0, nil
		},
	}
	b, heap := testBridge(fs)

	buffer, err := heap.Alloc(8)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer heap.Free(buffer)
	sentinel := b.arena.ReadBytes(buffer, 8)

	var info fuseabi.FileInfo
	status := b.doRead("/hello", buffer, 8, 1000, unsafe.Pointer(&info))
	if status != 0 {
		t.Fatalf("status = %d, want 0 (EOF)", status)
	}
	if got := b.arena.ReadBytes(buffer, 8); !bytes.Equal(got, sentinel) {
		t.Error("buffer modified on EOF read")
	}
}

func TestReadErrorPassesThrough(t *testing.T) {
	fs := &fakeFS{
		read: func(path string, size, offset uint64, info *fuseabi.FileInfo) (int, []byte) {
			return -int(unix.EBADF), nil
		},
	}
	b, heap := testBridge(fs)

	buffer, _ := heap.Alloc(4)
	defer heap.Free(buffer)

	var info fuseabi.FileInfo
	if status := b.doRead("/x", buffer, 4, 0, unsafe.Pointer(&info)); status != -int32(unix.EBADF) {
		t.Errorf("status = %d, want %d", status, -int32(unix.EBADF))
	}
}

func TestWritePullsPayloadAcross(t *testing.T) {
	var received []byte
	var receivedOffset uint64
	fs := &fakeFS{
		write: func(path string, data []byte, offset uint64, info *fuseabi.FileInfo) int {
			received = data
			receivedOffset = offset
			return len(data)
		},
	}
	b, heap := testBridge(fs)

	payload := []byte{0x00, 0x01, 0xfe, 0xff}
	buffer, err := heap.Alloc(len(payload))
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	defer heap.Free(buffer)
	b.arena.CopyInto(buffer, payload, false)

	var info fuseabi.FileInfo
	status := b.doWrite("/file", buffer, uint64(len(payload)), 16, unsafe.Pointer(&info))
	if status != int32(len(payload)) {
		t.Fatalf("status = %d, want %d", status, len(payload))
	}
	if !bytes.Equal(received, payload) {
		t.Errorf("handler received %v, want %v", received, payload)
	}
	if receivedOffset != 16 {
		t.Errorf("offset = %d, want 16", receivedOffset)
	}
}

func TestAccessAndTruncateForwardDirectly(t *testing.T) {
	fs := &fakeFS{
		access: func(path string, mask uint32) int {
			if mask != uint32(unix.R_OK) {
				t.Errorf("mask = %d, want %d", mask, unix.R_OK)
			}
			return 0
		},
		truncate: func(path string, size uint64) int {
			if size != 1024 {
				t.Errorf("size = %d, want 1024", size)
			}
			return -int(unix.EROFS)
		},
	}
	b, _ := testBridge(fs)

	if status := b.doAccess("/hello", uint32(unix.R_OK)); status != 0 {
		t.Errorf("access status = %d, want 0", status)
	}
	if status := b.doTruncate("/hello", 1024); status != -int32(unix.EROFS) {
		t.Errorf("truncate status = %d, want %d", status, -int32(unix.EROFS))
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	fs := &fakeFS{
		getattr: func(path string) (int, fuseabi.FileAttributes) {
			panic("handler exploded")
		},
		readdir: func(path string) (int, []string) {
			panic("another explosion")
		},
	}
	b, _ := testBridge(fs)

	var out fuseabi.FileAttributes
	if status := b.doGetattr("/x", unsafe.Pointer(&out)); status != -int32(unix.EIO) {
		t.Errorf("getattr fault status = %d, want %d", status, -int32(unix.EIO))
	}

	var array unsafe.Pointer
	if status := b.doReaddir("/x", unsafe.Pointer(&array)); status != -int32(unix.EIO) {
		t.Errorf("readdir fault status = %d, want %d", status, -int32(unix.EIO))
	}
	if array != nil {
		t.Error("faulting readdir wrote an array")
	}
}
