// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package driver_test

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/nrclark/fusebridge/lib/ccbuild"
	"github.com/nrclark/fusebridge/lib/driver"
	"github.com/nrclark/fusebridge/lib/membridge"
)

// stubSource exports the full driver symbol contract without linking
// against libfuse, so loader tests run anywhere a C compiler exists.
const stubSource = `
#include <stdlib.h>

struct callbacks {
    void *open;
    void *readdir;
    void *getattr;
    void *access;
    void *read;
    void *write;
    void *truncate;
};

struct callbacks callbacks = {0};

void *zalloc(size_t size) { return calloc(1, size); }
void zfree(void *ptr) { free(ptr); }

int bridge_main(int argc, char *argv[])
{
    (void)argv;
    return argc;
}
`

// incompleteSource omits bridge_main.
const incompleteSource = `
#include <stdlib.h>

struct callbacks { void *open; };
struct callbacks callbacks = {0};

void *zalloc(size_t size) { return calloc(1, size); }
void zfree(void *ptr) { free(ptr); }
`

func requireCompiler(t *testing.T) {
	t.Helper()
	compiler := os.Getenv("CC")
	if compiler == "" {
		compiler = "cc"
	}
	if _, err := exec.LookPath(compiler); err != nil {
		t.Skipf("no C compiler available: %v", err)
	}
}

func buildStub(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub.c")
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	builder := &ccbuild.CC{}
	object, err := builder.Build([]string{path})
	if err != nil {
		t.Fatalf("building stub driver: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(filepath.Dir(object)) })
	return object
}

func TestOpenResolvesAllSymbols(t *testing.T) {
	requireCompiler(t)

	object := buildStub(t, stubSource)
	handle, err := driver.Open(object, driver.Options{TempDir: filepath.Dir(object)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer handle.Close()

	if handle.CallbackTable() == nil {
		t.Error("callback table address is nil")
	}
	if handle.EntryPoint() == nil {
		t.Error("entry point address is nil")
	}
	if handle.Path() != object {
		t.Errorf("Path() = %s, want %s", handle.Path(), object)
	}
	if handle.TempDir() != filepath.Dir(object) {
		t.Errorf("TempDir() = %s, want %s", handle.TempDir(), filepath.Dir(object))
	}
	if len(handle.Digest()) != 64 {
		t.Errorf("Digest() = %q, want 64 hex characters", handle.Digest())
	}
}

func TestOpenMissingObjectIsLoadError(t *testing.T) {
	_, err := driver.Open("/nonexistent/libbridge.so", driver.Options{})
	if err == nil {
		t.Fatal("expected error for missing object")
	}
	var loadErr *driver.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error is %T, want *driver.LoadError", err)
	}
}

func TestOpenMissingSymbolNamesIt(t *testing.T) {
	requireCompiler(t)

	object := buildStub(t, incompleteSource)
	_, err := driver.Open(object, driver.Options{})
	if err == nil {
		t.Fatal("expected error for driver missing bridge_main")
	}
	var symbolErr *driver.SymbolError
	if !errors.As(err, &symbolErr) {
		t.Fatalf("error is %T, want *driver.SymbolError", err)
	}
	if symbolErr.Symbol != driver.SymbolMain {
		t.Errorf("SymbolError.Symbol = %q, want %q", symbolErr.Symbol, driver.SymbolMain)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	requireCompiler(t)

	handle, err := driver.Open(buildStub(t, stubSource), driver.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// The loaded stub's allocator must interoperate with the arena: this
// is the allocator-mediated protocol end to end, minus fuse.
func TestNativeAllocatorRoundTrip(t *testing.T) {
	requireCompiler(t)

	handle, err := driver.Open(buildStub(t, stubSource), driver.Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer handle.Close()

	arena := membridge.New(handle.Allocator(), nil)

	array, err := arena.BuildStringArray(
		[][]byte{[]byte("."), []byte(".."), []byte("hello")}, true, true)
	if err != nil {
		t.Fatalf("BuildStringArray: %v", err)
	}

	slots := unsafe.Slice((*unsafe.Pointer)(array), 4)
	if got := arena.ReadBytes(slots[2], 6); !bytes.Equal(got, []byte("hello\x00")) {
		t.Errorf("slot 2 = %q, want \"hello\\x00\"", got)
	}
	if slots[3] != nil {
		t.Error("array is not NULL-terminated")
	}

	arena.FreeStringArray(array)
}
