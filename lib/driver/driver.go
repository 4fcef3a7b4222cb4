// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package driver

/*
#cgo LDFLAGS: -ldl

#include <dlfcn.h>
#include <stdlib.h>

static void *bridge_dlopen(const char *path) {
	return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static char *bridge_dlerror(void) {
	return dlerror();
}

// Clear any stale dlerror, resolve the symbol, and report the error
// (if any) alongside the result. A NULL-valued symbol and a lookup
// failure are otherwise indistinguishable.
static void *bridge_dlsym(void *handle, const char *name, char **err) {
	dlerror();
	void *sym = dlsym(handle, name);
	char *e = dlerror();
	if (e != NULL) {
		if (err != NULL) {
			*err = e;
		}
		return NULL;
	}
	if (err != NULL) {
		*err = NULL;
	}
	return sym;
}

static int bridge_dlclose(void *handle) {
	return dlclose(handle);
}
*/
import "C"

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"github.com/nrclark/fusebridge/lib/fuseabi"
)

// Symbol names every loadable driver must export.
const (
	SymbolAlloc     = "zalloc"
	SymbolFree      = "zfree"
	SymbolCallbacks = "callbacks"
	SymbolMain      = "bridge_main"
)

// LoadError reports a shared object that could not be opened. Fatal;
// no retry.
type LoadError struct {
	Path   string
	Detail string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading driver %s: %s", e.Path, e.Detail)
}

// SymbolError reports a required export absent from a loaded driver.
type SymbolError struct {
	Path   string
	Symbol string
	Detail string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("driver %s is missing required symbol %q: %s", e.Path, e.Symbol, e.Detail)
}

// Options configures driver loading.
type Options struct {
	// TempDir is the temporary directory holding the compiled driver,
	// recorded for supervisor cleanup. Empty when the driver was not
	// built into a throwaway directory.
	TempDir string

	// Logger receives diagnostics. If nil, diagnostics are discarded.
	Logger *slog.Logger
}

// Handle is one loaded native driver. Exactly one callback table
// exists per Handle; its lifetime equals the shared object's.
type Handle struct {
	path    string
	tempDir string
	digest  string

	library   unsafe.Pointer
	zalloc    unsafe.Pointer
	zfree     unsafe.Pointer
	callbacks unsafe.Pointer
	entry     unsafe.Pointer

	closeOnce sync.Once
	closeErr  error
}

// Open loads the shared object at path and resolves every required
// export. On any failure the object is left unloaded and a LoadError
// or SymbolError is returned.
func Open(path string, options Options) (*Handle, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// The descriptor set is the contract the embedded driver was
	// written against. Check it before touching the object so a
	// build-skew bug cannot surface as a callback dispatched into a
	// wrong slot.
	if err := fuseabi.Validate(fuseabi.Descriptors()); err != nil {
		return nil, fmt.Errorf("descriptor set invalid: %w", err)
	}

	digest, err := hashFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Detail: err.Error()}
	}

	pathC := C.CString(path)
	defer C.free(unsafe.Pointer(pathC))

	library := C.bridge_dlopen(pathC)
	if library == nil {
		return nil, &LoadError{Path: path, Detail: C.GoString(C.bridge_dlerror())}
	}

	handle := &Handle{
		path:    path,
		tempDir: options.TempDir,
		digest:  digest,
		library: library,
	}

	symbols := []struct {
		name   string
		target *unsafe.Pointer
	}{
		{SymbolAlloc, &handle.zalloc},
		{SymbolFree, &handle.zfree},
		{SymbolCallbacks, &handle.callbacks},
		{SymbolMain, &handle.entry},
	}
	for _, symbol := range symbols {
		resolved, err := resolve(library, symbol.name)
		if err != nil {
			C.bridge_dlclose(library)
			return nil, &SymbolError{Path: path, Symbol: symbol.name, Detail: err.Error()}
		}
		*symbol.target = resolved
	}

	logger.Info("driver loaded",
		"path", path,
		"digest", digest,
		"tempdir", options.TempDir,
	)
	return handle, nil
}

func resolve(library unsafe.Pointer, name string) (unsafe.Pointer, error) {
	nameC := C.CString(name)
	defer C.free(unsafe.Pointer(nameC))

	var detail *C.char
	symbol := C.bridge_dlsym(library, nameC, &detail)
	if symbol == nil {
		if detail != nil {
			return nil, fmt.Errorf("%s", C.GoString(detail))
		}
		return nil, fmt.Errorf("symbol resolved to NULL")
	}
	return symbol, nil
}

// Path returns the shared object path the handle was loaded from.
func (h *Handle) Path() string { return h.path }

// TempDir returns the temporary build directory recorded at load
// time, or empty.
func (h *Handle) TempDir() string { return h.tempDir }

// Digest returns the hex SHA256 of the loaded shared object.
func (h *Handle) Digest() string { return h.digest }

// CallbackTable returns the address of the driver's callback table.
// The marshaling layer overwrites its slots before launch; nothing
// mutates it afterward.
func (h *Handle) CallbackTable() unsafe.Pointer { return h.callbacks }

// EntryPoint returns the address of the driver's bridge_main.
func (h *Handle) EntryPoint() unsafe.Pointer { return h.entry }

// Close unloads the shared object. Idempotent; only the first call
// performs the dlclose.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if C.bridge_dlclose(h.library) != 0 {
			h.closeErr = fmt.Errorf("unloading driver %s: %s", h.path, C.GoString(C.bridge_dlerror()))
		}
	})
	return h.closeErr
}

// hashFile streams the shared object through SHA256 so logs and
// supervision records can pin the exact artifact that was loaded.
func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
