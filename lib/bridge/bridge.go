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

typedef int (*bridge_open_ptr)(const char *, struct file_info *);
typedef int (*bridge_readdir_ptr)(const char *, char ***);
typedef int (*bridge_getattr_ptr)(const char *, struct file_attributes *);
typedef int (*bridge_access_ptr)(const char *, uint32_t);
typedef int (*bridge_read_ptr)(const char *, char *, uint64_t, uint64_t,
                               struct file_info *);
typedef int (*bridge_write_ptr)(const char *, const char *, uint64_t,
                                uint64_t, struct file_info *);
typedef int (*bridge_truncate_ptr)(const char *, uint64_t);

struct callbacks {
	bridge_open_ptr open;
	bridge_readdir_ptr readdir;
	bridge_getattr_ptr getattr;
	bridge_access_ptr access;
	bridge_read_ptr read;
	bridge_write_ptr write;
	bridge_truncate_ptr truncate;
};

// Trampolines exported from Go; cgo emits C-linkage wrappers for
// these in _cgo_export.h.
extern int fusebridgeOpen(char *path, struct file_info *info);
extern int fusebridgeReaddir(char *path, char ***entries);
extern int fusebridgeGetattr(char *path, struct file_attributes *attr);
extern int fusebridgeAccess(char *path, uint32_t mask);
extern int fusebridgeRead(char *path, char *outbuf, uint64_t size,
                          uint64_t offset, struct file_info *info);
extern int fusebridgeWrite(char *path, char *inbuf, uint64_t size,
                           uint64_t offset, struct file_info *info);
extern int fusebridgeTruncate(char *path, uint64_t size);

// Populate every slot of the driver's callback table. Slot order is
// the ABI; it matches the descriptor set in lib/fuseabi.
static void fusebridge_install(void *table) {
	struct callbacks *cb = (struct callbacks *)table;
	cb->open = (bridge_open_ptr)fusebridgeOpen;
	cb->readdir = (bridge_readdir_ptr)fusebridgeReaddir;
	cb->getattr = (bridge_getattr_ptr)fusebridgeGetattr;
	cb->access = (bridge_access_ptr)fusebridgeAccess;
	cb->read = (bridge_read_ptr)fusebridgeRead;
	cb->write = (bridge_write_ptr)fusebridgeWrite;
	cb->truncate = (bridge_truncate_ptr)fusebridgeTruncate;
}

typedef int (*bridge_main_ptr)(int argc, char **argv);

static int fusebridge_call_main(void *entry, int argc, char **argv) {
	return ((bridge_main_ptr)entry)(argc, argv);
}
*/
import "C"

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"github.com/nrclark/fusebridge/lib/driver"
	"github.com/nrclark/fusebridge/lib/membridge"
	"github.com/nrclark/fusebridge/lib/sysconst"
)

// active is the bridge whose callbacks are installed in the loaded
// driver's table. cgo-exported functions have static linkage, so this
// is the one piece of process-wide state the design cannot avoid: it
// is set once by Install, before the event loop launches, and cleared
// by Uninstall. Its lifetime is tied to the installed driver handle.
var active atomic.Pointer[Bridge]

// Config assembles a Bridge.
type Config struct {
	// Driver is the loaded native driver.
	Driver *driver.Handle

	// Filesystem receives the marshaled operations.
	Filesystem Filesystem

	// Resolver supplies platform error codes. If nil, the host
	// resolver is used.
	Resolver sysconst.Resolver

	// Logger receives boundary diagnostics (marshal faults, install
	// and launch events). If nil, diagnostics are discarded.
	Logger *slog.Logger
}

// Bridge owns the marshaling state for one loaded driver: the arena
// over the driver's allocator and the resolved generic error codes.
// Construct with New; all fields are fixed at construction and the
// struct is safe for concurrent callback dispatch.
type Bridge struct {
	driver *driver.Handle
	fs     Filesystem
	arena  *membridge.Arena
	logger *slog.Logger

	// eio is the negated generic I/O error returned for contained
	// faults, resolved once at construction.
	eio int

	installed atomic.Bool
}

// New validates config and builds a Bridge. The driver's allocator
// backs every cross-boundary allocation the bridge makes.
func New(config Config) (*Bridge, error) {
	if config.Driver == nil {
		return nil, fmt.Errorf("driver handle is required")
	}
	if config.Filesystem == nil {
		return nil, fmt.Errorf("filesystem is required")
	}
	resolver := config.Resolver
	if resolver == nil {
		resolver = sysconst.Host()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Bridge{
		driver: config.Driver,
		fs:     config.Filesystem,
		arena:  membridge.New(config.Driver.Allocator(), logger),
		logger: logger,
		eio:    sysconst.Errno(resolver, "EIO"),
	}, nil
}

// Install populates the driver's callback table with the exported
// trampolines and marks this bridge active. Exactly one bridge may be
// active per process; installing a second one fails. Must complete
// before Main is called.
func (b *Bridge) Install() error {
	if !active.CompareAndSwap(nil, b) {
		return fmt.Errorf("another bridge is already installed")
	}
	table := b.driver.CallbackTable()
	if table == nil {
		active.Store(nil)
		return fmt.Errorf("driver has no callback table")
	}
	C.fusebridge_install(table)
	b.installed.Store(true)

	b.logger.Debug("callback table populated", "driver", b.driver.Path())
	return nil
}

// Uninstall deactivates the bridge. Callbacks arriving afterward are
// answered with the generic I/O error. Intended for teardown after
// Main returns; idempotent.
func (b *Bridge) Uninstall() {
	active.CompareAndSwap(b, nil)
	b.installed.Store(false)
}

// Main builds the NUL/NULL-terminated argument vector on the driver's
// heap and invokes the driver's entry point, blocking until the event
// loop exits. The entry point takes ownership of the vector and frees
// it through the paired deallocator. Returns the driver's exit code.
//
// The calling goroutine is locked to its OS thread for the duration:
// the driver installs signal handlers and expects a stable host
// thread.
func (b *Bridge) Main(argv []string) (int, error) {
	if !b.installed.Load() {
		return 0, fmt.Errorf("bridge is not installed; refusing to launch with unpopulated callbacks")
	}
	if len(argv) == 0 {
		return 0, fmt.Errorf("argument vector is empty")
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	arguments := make([][]byte, len(argv))
	for i, argument := range argv {
		arguments[i] = []byte(argument)
	}
	vector, err := b.arena.BuildStringArray(arguments, true, true)
	if err != nil {
		return 0, fmt.Errorf("building argument vector: %w", err)
	}

	b.logger.Info("entering driver event loop", "argv", argv)
	code := int(C.fusebridge_call_main(b.driver.EntryPoint(), C.int(len(argv)), (**C.char)(vector)))
	b.logger.Info("driver event loop exited", "code", code)
	return code, nil
}
