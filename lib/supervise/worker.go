// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"os"
	"runtime"
)

// workerEnvVar marks a process as the in-child worker. The supervisor
// sets it when launching the child; main checks it before doing
// anything else.
const workerEnvVar = "FUSEBRIDGE_WORKER"

// Worker reports whether the current process was launched as the
// supervised worker child.
func Worker() bool {
	return os.Getenv(workerEnvVar) == "1"
}

// WorkerEnviron returns the environment for a worker child: the
// current environment plus the worker marker.
func WorkerEnviron() []string {
	return append(os.Environ(), workerEnvVar+"=1")
}

// InjectMountOptions rewrites a mount argument vector for the worker
// before it is handed to the native event loop. The callback table is
// process-global state, so the event loop must run single-threaded
// (-s). On Linux, auto_unmount makes the kernel drop the mount if
// the worker dies without a clean shutdown.
//
// The options are inserted after argv[0]; the rest of the vector is
// preserved in order.
func InjectMountOptions(argv []string) []string {
	if len(argv) == 0 {
		return argv
	}

	injected := []string{argv[0], "-s"}
	if runtime.GOOS == "linux" {
		injected = append(injected, "-o", "auto_unmount")
	}
	return append(injected, argv[1:]...)
}
