// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nrclark/fusebridge/lib/clock"
)

// fuseSuperMagic is the statfs filesystem type reported for FUSE
// mounts ("FUSE" little-endian).
const fuseSuperMagic = 0x65735546

// MountPoint extracts the mount point from a mount argument vector:
// the first positional argument after argv[0]. Bare flags (-f, -d,
// -s) do not take a value; -o consumes exactly one following value.
// The result is made absolute so that cleanup still works after a
// working-directory change.
func MountPoint(argv []string) (string, error) {
	args := argv
	if len(args) > 0 {
		args = args[1:]
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "-o" {
			i++
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		absolute, err := filepath.Abs(arg)
		if err != nil {
			return "", fmt.Errorf("resolving mount point %q: %w", arg, err)
		}
		return absolute, nil
	}

	return "", fmt.Errorf("no mount point in argument vector %q", argv)
}

// WaitForMount polls until path is a live FUSE mount, checking every
// interval on the given clock. Returns the context error if it ends
// first.
func WaitForMount(ctx context.Context, cl clock.Clock, path string, interval time.Duration) error {
	ticker := cl.NewTicker(interval)
	defer ticker.Stop()

	for {
		var stat unix.Statfs_t
		if err := unix.Statfs(path, &stat); err == nil && stat.Type == fuseSuperMagic {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for mount at %s: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// fusermountPath locates the fusermount helper, preferring the
// libfuse2 name since the event loop speaks the version 2 protocol.
func fusermountPath() (string, error) {
	path, err := exec.LookPath("fusermount")
	if err == nil {
		return path, nil
	}
	path, err = exec.LookPath("fusermount3")
	if err != nil {
		return "", fmt.Errorf("fusermount/fusermount3 not found: %w", err)
	}
	return path, nil
}

// unmount detaches the FUSE filesystem at path. fusermount handles
// the unprivileged case; when it is missing or refuses (including
// with a lazy -z retry), fall back to a direct unmount syscall for
// processes that hold CAP_SYS_ADMIN.
func unmount(path string) error {
	helper, lookErr := fusermountPath()
	if lookErr == nil {
		cmd := exec.Command(helper, "-u", path)
		output, err := cmd.CombinedOutput()
		if err == nil {
			return nil
		}

		lazy := exec.Command(helper, "-u", "-z", path)
		lazyOutput, lazyErr := lazy.CombinedOutput()
		if lazyErr == nil {
			return nil
		}

		if syscallErr := unix.Unmount(path, unix.MNT_DETACH); syscallErr == nil {
			return nil
		}
		return fmt.Errorf("unmounting %s: %w (output: %s; lazy: %v, %s)",
			path, err, strings.TrimSpace(string(output)), lazyErr,
			strings.TrimSpace(string(lazyOutput)))
	}

	if err := unix.Unmount(path, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("unmounting %s: %w (fusermount unavailable: %v)", path, err, lookErr)
	}
	return nil
}

// mounted reports whether path currently hosts a FUSE mount.
func mounted(path string) bool {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return false
	}
	return stat.Type == fuseSuperMagic
}
