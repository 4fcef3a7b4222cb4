// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nrclark/fusebridge/lib/clock"
)

// defaultPollInterval is how often the supervisor confirms the child
// is still alive between wait notifications.
const defaultPollInterval = 500 * time.Millisecond

// Config describes a supervised worker run.
type Config struct {
	// Binary is the executable to launch as the worker. Defaults to
	// the current executable (re-exec).
	Binary string

	// Args is the mount argument vector passed to the worker,
	// including argv[0]. Must name a mount point (see MountPoint).
	Args []string

	// TempDir, when set, is removed as the final cleanup step. Used
	// for the compiled driver's scratch directory.
	TempDir string

	// Env is extra environment appended to the worker's environment
	// after the inherited one and the worker marker.
	Env []string

	// Clock drives liveness polling. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives supervision events. Defaults to discard.
	Logger *slog.Logger

	// PollInterval overrides the liveness poll cadence.
	PollInterval time.Duration
}

// Result reports how a supervised run ended.
type Result struct {
	// ExitCode is the worker's exit status. Zero means the event
	// loop ended cleanly (the filesystem was unmounted).
	ExitCode int
}

// ExitError reports a worker that ended with a non-zero status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("worker exited with status %d", e.Code)
}

// Supervisor launches a worker child and owns its cleanup. A
// Supervisor runs once; create a new one for each mount.
type Supervisor struct {
	binary       string
	args         []string
	mountPoint   string
	tempDir      string
	env          []string
	clock        clock.Clock
	logger       *slog.Logger
	pollInterval time.Duration

	started bool
	cleanup sync.Once
}

// New validates the configuration and prepares a supervisor. The
// mount point is resolved eagerly so a bad argument vector fails
// before any process is launched.
func New(config Config) (*Supervisor, error) {
	if len(config.Args) == 0 {
		return nil, fmt.Errorf("supervise: empty argument vector")
	}

	mountPoint, err := MountPoint(config.Args)
	if err != nil {
		return nil, err
	}

	binary := config.Binary
	if binary == "" {
		binary, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolving current executable: %w", err)
		}
	}

	cl := config.Clock
	if cl == nil {
		cl = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	return &Supervisor{
		binary:       binary,
		args:         config.Args,
		mountPoint:   mountPoint,
		tempDir:      config.TempDir,
		env:          config.Env,
		clock:        cl,
		logger:       logger,
		pollInterval: pollInterval,
	}, nil
}

// MountPoint returns the mount point resolved from the argument
// vector.
func (s *Supervisor) MountPoint() string { return s.mountPoint }

// Start launches the worker and blocks until it exits or ctx is
// canceled. Cancellation triggers the shutdown sequence: unmount the
// filesystem, kill the worker, remove the scratch directory. The
// sequence also runs after a natural exit, and is idempotent.
func (s *Supervisor) Start(ctx context.Context) (Result, error) {
	if s.started {
		return Result{}, fmt.Errorf("supervise: Start called twice")
	}
	s.started = true

	cmd := exec.Command(s.binary, s.args[1:]...)
	cmd.Env = append(WorkerEnviron(), s.env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		s.removeTempDir()
		return Result{}, fmt.Errorf("launching worker %s: %w", s.binary, err)
	}

	s.logger.Info("worker launched",
		"pid", cmd.Process.Pid,
		"binary", s.binary,
		"mount_point", s.mountPoint,
	)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	ticker := s.clock.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutdown requested", "mount_point", s.mountPoint)
			s.shutdown(cmd)
			code := exitCode(cmd, <-waitCh)
			return Result{ExitCode: code}, ctx.Err()

		case err := <-waitCh:
			code := exitCode(cmd, err)
			s.logger.Info("worker exited", "pid", cmd.Process.Pid, "exit_code", code)
			s.shutdown(cmd)
			if code != 0 {
				return Result{ExitCode: code}, &ExitError{Code: code}
			}
			return Result{ExitCode: 0}, nil

		case <-ticker.C:
			// Wait notification covers exit; the poll catches a
			// wedged child whose wait never completes.
			if err := cmd.Process.Signal(unix.Signal(0)); err != nil {
				s.logger.Warn("worker liveness probe failed",
					"pid", cmd.Process.Pid, "error", err)
			}
		}
	}
}

// shutdown runs the cleanup sequence exactly once: unmount first so
// the kernel stops routing operations at the worker, then kill the
// worker, then remove the scratch directory. Safe to call after the
// worker has already exited.
func (s *Supervisor) shutdown(cmd *exec.Cmd) {
	s.cleanup.Do(func() {
		if mounted(s.mountPoint) {
			if err := unmount(s.mountPoint); err != nil {
				s.logger.Error("unmount failed", "mount_point", s.mountPoint, "error", err)
			}
		}

		if cmd.Process != nil {
			// Kill on an exited process returns an error; the mount
			// is already gone at that point, so ignore it.
			_ = cmd.Process.Kill()
		}

		s.removeTempDir()
	})
}

func (s *Supervisor) removeTempDir() {
	if s.tempDir == "" {
		return
	}
	if err := os.RemoveAll(s.tempDir); err != nil {
		s.logger.Error("removing scratch directory", "dir", s.tempDir, "error", err)
	}
}

// exitCode extracts a conventional exit status from cmd.Wait's
// result, mapping signal deaths to 128+signal.
func exitCode(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	if state := cmd.ProcessState; state != nil {
		if status, ok := state.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
		return state.ExitCode()
	}
	return -1
}
