// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package ccbuild

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Builder produces a loadable shared object from C sources. Returns
// the path to the built object; the object's parent directory is a
// fresh temporary directory owned by the caller.
type Builder interface {
	Build(sources []string) (string, error)
}

// CC is the host-toolchain Builder.
type CC struct {
	// Compiler invoked for the build. Empty means the CC environment
	// variable, falling back to "cc".
	Compiler string

	// Flags replace the default "-O2" when non-nil. The CFLAGS
	// environment variable takes precedence over the default but not
	// over an explicit value here.
	Flags []string

	// LinkFuse adds -lfuse. The real bridge driver needs it; test
	// stubs that exercise only the symbol contract do not.
	LinkFuse bool

	// Output is the shared object filename within the build
	// directory. Empty means "libbridge.so".
	Output string

	// Logger receives the build command line. If nil, discarded.
	Logger *slog.Logger
}

// Build compiles sources into a shared object inside a new temporary
// directory and returns the object's path. On failure the directory
// is removed and the returned error includes the compiler invocation
// and its output.
func (c *CC) Build(sources []string) (string, error) {
	if len(sources) == 0 {
		return "", fmt.Errorf("no source files to compile")
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	compiler := c.Compiler
	if compiler == "" {
		compiler = os.Getenv("CC")
	}
	if compiler == "" {
		compiler = "cc"
	}

	flags := c.Flags
	if flags == nil {
		if env := os.Getenv("CFLAGS"); env != "" {
			flags = strings.Fields(env)
		} else {
			flags = []string{"-O2"}
		}
	}
	flags = append(flags, "-D_FILE_OFFSET_BITS=64", "-fPIC", "-shared")
	flags = append(flags, "-Wall", "-Wextra")
	if c.LinkFuse {
		flags = append(flags, "-lfuse")
	}

	output := c.Output
	if output == "" {
		output = "libbridge.so"
	}

	directory, err := os.MkdirTemp("", "fusebridge.*")
	if err != nil {
		return "", fmt.Errorf("creating build directory: %w", err)
	}
	objectPath := filepath.Join(directory, output)

	arguments := append(append([]string{}, flags...), sources...)
	arguments = append(arguments, "-o", objectPath)

	logger.Debug("compiling driver", "compiler", compiler, "args", arguments)

	command := exec.Command(compiler, arguments...)
	combined, err := command.CombinedOutput()
	if err != nil {
		os.RemoveAll(directory)
		return "", fmt.Errorf("compiling driver (%s %s): %w\n%s",
			compiler, strings.Join(arguments, " "), err, combined)
	}

	return objectPath, nil
}

// WriteSources writes in-memory source files into dir and returns
// their paths in deterministic (sorted) order. Used to stage the
// embedded driver source for compilation.
func WriteSources(dir string, files map[string][]byte) ([]string, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	// Sorted so the compiler command line is reproducible.
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, files[name], 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", path, err)
		}
		// Headers are staged for inclusion but not compiled.
		if strings.HasSuffix(name, ".c") {
			paths = append(paths, path)
		}
	}
	return paths, nil
}
