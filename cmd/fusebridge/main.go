// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// fusebridge mounts callback-bridged filesystems.
//
// Usage:
//
//	fusebridge mount [flags] <mountpoint>
//	fusebridge hello <mountpoint>
//	fusebridge resolve [flags] <name>...
//	fusebridge version
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nrclark/fusebridge/lib/config"
	"github.com/nrclark/fusebridge/lib/process"
	"github.com/nrclark/fusebridge/lib/supervise"
	"github.com/nrclark/fusebridge/lib/version"
)

func main() {
	// The worker check runs before any CLI parsing: the supervised
	// child receives mount arguments, not subcommands.
	if supervise.Worker() {
		os.Exit(runWorker(newLogger(slog.LevelInfo)))
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if os.Getenv("FUSEBRIDGE_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := newLogger(logLevel)

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mount":
		err = mountCmd(args, logger)
	case "hello":
		err = helloCmd(args, logger)
	case "resolve":
		err = resolveCmd(args)
	case "version", "--version", "-v":
		fmt.Printf("fusebridge %s\n", version.Info())
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		var exitErr *supervise.ExitError
		if errors.As(err, &exitErr) {
			process.Exit(exitErr.Code)
		}
		process.Fatal(err)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func printUsage() {
	fmt.Print(`fusebridge - Mount callback-bridged filesystems

USAGE
    fusebridge <command> [flags] [args...]

COMMANDS
    mount    Compile or load the bridge driver and mount a filesystem
    hello    Mount the built-in hello demo filesystem
    resolve  Print resolved platform constants
    version  Show version

EXAMPLES
    # Mount the demo filesystem with a freshly compiled driver
    fusebridge hello /mnt/hello

    # Mount with a prebuilt driver and extra mount options
    fusebridge mount --driver=/usr/lib/libbridge.so -o allow_other /mnt/hello

    # Resolve constants against a discovery table
    fusebridge resolve --table=constants.yaml ENOENT S_IFDIR

ENVIRONMENT
    FUSEBRIDGE_CONFIG  Path to fusebridge.yaml (or use --config)
    FUSEBRIDGE_DEBUG   Enable debug logging
`)
}

// loadConfig resolves the configuration: an explicit --config path,
// then FUSEBRIDGE_CONFIG, then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("FUSEBRIDGE_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}
