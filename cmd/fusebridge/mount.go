// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/nrclark/fusebridge/lib/bridge"
	"github.com/nrclark/fusebridge/lib/ccbuild"
	"github.com/nrclark/fusebridge/lib/config"
	"github.com/nrclark/fusebridge/lib/driver"
	"github.com/nrclark/fusebridge/lib/hellofs"
	"github.com/nrclark/fusebridge/lib/supervise"
	"github.com/nrclark/fusebridge/lib/sysconst"
)

// Environment variables carrying the supervisor's decisions to the
// worker child. The worker receives only mount arguments on its
// command line.
const (
	driverEnvVar = "FUSEBRIDGE_DRIVER"
	tableEnvVar  = "FUSEBRIDGE_TABLE"
)

func mountCmd(args []string, logger *slog.Logger) error {
	flags := pflag.NewFlagSet("mount", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to fusebridge.yaml")
	driverPath := flags.String("driver", "", "prebuilt bridge shared object (skips compilation)")
	tablePath := flags.String("table", "", "YAML constants table from compiler discovery")
	foreground := flags.Bool("foreground", false, "run the event loop in this process")
	options := flags.StringArrayP("option", "o", nil, "extra mount option (repeatable)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() != 1 {
		return fmt.Errorf("mount requires exactly one mountpoint argument")
	}
	mountPoint, err := filepath.Abs(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("resolving mountpoint: %w", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *driverPath != "" {
		cfg.Driver.Library = *driverPath
	}
	if *tablePath != "" {
		cfg.Driver.ConstantsTable = *tablePath
	}
	if *foreground {
		cfg.Mount.Foreground = true
	}
	cfg.Mount.Options = append(cfg.Mount.Options, *options...)

	return mount(cfg, mountPoint, logger)
}

func helloCmd(args []string, logger *slog.Logger) error {
	flags := pflag.NewFlagSet("hello", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to fusebridge.yaml")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("hello requires exactly one mountpoint argument")
	}
	mountPoint, err := filepath.Abs(flags.Arg(0))
	if err != nil {
		return fmt.Errorf("resolving mountpoint: %w", err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	return mount(cfg, mountPoint, logger)
}

// mount obtains a driver library, then either runs the event loop
// here (foreground) or hands it to a supervised worker child.
func mount(cfg *config.Config, mountPoint string, logger *slog.Logger) error {
	libraryPath := cfg.Driver.Library
	tempDir := ""
	if libraryPath == "" {
		built, dir, err := compileDriver(cfg, logger)
		if err != nil {
			return err
		}
		libraryPath = built
		tempDir = dir
	}

	argv := []string{"fusebridge"}
	for _, option := range cfg.Mount.Options {
		argv = append(argv, "-o", option)
	}
	argv = append(argv, mountPoint)

	if cfg.Mount.Foreground {
		defer func() {
			if tempDir != "" {
				os.RemoveAll(tempDir)
			}
		}()
		code, err := runEventLoop(libraryPath, cfg.Driver.ConstantsTable, argv, logger)
		if err != nil {
			return err
		}
		if code != 0 {
			return &supervise.ExitError{Code: code}
		}
		return nil
	}

	env := []string{driverEnvVar + "=" + libraryPath}
	if cfg.Driver.ConstantsTable != "" {
		env = append(env, tableEnvVar+"="+cfg.Driver.ConstantsTable)
	}

	supervisor, err := supervise.New(supervise.Config{
		Args:         argv,
		TempDir:      tempDir,
		Env:          env,
		Logger:       logger,
		PollInterval: cfg.Mount.PollIntervalDuration(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	_, err = supervisor.Start(ctx)
	if errors.Is(err, context.Canceled) {
		// Signal-driven shutdown after a clean unmount is a normal
		// exit, not a failure.
		return nil
	}
	return err
}

// compileDriver builds the embedded bridge source into a shared
// object in a fresh scratch directory. The caller owns the directory.
func compileDriver(cfg *config.Config, logger *slog.Logger) (library, dir string, err error) {
	staging, err := os.MkdirTemp("", "fusebridge-src.*")
	if err != nil {
		return "", "", fmt.Errorf("creating source staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	sources, err := ccbuild.WriteSources(staging, map[string][]byte{
		"bridge.c": driver.BridgeSource(),
		"bridge.h": driver.BridgeHeader(),
	})
	if err != nil {
		return "", "", err
	}

	compiler := &ccbuild.CC{
		Compiler: cfg.Driver.Compiler,
		LinkFuse: true,
		Logger:   logger,
	}
	if cfg.Driver.CFlags != "" {
		compiler.Flags = strings.Fields(cfg.Driver.CFlags)
	}

	library, err = compiler.Build(sources)
	if err != nil {
		return "", "", err
	}
	return library, filepath.Dir(library), nil
}

// runWorker is the supervised child: load the driver named in the
// environment, wire the demo filesystem through the bridge, and run
// the native event loop to completion. The returned code becomes the
// process exit status.
func runWorker(logger *slog.Logger) int {
	libraryPath := os.Getenv(driverEnvVar)
	if libraryPath == "" {
		logger.Error("worker started without " + driverEnvVar)
		return 1
	}

	code, err := runEventLoop(libraryPath, os.Getenv(tableEnvVar), os.Args, logger)
	if err != nil {
		logger.Error("worker event loop failed", "error", err)
		return 1
	}
	return code
}

// runEventLoop loads the driver at libraryPath, installs a bridge
// over the hello filesystem, and blocks in the native event loop
// until unmount.
func runEventLoop(libraryPath, tablePath string, argv []string, logger *slog.Logger) (int, error) {
	resolver, err := loadResolver(tablePath)
	if err != nil {
		return 0, err
	}

	handle, err := driver.Open(libraryPath, driver.Options{Logger: logger})
	if err != nil {
		return 0, err
	}
	defer handle.Close()

	b, err := bridge.New(bridge.Config{
		Driver:     handle,
		Filesystem: hellofs.New(resolver),
		Resolver:   resolver,
		Logger:     logger,
	})
	if err != nil {
		return 0, err
	}
	if err := b.Install(); err != nil {
		return 0, err
	}
	defer b.Uninstall()

	return b.Main(supervise.InjectMountOptions(argv))
}

func loadResolver(tablePath string) (sysconst.Resolver, error) {
	if tablePath == "" {
		return sysconst.Host(), nil
	}
	resolver, err := sysconst.FromYAML(tablePath)
	if err != nil {
		return nil, fmt.Errorf("loading constants table %s: %w", tablePath, err)
	}
	return resolver, nil
}
