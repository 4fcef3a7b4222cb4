// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package ccbuild

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// requireCompiler skips the test when no C compiler is available.
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

const trivialSource = `
int answer(void) { return 42; }
`

func TestBuildProducesSharedObject(t *testing.T) {
	requireCompiler(t)

	source := filepath.Join(t.TempDir(), "trivial.c")
	if err := os.WriteFile(source, []byte(trivialSource), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	builder := &CC{}
	objectPath, err := builder.Build([]string{source})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer os.RemoveAll(filepath.Dir(objectPath))

	info, err := os.Stat(objectPath)
	if err != nil {
		t.Fatalf("built object missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("built object is empty")
	}
	if filepath.Base(objectPath) != "libbridge.so" {
		t.Errorf("object name = %s, want libbridge.so", filepath.Base(objectPath))
	}
}

func TestBuildFailureSurfacesCommandAndOutput(t *testing.T) {
	requireCompiler(t)

	source := filepath.Join(t.TempDir(), "broken.c")
	if err := os.WriteFile(source, []byte("this is not C\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	builder := &CC{}
	_, err := builder.Build([]string{source})
	if err == nil {
		t.Fatal("expected compile failure")
	}
	if !strings.Contains(err.Error(), "broken.c") {
		t.Errorf("error does not name the failing source: %v", err)
	}
}

func TestBuildMissingCompiler(t *testing.T) {
	builder := &CC{Compiler: "fusebridge-no-such-compiler"}
	source := filepath.Join(t.TempDir(), "x.c")
	if err := os.WriteFile(source, []byte(trivialSource), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := builder.Build([]string{source}); err == nil {
		t.Fatal("expected error for missing compiler")
	}
}

func TestBuildRejectsEmptySourceList(t *testing.T) {
	builder := &CC{}
	if _, err := builder.Build(nil); err == nil {
		t.Fatal("expected error for empty source list")
	}
}

func TestWriteSources(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteSources(dir, map[string][]byte{
		"bridge.c": []byte("int x;"),
		"bridge.h": []byte("extern int x;"),
		"aux.c":    []byte("int y;"),
	})
	if err != nil {
		t.Fatalf("WriteSources: %v", err)
	}

	// Only .c files are returned, sorted; the header is staged on
	// disk for inclusion.
	if len(paths) != 2 {
		t.Fatalf("got %d compile paths, want 2", len(paths))
	}
	if filepath.Base(paths[0]) != "aux.c" || filepath.Base(paths[1]) != "bridge.c" {
		t.Errorf("paths = %v, want sorted [aux.c bridge.c]", paths)
	}
	if _, err := os.Stat(filepath.Join(dir, "bridge.h")); err != nil {
		t.Errorf("header not staged: %v", err)
	}
}
