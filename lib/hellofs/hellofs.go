// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package hellofs

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/nrclark/fusebridge/lib/fuseabi"
	"github.com/nrclark/fusebridge/lib/sysconst"
)

// Greeting is the content of every file the filesystem serves.
const Greeting = "Hello World!\n"

// node is one entry in the tree. Directories carry children (entry
// names, not paths); files carry content.
type node struct {
	dir      bool
	content  []byte
	children []string
}

// Filesystem is the hello demo tree. It implements bridge.Filesystem.
type Filesystem struct {
	resolver sysconst.Resolver
	nodes    map[string]*node
	uid      uint32
	gid      uint32
}

// New builds the demo tree. Errno values reported to the driver are
// resolved through the given resolver; nil means the host table.
func New(resolver sysconst.Resolver) *Filesystem {
	if resolver == nil {
		resolver = sysconst.Host()
	}
	return &Filesystem{
		resolver: resolver,
		nodes: map[string]*node{
			"/":           {dir: true, children: []string{"hello", "moto"}},
			"/hello":      {content: []byte(Greeting)},
			"/moto":       {dir: true, children: []string{"hello"}},
			"/moto/hello": {content: []byte(Greeting)},
		},
		uid: uint32(os.Getuid()),
		gid: uint32(os.Getgid()),
	}
}

func (f *Filesystem) errno(name string) int {
	return sysconst.Errno(f.resolver, name)
}

func (f *Filesystem) Open(path string, info *fuseabi.FileInfo) int {
	entry, ok := f.nodes[path]
	if !ok {
		return f.errno("ENOENT")
	}
	if entry.dir {
		return f.errno("EISDIR")
	}
	if info.Flags&uint32(unix.O_ACCMODE) != unix.O_RDONLY {
		return f.errno("EROFS")
	}
	return 0
}

func (f *Filesystem) Readdir(path string) (int, []string) {
	entry, ok := f.nodes[path]
	if !ok {
		return f.errno("ENOENT"), nil
	}
	if !entry.dir {
		return f.errno("ENOTDIR"), nil
	}
	return 0, entry.children
}

func (f *Filesystem) Getattr(path string) (int, fuseabi.FileAttributes) {
	entry, ok := f.nodes[path]
	if !ok {
		return f.errno("ENOENT"), fuseabi.FileAttributes{}
	}

	attributes := fuseabi.FileAttributes{UID: f.uid, GID: f.gid}
	if entry.dir {
		attributes.Mode = uint32(unix.S_IFDIR) | 0o755
		attributes.Size = 4096
	} else {
		attributes.Mode = uint32(unix.S_IFREG) | 0o444
		attributes.Size = uint64(len(entry.content))
	}
	return 0, attributes
}

func (f *Filesystem) Access(path string, mask uint32) int {
	if _, ok := f.nodes[path]; !ok {
		return f.errno("ENOENT")
	}
	if mask&uint32(unix.W_OK) != 0 {
		return f.errno("EROFS")
	}
	return 0
}

func (f *Filesystem) Read(path string, size, offset uint64, info *fuseabi.FileInfo) (int, []byte) {
	entry, ok := f.nodes[path]
	if !ok {
		return f.errno("ENOENT"), nil
	}
	if entry.dir {
		return f.errno("EISDIR"), nil
	}
	if offset >= uint64(len(entry.content)) {
		return 0, nil
	}

	data := entry.content[offset:]
	if uint64(len(data)) > size {
		data = data[:size]
	}
	return len(data), data
}

func (f *Filesystem) Write(path string, data []byte, offset uint64, info *fuseabi.FileInfo) int {
	if _, ok := f.nodes[path]; !ok {
		return f.errno("ENOENT")
	}
	return f.errno("EROFS")
}

func (f *Filesystem) Truncate(path string, size uint64) int {
	if _, ok := f.nodes[path]; !ok {
		return f.errno("ENOENT")
	}
	return f.errno("EROFS")
}
