// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package sysconst

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Resolver maps a symbolic constant name to its platform integer
// value.
type Resolver interface {
	// Lookup returns the value of the named constant, or an error if
	// the name is unknown to this resolver.
	Lookup(name string) (int64, error)
}

// Errno resolves an error-code name through r and returns it negated,
// ready to hand to the native driver. An unknown name degrades to
// -EIO rather than failing the operation outright: the driver must
// always receive a valid negative errno.
func Errno(r Resolver, name string) int {
	value, err := r.Lookup(name)
	if err != nil {
		return -int(unix.EIO)
	}
	return -int(value)
}

// table is a map-backed Resolver.
type table map[string]int64

func (t table) Lookup(name string) (int64, error) {
	value, ok := t[name]
	if !ok {
		return 0, fmt.Errorf("unknown constant %q", name)
	}
	return value, nil
}

// hostTable holds the constants the bridge and its consumers need,
// valued from golang.org/x/sys/unix for the build platform.
var hostTable = table{
	// errno
	"EPERM":   int64(unix.EPERM),
	"ENOENT":  int64(unix.ENOENT),
	"EIO":     int64(unix.EIO),
	"EBADF":   int64(unix.EBADF),
	"EACCES":  int64(unix.EACCES),
	"EEXIST":  int64(unix.EEXIST),
	"ENOTDIR": int64(unix.ENOTDIR),
	"EISDIR":  int64(unix.EISDIR),
	"EINVAL":  int64(unix.EINVAL),
	"EFBIG":   int64(unix.EFBIG),
	"ENOSPC":  int64(unix.ENOSPC),
	"EROFS":   int64(unix.EROFS),
	"ENOSYS":  int64(unix.ENOSYS),
	"ENOTSUP": int64(unix.ENOTSUP),

	// stat mode bits
	"S_IFMT":  int64(unix.S_IFMT),
	"S_IFDIR": int64(unix.S_IFDIR),
	"S_IFREG": int64(unix.S_IFREG),
	"S_IFLNK": int64(unix.S_IFLNK),
	"S_IRWXU": int64(unix.S_IRWXU),
	"S_IRUSR": int64(unix.S_IRUSR),
	"S_IWUSR": int64(unix.S_IWUSR),
	"S_IXUSR": int64(unix.S_IXUSR),
	"S_IRGRP": int64(unix.S_IRGRP),
	"S_IWGRP": int64(unix.S_IWGRP),
	"S_IXGRP": int64(unix.S_IXGRP),
	"S_IROTH": int64(unix.S_IROTH),
	"S_IWOTH": int64(unix.S_IWOTH),
	"S_IXOTH": int64(unix.S_IXOTH),

	// open flags
	"O_RDONLY":  int64(unix.O_RDONLY),
	"O_WRONLY":  int64(unix.O_WRONLY),
	"O_RDWR":    int64(unix.O_RDWR),
	"O_ACCMODE": int64(unix.O_ACCMODE),
	"O_APPEND":  int64(unix.O_APPEND),
	"O_CREAT":   int64(unix.O_CREAT),
	"O_TRUNC":   int64(unix.O_TRUNC),

	// access masks
	"F_OK": int64(unix.F_OK),
	"R_OK": int64(unix.R_OK),
	"W_OK": int64(unix.W_OK),
	"X_OK": int64(unix.X_OK),
}

// Host returns a Resolver over the build platform's constant values.
func Host() Resolver {
	return hostTable
}

// Names returns every constant name the host resolver knows, in no
// particular order. Used by the CLI's resolve subcommand to dump the
// full table.
func Names() []string {
	names := make([]string, 0, len(hostTable))
	for name := range hostTable {
		names = append(names, name)
	}
	return names
}
