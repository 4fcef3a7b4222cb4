// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package hellofs is a small in-memory read-only filesystem used to
// demonstrate and exercise the callback bridge. It serves /hello and
// /moto/hello, each containing a greeting, and rejects every mutation
// with EROFS.
package hellofs
