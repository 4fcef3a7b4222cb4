// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects [Real]; tests inject [Fake] and advance it deterministically.
//
// The process supervisor polls child liveness on a coarse interval.
// Testing that loop against the wall clock would make the suite slow
// and flaky, so everything that sleeps or ticks takes a [Clock].
package clock
