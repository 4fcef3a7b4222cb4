// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package sysconst

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FromYAML loads a constant table from a YAML file of name: value
// pairs, as emitted by an external discovery run against the host's C
// headers. Values must be integers.
//
//	ENOENT: 2
//	EACCES: 13
//	S_IFDIR: 16384
func FromYAML(path string) (Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading constant table %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML parses a YAML constant table from memory.
func ParseYAML(data []byte) (Resolver, error) {
	var raw map[string]int64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing constant table: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("constant table is empty")
	}
	return table(raw), nil
}
