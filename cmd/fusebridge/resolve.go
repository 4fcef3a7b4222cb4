// Copyright 2026 The Fusebridge Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"
)

func resolveCmd(args []string) error {
	flags := pflag.NewFlagSet("resolve", pflag.ContinueOnError)
	tablePath := flags.String("table", "", "YAML constants table from compiler discovery")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("resolve requires at least one constant name")
	}

	resolver, err := loadResolver(*tablePath)
	if err != nil {
		return err
	}

	for _, name := range flags.Args() {
		value, err := resolver.Lookup(name)
		if err != nil {
			return err
		}
		fmt.Printf("%s %d\n", name, value)
	}
	return nil
}
