// Package main provides the leapsheet CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsheet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
