// Package main provides the CLI for the Shelfline retail analytics pipeline.
package main

import (
	"os"

	"github.com/northstack-labs/shelfline/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
