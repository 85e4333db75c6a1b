// Package main is the entry point for the catalog-tracker server.
package main

import (
	"os"

	"github.com/jmhart/catalog-tracker/cmd/catalog-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
