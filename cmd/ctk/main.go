// Package main is the entry point for the ctk CLI.
package main

import (
	"github.com/jmhart/catalog-tracker/cmd/ctk/cmd"
)

func main() {
	cmd.Execute()
}
