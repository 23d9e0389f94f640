// Package main provides the entry point for the envship CLI.
package main

import (
	"fmt"
	"os"

	"github.com/envship/envship/cmd/envship/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
