// Package main provides the entry point for the xfinder CLI.
package main

import (
	"os"

	"github.com/xfinder/xfinder/cmd/xfinder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
