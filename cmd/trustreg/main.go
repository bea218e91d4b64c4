// Package main is the entry point for the trustreg CLI.
package main

import (
	"fmt"
	"os"

	"github.com/trustreg-labs/trustreg-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
