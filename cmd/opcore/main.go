// Package main provides the opcore CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
