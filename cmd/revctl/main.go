// Command revctl is the Revline operator CLI.
package main

import (
	"fmt"
	"os"

	"revline/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
