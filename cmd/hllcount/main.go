// Command hllcount estimates the number of distinct lines in its input.
package main

import (
	"fmt"
	"os"

	"github.com/segmentio/go-hll-dense/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
