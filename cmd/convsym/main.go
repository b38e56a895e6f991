// Package main provides the entry point for the convsym CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/convsym/cmd/convsym/commands"
)

func main() {
	rootCmd := commands.NewRootCommand()
	rootCmd.SetArgs(commands.NormalizeArgs(os.Args[1:]))

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
