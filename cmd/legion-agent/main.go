// Command legion-agent runs one agent task to completion inside its pod: it
// reads the task descriptor from the inbox, drives the model-tool loop, and
// writes the result and usage records to the outbox before exiting.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "legion-agent",
		Short:        "Legion agent runtime",
		Long:         "Runs a single Legion task: loads the inbox descriptor, drives the model-tool loop, and reports the outcome.",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
