// Command conexus runs the documentation retrieval service: it syncs
// configured git repositories, indexes their content into a vector
// store, and answers context queries over stdio (MCP), HTTP/REST, or a
// WebSocket transport.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "conexus",
		Short:         "Documentation retrieval service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSyncCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newStartCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCode lets a command signal the spec's distinction between a runtime
// error (1) and a configuration error (2); cobra commands that return a
// plain error get the runtime default.
type exitCode struct {
	error
	code int
}

func configError(err error) error { return exitCode{err, 2} }
func runtimeError(err error) error { return exitCode{err, 1} }

func exitCodeFor(err error) int {
	if ec, ok := err.(exitCode); ok {
		return ec.code
	}
	return 1
}
