// Command todos runs the todo list service and its client commands.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/todos/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
