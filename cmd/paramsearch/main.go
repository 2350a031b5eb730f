// Command paramsearch is the master/CLI entry point: it parses the
// mutually exclusive --test/--json/--load/--stats modes, and for the two
// modes that start a search, listens for the executor ranks spawned
// separately as paramsearch-executor processes and runs the MCTS loop to
// completion.
package main

import (
	"fmt"
	"os"

	"github.com/yourorg/paramsearch/cmd/paramsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
