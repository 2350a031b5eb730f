package cmd

import (
	"fmt"

	"github.com/yourorg/paramsearch/internal/checkpoint"
	"github.com/yourorg/paramsearch/internal/dotgraph"
	"github.com/yourorg/paramsearch/internal/mctstree"
)

// runStats implements the --stats mode: load a checkpoint in master mode
// and pretty-print the restored configuration, node count, parameter
// count, and the deterministic best-assignment string. With --dot, also
// write the search tree to "<file>.dot".
func runStats(path string, dot bool) error {
	result, err := checkpoint.Load(path, checkpoint.Master)
	if err != nil {
		return err
	}

	fmt.Println("Configuration")
	fmt.Println("=============")
	fmt.Printf("%20s: %v\n\n", "instance_variable", result.Config.InstanceVariable)
	fmt.Printf("%20s: %v\n\n", "timeout", result.Config.Timeout)

	fmt.Printf("%9s: %d\n", "Nodes", result.Store.Count())
	fmt.Printf("%9s: %d\n", "Parameter", result.Registry.Count())
	fmt.Printf("%9s: %s\n", "best leaf", mctstree.BestAssignment(result.Store))

	if dot {
		dotPath := path + ".dot"
		if err := dotgraph.WriteFile(dotPath, result.Store.Root()); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", dotPath)
	}

	return nil
}
