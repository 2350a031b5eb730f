package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Mode flags: --test, --json, --load, --stats are mutually exclusive and
// one of them is required.
var (
	testMode  bool
	jsonFile  string
	loadFile  string
	statsFile string
	dotFlag   bool

	instances      []string
	memory         int
	timeoutSec     int
	prefixTemplate string
	useProcesses   bool // --processes negates --threads
	ranks          int
	limitMinutes   int

	logLevel string
	baseDir  string
)

var rootCmd = &cobra.Command{
	Use:   "paramsearch",
	Short: "Monte-Carlo Tree Search based algorithm configurator",
	Long: `paramsearch searches, via Monte-Carlo Tree Search, for an assignment of
values to the parameters of a target solver that minimises its runtime on a
corpus of problem instances.

One of --test, --json, --load, or --stats must be given. --json and --load
start a master that listens on the rank bus for the executor processes
launched separately (one paramsearch-executor per rank; see --ranks below
and that binary's own --rank/--socket-dir flags); --stats prints a saved
checkpoint's statistics without running a search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.Flags().BoolVar(&testMode, "test", false, "run test suite")
	rootCmd.Flags().StringVarP(&jsonFile, "json", "j", "", "read scenario JSON file")
	rootCmd.Flags().StringVarP(&loadFile, "load", "l", "", "read saved checkpoint")
	rootCmd.Flags().StringVarP(&statsFile, "stats", "s", "", "print stats of a checkpoint file")
	rootCmd.MarkFlagsMutuallyExclusive("test", "json", "load", "stats")

	rootCmd.Flags().BoolVarP(&dotFlag, "dot", "d", false, "write MCTS graph as .dot file (stats mode only)")
	rootCmd.Flags().StringSliceVarP(&instances, "instances", "i", []string{"instances/"}, "paths to instances directories")
	rootCmd.Flags().IntVarP(&memory, "memory", "m", 2000, "memory limit for evaluation algorithm execution in MB")
	rootCmd.Flags().IntVarP(&timeoutSec, "timeout", "t", 600, "timeout for evaluation algorithm execution in seconds")
	rootCmd.Flags().StringVarP(&prefixTemplate, "prefix", "p", "bin/runsolver -W {timeout} -M {memory}",
		"executable to call in front of the evaluation algorithm")
	rootCmd.Flags().Bool("threads", true, "use worker threads (default)")
	rootCmd.Flags().BoolVar(&useProcesses, "processes", false, "use worker processes")
	// Shim concurrency in this master is always goroutines (see
	// internal/master's shim-per-rank design); --threads/--processes is
	// accepted for launcher-script compatibility and is otherwise a
	// no-op.
	_ = useProcesses
	rootCmd.Flags().IntVar(&ranks, "ranks", 0,
		"number of executor ranks to wait for on the bus before starting the search "+
			"(the Go-native substitute for \"mpirun -n N\": there is no MPI launcher here, "+
			"so the master must be told how many paramsearch-executor processes will dial in)")
	rootCmd.Flags().IntVar(&limitMinutes, "limit", 60, "time limit for paramsearch execution, in minutes")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug/info/warn/error; overrides the config file)")
	rootCmd.Flags().StringVarP(&baseDir, "workdir", "C", ".", "base directory for logs, checkpoints, and the bus socket directory")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("paramsearch {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func runRoot(cmd *cobra.Command, args []string) error {
	switch {
	case testMode:
		return runTest()
	case statsFile != "":
		return runStats(statsFile, dotFlag)
	case jsonFile != "":
		return runSearch(searchSource{json: jsonFile})
	case loadFile != "":
		return runSearch(searchSource{load: loadFile})
	default:
		return fmt.Errorf("one of --test, --json, --load, or --stats is required")
	}
}
