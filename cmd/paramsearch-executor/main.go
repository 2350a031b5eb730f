// Command paramsearch-executor is the standalone per-rank process: one
// per executor rank, dialing back into the master's rank socket and
// running the receive/call/reply loop from internal/executor.
package main

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/yourorg/paramsearch/internal/bus"
	"github.com/yourorg/paramsearch/internal/callstring"
	"github.com/yourorg/paramsearch/internal/executor"
	"github.com/yourorg/paramsearch/internal/proccaller"
	"github.com/yourorg/paramsearch/internal/scenario"
)

var (
	socketDir    string
	rank         int
	scenarioPath string
	prefixCmd    string
	dialTimeout  time.Duration
	logLevel     string
)

func init() {
	flag.StringVar(&socketDir, "socket-dir", "", "directory holding the master's rank-<rank>.sock files")
	flag.IntVar(&rank, "rank", 0, "this executor's rank (1..W)")
	flag.StringVar(&scenarioPath, "scenario", "", "path to the scenario JSON file")
	flag.StringVar(&prefixCmd, "prefix", "", "initial resource-limiting prefix command")
	flag.DurationVar(&dialTimeout, "dial-timeout", 10*time.Second, "timeout for dialing the master's rank socket")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug/info/warn/error)")
}

func main() {
	flag.Parse()

	if env := os.Getenv("PARAMSEARCH_SOCKET_DIR"); env != "" && socketDir == "" {
		socketDir = env
	}
	if env := os.Getenv("PARAMSEARCH_RANK"); env != "" && rank == 0 {
		if v, err := strconv.Atoi(env); err == nil {
			rank = v
		}
	}
	if env := os.Getenv("PARAMSEARCH_SCENARIO"); env != "" && scenarioPath == "" {
		scenarioPath = env
	}

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(logLevel)})).
		With("component", "executor", "rank", rank)

	if socketDir == "" || rank <= 0 || scenarioPath == "" {
		log.Error("missing required flags", "socket_dir", socketDir, "rank", rank, "scenario", scenarioPath)
		os.Exit(1)
	}

	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		log.Error("failed to load scenario", "error", err)
		os.Exit(1)
	}

	cs := callstring.Parse(sc.CallstringTemplate)
	caller, err := proccaller.New(sc.Executable, cs, prefixCmd, sc.StdoutPatterns, sc.StderrPatterns)
	if err != nil {
		log.Error("failed to construct program caller", "error", err)
		os.Exit(1)
	}
	caller.SetConstants(sc.Constants)

	endpoint, err := bus.Dial(socketDir, rank, dialTimeout)
	if err != nil {
		log.Error("failed to dial master", "error", err)
		os.Exit(1)
	}
	defer endpoint.Close()

	runner := executor.New(caller, endpoint, sc.InstanceVariable, log)
	if err := runner.Listen(); err != nil {
		log.Error("executor loop ended with error", "error", err)
		os.Exit(1)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

