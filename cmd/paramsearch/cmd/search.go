package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/paramsearch/internal/bus"
	"github.com/yourorg/paramsearch/internal/checkpoint"
	"github.com/yourorg/paramsearch/internal/config"
	"github.com/yourorg/paramsearch/internal/instanceselect"
	"github.com/yourorg/paramsearch/internal/logging"
	"github.com/yourorg/paramsearch/internal/master"
	"github.com/yourorg/paramsearch/internal/mctsparam"
	"github.com/yourorg/paramsearch/internal/mctstree"
	"github.com/yourorg/paramsearch/internal/scenario"
)

// searchSource picks which of the two search-starting modes to run:
// fresh from a scenario JSON file, or resumed from a checkpoint.
type searchSource struct {
	json string
	load string
}

// runSearch implements the --json and --load master modes: build (or
// restore) the search state, wait for every executor rank to dial in over
// the bus, push each one the resolved prefix command, then run the MCTS
// loop until the wall-clock limit elapses and print the deterministic
// best-assignment string.
func runSearch(src searchSource) error {
	if err := validateRanks(ranks); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: "+err.Error())
		os.Exit(1)
	}

	cfg, err := config.Load(filepath.Join(baseDir, "paramsearch.toml"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = config.LogLevel(logLevel)
	}
	if err := os.MkdirAll(cfg.CheckpointDir(baseDir), 0o755); err != nil {
		return err
	}

	runID := time.Now().Format("20060102-150405") + "-" + uuid.NewString()[:8]

	runDir, err := logging.RunDir(cfg.LogDir(baseDir))
	if err != nil {
		return err
	}
	log, closer, err := logging.NewComponent(cfg, runDir, "master", logging.ParseLevel(cfg.Logging.Level))
	if err != nil {
		return err
	}
	defer closer.Close()

	var (
		registry         *mctsparam.Registry
		store            *mctstree.Store
		instanceVariable string
		timeout          float64
		scenarioSeed     *int64
	)

	switch {
	case src.json != "":
		sc, loadErr := scenario.Load(src.json)
		if loadErr != nil {
			return loadErr
		}
		registry = sc.Registry
		store = mctstree.NewStore()
		instanceVariable = sc.InstanceVariable
		timeout = float64(timeoutSec)

		if seedStr, ok := sc.Constants["seed"]; ok {
			if seed, convErr := strconv.ParseInt(seedStr, 10, 64); convErr == nil {
				mctstree.Seed(seed)
				scenarioSeed = &seed
				log.Info("seeded rollout randomness from scenario", "seed", seed)
			}
		}

	case src.load != "":
		result, loadErr := checkpoint.Load(src.load, checkpoint.Master)
		if loadErr != nil {
			return loadErr
		}
		registry = result.Registry
		store = result.Store
		instanceVariable = result.Config.InstanceVariable
		timeout = result.Config.Timeout

	default:
		return fmt.Errorf("runSearch requires --json or --load")
	}

	instanceSelector, err := instanceselect.New(instances, instanceVariable, true)
	if err != nil {
		return err
	}
	if scenarioSeed != nil {
		instanceSelector.Seed(*scenarioSeed)
	}

	prefix := resolvePrefix(prefixTemplate, timeoutSec, memory)
	socketDir := cfg.SocketDir(baseDir, runID)

	log.Info("waiting for executor ranks to connect", "ranks", ranks, "socket_dir", socketDir)
	transports, err := acceptRanks(socketDir, ranks, prefix, log)
	if err != nil {
		return err
	}

	statePath := filepath.Join(cfg.CheckpointDir(baseDir), "paramsearch-"+runID+".save")

	mcfg := master.Config{
		Store:            store,
		Registry:         registry,
		InstanceSelector: instanceSelector,
		InstanceVariable: instanceVariable,
		Timeout:          timeout,
		Penalty:          cfg.Master.Penalty,
		StatePath:        statePath,
		Compress:         cfg.Checkpoint.Compress,
		ResultPoll:       cfg.Bus.ResultPoll,
		Log:              log,
	}

	m := master.New(mcfg, transports)
	best := m.Run(time.Duration(limitMinutes) * time.Minute)

	fmt.Println(best)
	log.Info("search complete", "best_assignment", best, "checkpoint", statePath)
	return nil
}

// acceptRanks listens on one rank socket per 1..n under dir, blocking
// until every one of them has been dialed by its paramsearch-executor
// counterpart, and immediately pushes the resolved prefix command to
// each; every executor needs it before its first run.
func acceptRanks(dir string, n int, prefix string, log *slog.Logger) ([]master.Transport, error) {
	transports := make([]master.Transport, n)
	for i := 0; i < n; i++ {
		rank := i + 1
		ln, err := bus.Listen(dir, rank)
		if err != nil {
			return nil, err
		}
		ep, err := ln.Accept()
		ln.Close()
		if err != nil {
			return nil, err
		}
		if err := ep.SendCommand(bus.Command{Kind: bus.CmdPrefix, Prefix: prefix}); err != nil {
			return nil, err
		}
		log.Info("executor connected", "rank", rank)
		transports[i] = ep
	}
	return transports, nil
}

// validateRanks enforces the minimum world size: the master plus at
// least two executor ranks on the bus.
func validateRanks(n int) error {
	if n < 2 {
		return fmt.Errorf("use --ranks N with N >= 2 to start the program; "+
			"paramsearch needs at least two executor ranks on the bus, got %d", n)
	}
	return nil
}

// resolvePrefix substitutes {timeout} and {memory} into the prefix
// template from -t/-m.
func resolvePrefix(template string, timeoutSec, memoryMB int) string {
	r := strings.NewReplacer(
		"{timeout}", strconv.Itoa(timeoutSec),
		"{memory}", strconv.Itoa(memoryMB),
	)
	return r.Replace(template)
}
