// Package executor implements the per-rank protocol loop: receive a
// Command from the master's worker shim over the rank bus, run the target
// program through the program caller, and report a Result back.
package executor

import (
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/yourorg/paramsearch/internal/bus"
	"github.com/yourorg/paramsearch/internal/proccaller"
)

// Caller is the subset of *proccaller.Caller the executor depends on,
// narrowed so tests can substitute a fake program caller.
type Caller interface {
	Call(assignment map[string]string, cat string) (*proccaller.Result, error)
	SetPrefixCmd(prefixCmd string)
	Kill(sig syscall.Signal)
}

// Transport is the subset of *bus.Endpoint the executor depends on.
type Transport interface {
	ReceiveCommand() (bus.Command, error)
	SendResult(bus.Result) error
}

// Executor runs one rank's receive/call/reply loop.
type Executor struct {
	caller    Caller
	transport Transport
	cat       string
	log       *slog.Logger
}

// New builds an Executor bound to caller and transport. cat is the
// instance-variable name the instance selector assigns into every task's
// assignment map, forwarded to Caller.Call for decompression.
func New(caller Caller, transport Transport, cat string, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{caller: caller, transport: transport, cat: cat, log: log}
}

// Listen installs SIGINT/SIGTERM handlers that kill the in-flight child
// and exit, then blocks processing commands until a "stop" command (or a
// transport error) ends the loop.
func (e *Executor) Listen() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigCh:
			e.log.Debug("caught signal, killing child", "signal", sig)
			e.caller.Kill(syscall.SIGTERM)
			os.Exit(1)
		case <-done:
		}
	}()

	return e.Run()
}

// Run processes commands until a "stop" command arrives or the transport
// fails, without installing signal handlers (used directly by tests).
func (e *Executor) Run() error {
	for {
		cmd, err := e.transport.ReceiveCommand()
		if err != nil {
			return err
		}

		switch cmd.Kind {
		case bus.CmdStop:
			e.log.Debug("received stop message")
			return nil
		case bus.CmdPrefix:
			e.log.Debug("received new prefix cmd", "prefix", cmd.Prefix)
			e.caller.SetPrefixCmd(cmd.Prefix)
		case bus.CmdRun:
			if err := e.process(cmd); err != nil {
				return err
			}
		}
	}
}

// process runs one task. Every run command gets exactly one reply: a
// failed call or an unparseable time capture is reported as a nil-value
// result so the shim's request/reply cycle stays in lockstep. The
// returned error is a transport failure only.
func (e *Executor) process(cmd bus.Command) error {
	var value *float64

	result, err := e.caller.Call(cmd.Assignment, e.cat)
	switch {
	case err != nil:
		e.log.Error("run failed, reporting as timeout", "error", err, "node_key", cmd.NodeKey)
	default:
		if _, interrupted := result.Stdout["interrupted"]; interrupted {
			e.log.Debug("run interrupted, reporting as timeout", "node_key", cmd.NodeKey)
			break
		}
		t, parseErr := strconv.ParseFloat(result.Stdout["time"], 64)
		if parseErr != nil {
			e.log.Error("missing time capture, reporting as timeout", "error", parseErr, "node_key", cmd.NodeKey)
			break
		}
		value = &t
		e.log.Debug("run completed", "node_key", cmd.NodeKey, "value", t)
	}

	return e.transport.SendResult(bus.Result{NodeKey: cmd.NodeKey, Value: value})
}
