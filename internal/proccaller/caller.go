// Package proccaller spawns the target solver under a resource-limiting
// prefix wrapper, renders its command line through a Callstring, and
// parses its stdout/stderr via named-capture regular expressions. One
// Caller is owned exclusively by a single executor.
package proccaller

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"syscall"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/yourorg/paramsearch/internal/callstring"
	"github.com/yourorg/paramsearch/internal/errors"
)

// Result is the named-capture groups recovered from one run, split by
// stream.
type Result struct {
	Stdout map[string]string
	Stderr map[string]string
}

// Caller owns the executable path, its Callstring, the (mutable) prefix
// wrapper command, and the compiled stdout/stderr patterns. While a child
// is running it also tracks the child's PID and its direct descendants so
// Kill can terminate the whole tree.
type Caller struct {
	path       string
	callstring *callstring.Callstring

	mu        sync.Mutex
	prefixCmd string
	constants map[string]string

	stdoutPatterns []*regexp.Regexp
	stderrPatterns []*regexp.Regexp

	runMu    sync.Mutex
	childPID int
	children []int
}

// New validates that path exists, is a regular file, and is executable,
// then compiles the stdout/stderr regex lists (each entry's $name$
// placeholders become named capture groups). Construction fails with an
// ExecutableError otherwise.
func New(path string, cs *callstring.Callstring, prefixCmd string, stdoutRegex, stderrRegex []string) (*Caller, error) {
	if err := validateExecutable(path); err != nil {
		return nil, err
	}

	stdoutPatterns, err := CompileAllNamed(stdoutRegex)
	if err != nil {
		return nil, errors.Wrap(errors.CodeExecutable, "invalid stdout regex", err)
	}
	stderrPatterns, err := CompileAllNamed(stderrRegex)
	if err != nil {
		return nil, errors.Wrap(errors.CodeExecutable, "invalid stderr regex", err)
	}

	return &Caller{
		path:           path,
		callstring:     cs,
		prefixCmd:      prefixCmd,
		stdoutPatterns: stdoutPatterns,
		stderrPatterns: stderrPatterns,
	}, nil
}

func validateExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.ExecutableError(path, "not found")
	}
	if !info.Mode().IsRegular() {
		return errors.ExecutableError(path, "not a regular file")
	}
	if info.Mode()&0o111 == 0 {
		return errors.ExecutableError(path, "not executable")
	}
	return nil
}

// SetPrefixCmd atomically replaces the prefix wrapper template, used when
// the executor receives a "prefix" command from the master.
func (c *Caller) SetPrefixCmd(prefixCmd string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixCmd = prefixCmd
}

func (c *Caller) currentPrefixCmd() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefixCmd
}

// SetConstants installs the scenario-space constants (the num/seed
// defaults) that Call merges onto every assignment ahead of rendering, so
// the callstring's $num$/$seed$ placeholders resolve even though no MCTS
// parameter ever carries those names.
func (c *Caller) SetConstants(constants map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.constants = constants
}

func (c *Caller) currentConstants() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.constants
}

// Call renders assignment through the Callstring, optionally decompresses
// assignment[cat] into a tempfile first (rewriting assignment[cat] to the
// tempfile path), spawns prefix_cmd + executable + rendered args, waits
// for completion, and returns the named captures merged from each
// compiled stdout/stderr pattern. The tempfile from the cat step, if any,
// is removed before Call returns, success or failure.
func (c *Caller) Call(assignment map[string]string, cat string) (*Result, error) {
	if cat != "" {
		tmpPath, err := catToTempFile(assignment[cat])
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmpPath)
		assignment[cat] = tmpPath
	}

	merged := callstring.MergeConstants(c.currentConstants(), assignment)
	rendered, err := c.callstring.Assign(merged)
	if err != nil {
		return nil, err
	}

	argv, err := buildArgv(c.currentPrefixCmd(), c.path, rendered)
	if err != nil {
		return nil, err
	}

	stdout, stderr, err := c.spawn(argv)
	if err != nil {
		return nil, err
	}

	result := &Result{Stdout: map[string]string{}, Stderr: map[string]string{}}
	for _, re := range c.stdoutPatterns {
		matchNamedGroups(re, stdout, result.Stdout)
	}
	for _, re := range c.stderrPatterns {
		matchNamedGroups(re, stderr, result.Stderr)
	}
	return result, nil
}

func catToTempFile(source string) (string, error) {
	in, err := openSniffed(source)
	if err != nil {
		return "", errors.Wrap(errors.CodeExecutable, "opening cat source", err)
	}
	defer in.Close()

	out, err := os.CreateTemp("", "paramsearch-"+uuid.NewString()+"-*")
	if err != nil {
		return "", errors.Wrap(errors.CodeExecutable, "creating tempfile", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(out.Name())
		return "", errors.Wrap(errors.CodeExecutable, "writing tempfile", err)
	}
	return out.Name(), nil
}

// buildArgv tokenizes prefix_cmd + executable + rendered callstring with
// shell-quote-respecting rules.
func buildArgv(prefixCmd, path, rendered string) ([]string, error) {
	joined := path
	if prefixCmd != "" {
		joined = prefixCmd + " " + path
	}
	if rendered != "" {
		joined = joined + " " + rendered
	}

	tokens, err := shlex.Split(joined)
	if err != nil {
		return nil, errors.Wrapf(errors.CodeSpawn, err, "splitting command line %q", joined)
	}
	return tokens, nil
}

func (c *Caller) spawn(argv []string) (stdout, stderr string, err error) {
	if len(argv) == 0 {
		return "", "", errors.SpawnError(argv, fmt.Errorf("empty argv"))
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if startErr := cmd.Start(); startErr != nil {
		return "", "", errors.SpawnError(argv, startErr)
	}

	c.runMu.Lock()
	c.childPID = cmd.Process.Pid
	c.children = directChildren(cmd.Process.Pid)
	c.runMu.Unlock()

	waitErr := cmd.Wait()

	c.runMu.Lock()
	c.childPID = 0
	c.children = nil
	c.runMu.Unlock()

	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return outBuf.String(), errBuf.String(), errors.SpawnError(argv, waitErr)
		}
	}
	return outBuf.String(), errBuf.String(), nil
}

// directChildren shells out to `ps` to enumerate the immediate
// descendants of pid.
func directChildren(pid int) []int {
	out, err := exec.Command("ps", "-o", "pid=", "--ppid", fmt.Sprint(pid)).Output()
	if err != nil {
		return nil
	}
	var children []int
	for _, field := range bytes.Fields(out) {
		var cpid int
		if _, err := fmt.Sscanf(string(field), "%d", &cpid); err == nil {
			children = append(children, cpid)
		}
	}
	return children
}

// Kill delivers sig to every child PID recorded at spawn time and to the
// main child. It is a safe no-op when no child is currently running.
func (c *Caller) Kill(sig syscall.Signal) {
	c.runMu.Lock()
	pid := c.childPID
	children := append([]int(nil), c.children...)
	c.runMu.Unlock()

	if pid == 0 {
		return
	}
	for _, child := range children {
		_ = syscall.Kill(child, sig)
	}
	_ = syscall.Kill(-pid, sig)
	_ = syscall.Kill(pid, sig)
}
