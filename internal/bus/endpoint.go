package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourorg/paramsearch/internal/errors"
)

// SocketPath returns the rank-addressed Unix socket path for a run:
// <dir>/rank-<rank>.sock.
func SocketPath(dir string, rank int) string {
	return filepath.Join(dir, fmt.Sprintf("rank-%d.sock", rank))
}

// Endpoint wraps one Unix domain socket connection with
// newline-delimited-JSON framing.
type Endpoint struct {
	rank int
	conn net.Conn

	mu     sync.Mutex
	reader *bufio.Reader
}

func newEndpoint(rank int, conn net.Conn) *Endpoint {
	return &Endpoint{rank: rank, conn: conn, reader: bufio.NewReader(conn)}
}

func (e *Endpoint) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.BusError(e.rank, err)
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.conn.Write(data); err != nil {
		return errors.BusError(e.rank, err)
	}
	return nil
}

func (e *Endpoint) receive(v any) error {
	e.mu.Lock()
	line, err := e.reader.ReadBytes('\n')
	e.mu.Unlock()
	if err != nil {
		return errors.BusError(e.rank, err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return errors.BusError(e.rank, err)
	}
	return nil
}

// SendCommand sends a Command (shim -> executor direction).
func (e *Endpoint) SendCommand(cmd Command) error { return e.send(cmd) }

// ReceiveCommand blocks for the next Command (executor side read).
func (e *Endpoint) ReceiveCommand() (Command, error) {
	var cmd Command
	err := e.receive(&cmd)
	return cmd, err
}

// SendResult sends a Result (executor -> shim direction).
func (e *Endpoint) SendResult(result Result) error { return e.send(result) }

// ReceiveResult blocks for the next Result (shim side read).
func (e *Endpoint) ReceiveResult() (Result, error) {
	var result Result
	err := e.receive(&result)
	return result, err
}

// Rank returns the rank this endpoint is bound to.
func (e *Endpoint) Rank() int { return e.rank }

// Close closes the underlying connection.
func (e *Endpoint) Close() error { return e.conn.Close() }

// Listener accepts the single persistent connection from the executor
// bound to one rank.
type Listener struct {
	rank int
	path string
	ln   net.Listener
}

// Listen creates (or recreates) the rank socket under dir and starts
// listening for the one executor connection expected on it.
func Listen(dir string, rank int) (*Listener, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.BusError(rank, err)
	}
	path := SocketPath(dir, rank)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.BusError(rank, err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, errors.BusError(rank, err)
	}
	return &Listener{rank: rank, path: path, ln: ln}, nil
}

// Accept blocks until the rank's executor dials in, then returns the
// resulting Endpoint.
func (l *Listener) Accept() (*Endpoint, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, errors.BusError(l.rank, err)
	}
	return newEndpoint(l.rank, conn), nil
}

// Close stops listening and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	os.Remove(l.path)
	return err
}

// Dial connects to the rank socket under dir as the executor side.
func Dial(dir string, rank int, timeout time.Duration) (*Endpoint, error) {
	path := SocketPath(dir, rank)
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, errors.BusError(rank, err)
	}
	return newEndpoint(rank, conn), nil
}
