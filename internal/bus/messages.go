// Package bus implements the rank-addressed message transport between the
// master's in-process worker shims and the remote executor processes: one
// newline-delimited-JSON Unix socket per rank, giving point-to-point
// send/recv tagged by rank.
package bus

// Command kinds.
const (
	CmdStop   = "stop"
	CmdPrefix = "prefix"
	CmdRun    = "run"
)

// Command is sent from a worker shim to the executor bound to its rank.
type Command struct {
	Kind string `json:"kind"`

	// Prefix carries the new prefix_cmd template for a "prefix" command.
	Prefix string `json:"prefix,omitempty"`

	// NodeKey identifies the interned tree node the task's rollout
	// extended, so the Result correlates back to it without the executor
	// ever touching the node store itself.
	NodeKey string `json:"node_key,omitempty"`

	// Assignment is the full rollout assignment (including the injected
	// instance variable), converted to a flat map, for a "run" command.
	Assignment map[string]string `json:"assignment,omitempty"`
}

// Result is sent from an executor back to the shim that dispatched its
// task. Value is nil when the target run was interrupted (timeout).
type Result struct {
	NodeKey string   `json:"node_key"`
	Value   *float64 `json:"value,omitempty"`
}
