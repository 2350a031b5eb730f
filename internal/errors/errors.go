// Package errors provides structured error types for paramsearch.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes for paramsearch operations.
const (
	// Callstring errors
	CodeArgument = "ARG_001" // Argument required but unresolved
	CodeVariable = "VAR_001" // Required variable missing from assignment

	// Instance selection errors
	CodeInstance = "INSTANCE_001" // Instance directory walk failure

	// Program caller errors
	CodeExecutable = "EXEC_001" // Executable missing, not a file, or not executable
	CodeSpawn      = "EXEC_002" // Process spawn failure

	// Checkpoint errors
	CodeSave = "CKPT_001" // Checkpoint write failure
	CodeLoad = "CKPT_002" // Checkpoint read or decode failure

	// Bus/transport errors
	CodeBus = "BUS_001" // Send/receive failure on the rank bus

	// Scenario/config errors
	CodeScenario = "SCEN_001" // Scenario JSON missing or malformed field
)

// ParamError is the structured error type for paramsearch operations.
type ParamError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *ParamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ParamError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *ParamError) WithDetail(key string, value any) *ParamError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// MarshalJSON implements json.Marshaler with the cause's message instead of
// the (unserializable) error value.
func (e *ParamError) MarshalJSON() ([]byte, error) {
	type alias ParamError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{alias: (*alias)(e)}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new ParamError.
func New(code, message string) *ParamError {
	return &ParamError{Code: code, Message: message}
}

// Newf creates a new ParamError with a formatted message.
func Newf(code, format string, args ...any) *ParamError {
	return &ParamError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a ParamError.
func Wrap(code, message string, err error) *ParamError {
	return &ParamError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an error with a formatted ParamError.
func Wrapf(code string, err error, format string, args ...any) *ParamError {
	return &ParamError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// --- Callstring errors ---

// ArgumentError reports that a required argument had no resolvable variables.
func ArgumentError(argument string) *ParamError {
	return Newf(CodeArgument, "argument %q requires at least one resolved variable", argument).
		WithDetail("argument", argument)
}

// VariableError reports that a required variable was missing from the assignment.
func VariableError(name string) *ParamError {
	return Newf(CodeVariable, "required variable missing: %s", name).
		WithDetail("variable", name)
}

// --- Instance selection errors ---

// InstanceError reports a failure walking an instance root directory.
func InstanceError(path string, err error) *ParamError {
	return Wrap(CodeInstance, "failed to walk instance directory", err).
		WithDetail("path", path)
}

// --- Program caller errors ---

// ExecutableError reports that the configured executable cannot be run.
func ExecutableError(path, reason string) *ParamError {
	return Newf(CodeExecutable, "executable %s: %s", path, reason).
		WithDetail("path", path).
		WithDetail("reason", reason)
}

// SpawnError reports a process spawn failure.
func SpawnError(argv []string, err error) *ParamError {
	return Wrap(CodeSpawn, "failed to spawn process", err).
		WithDetail("argv", argv)
}

// --- Checkpoint errors ---

// SaveError reports a checkpoint write failure.
func SaveError(path string, err error) *ParamError {
	return Wrap(CodeSave, "failed to save checkpoint", err).
		WithDetail("path", path)
}

// LoadError reports a checkpoint read or decode failure.
func LoadError(path string, err error) *ParamError {
	return Wrap(CodeLoad, "failed to load checkpoint", err).
		WithDetail("path", path)
}

// --- Bus errors ---

// BusError reports a send/receive failure on the rank bus.
func BusError(rank int, err error) *ParamError {
	return Wrap(CodeBus, "bus transport failure", err).
		WithDetail("rank", rank)
}

// --- Scenario errors ---

// ScenarioFieldMissing reports a missing required field in the scenario JSON.
func ScenarioFieldMissing(field string) *ParamError {
	return Newf(CodeScenario, "scenario missing required field: %s", field).
		WithDetail("field", field)
}

// HasCode reports whether err is a ParamError with the given code.
func HasCode(err error, code string) bool {
	var perr *ParamError
	if errors.As(err, &perr) {
		return perr.Code == code
	}
	return false
}

// Code returns the error code if err is a ParamError, empty string otherwise.
func Code(err error) string {
	var perr *ParamError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return ""
}
