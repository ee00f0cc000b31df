// Package geomerr defines the error kinds reported by the helix geometry engine.
//
// Every failure surfaced by the engine carries one of a small, closed set of
// codes so that collaborators (the editor, the HTTP API, the CLI) can decide
// how to react without parsing messages:
//   - UNKNOWN_GRID, UNKNOWN_HELIX: a dangling integer id
//   - INDEX_OUT_OF_DECLARED_RANGE: a recoverable "no frame" query result
//   - DEGENERATE_CURVE: a curve with a zero-speed region
//   - TOPOLOGY_MISMATCH: inconsistent strand domains and junctions
//   - RELAXATION_DIVERGED: the relaxer aborted on numerical divergence
//
// # Usage
//
//	err := geomerr.New(geomerr.CodeUnknownHelix, "helix %d", id)
//	if errors.Is(err, geomerr.ErrUnknownHelix) {
//	    // show "no such helix"
//	}
package geomerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknownGrid             Code = "UNKNOWN_GRID"
	CodeUnknownHelix            Code = "UNKNOWN_HELIX"
	CodeIndexOutOfDeclaredRange Code = "INDEX_OUT_OF_DECLARED_RANGE"
	CodeDegenerateCurve         Code = "DEGENERATE_CURVE"
	CodeTopologyMismatch        Code = "TOPOLOGY_MISMATCH"
	CodeRelaxationDiverged      Code = "RELAXATION_DIVERGED"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrUnknownGrid             = &Error{Code: CodeUnknownGrid, Message: "unknown grid"}
	ErrUnknownHelix            = &Error{Code: CodeUnknownHelix, Message: "unknown helix"}
	ErrIndexOutOfDeclaredRange = &Error{Code: CodeIndexOutOfDeclaredRange, Message: "index out of declared range"}
	ErrDegenerateCurve         = &Error{Code: CodeDegenerateCurve, Message: "degenerate curve"}
	ErrTopologyMismatch        = &Error{Code: CodeTopologyMismatch, Message: "topology mismatch"}
	ErrRelaxationDiverged      = &Error{Code: CodeRelaxationDiverged, Message: "relaxation diverged"}
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so a detailed error built with
// New satisfies errors.Is against the package sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error chain.
// Returns the empty code if no *Error is present.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err is one of the recoverable "not found" kinds
// (unknown grid, unknown helix, or an out-of-range index).
func IsNotFound(err error) bool {
	switch GetCode(err) {
	case CodeUnknownGrid, CodeUnknownHelix, CodeIndexOutOfDeclaredRange:
		return true
	}
	return false
}
