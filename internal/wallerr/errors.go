// Package wallerr classifies the failures of a status wall run. Each type
// carries the exit code the CLI returns for it.
package wallerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error is implemented by every classified failure.
type Error interface {
	error

	// ExitCode for the process when this error aborts a run
	ExitCode() int
}

const (
	unclassifiedExitCode = 1
	configExitCode       = 2
	queryExitCode        = 10
	shapeExitCode        = 11
	renderSpecExitCode   = 12
)

// QueryError is a transport or API failure of a single metrics query.
type QueryError struct {
	Cluster    string
	Expression string
	// StatusCode is the HTTP status, 0 when no response was received
	StatusCode int
	// ErrorType is the Prometheus errorType, if the API reported one
	ErrorType string
	Err       error
}

func (e *QueryError) Error() string {
	msg := fmt.Sprintf("QUERY_ERROR: cluster %q: %q", e.Cluster, e.Expression)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.ErrorType != "" {
		msg += fmt.Sprintf(": %s", e.ErrorType)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *QueryError) ExitCode() int { return queryExitCode }

// Format passes formatting responsibilities to cockroachdb/errors
func (e *QueryError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

func (e *QueryError) Unwrap() error { return e.Err }

// ShapeError is a query result whose declared type is not scalar, vector or
// matrix, or whose body does not match its declared type.
type ShapeError struct {
	ResultType string
	Err        error
}

func (e *ShapeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("SHAPE_ERROR: unrecognized result type %q", e.ResultType)
	}
	return fmt.Sprintf("SHAPE_ERROR: result type %q: %s", e.ResultType, e.Err)
}

func (e *ShapeError) ExitCode() int { return shapeExitCode }

func (e *ShapeError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

func (e *ShapeError) Unwrap() error { return e.Err }

// RenderSpecError is a panel configuration inconsistent with the data it received.
type RenderSpecError struct {
	Panel  string
	Reason string
}

func (e *RenderSpecError) Error() string {
	return fmt.Sprintf("RENDER_SPEC_ERROR: panel %q: %s", e.Panel, e.Reason)
}

func (e *RenderSpecError) ExitCode() int { return renderSpecExitCode }

func (e *RenderSpecError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

// ConfigError is an invalid wall configuration detected at load time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("CONFIG_ERROR: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) ExitCode() int { return configExitCode }

func (e *ConfigError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

// PanelError names the panel whose pipeline failed. Its exit code is the one
// of the wrapped failure.
type PanelError struct {
	Index int
	Title string
	Err   error
}

func (e *PanelError) Error() string {
	return fmt.Sprintf("panel %q (#%d): %s", e.Title, e.Index, e.Err)
}

func (e *PanelError) ExitCode() int {
	var inner Error
	if errors.As(e.Err, &inner) {
		return inner.ExitCode()
	}
	return unclassifiedExitCode
}

func (e *PanelError) Format(s fmt.State, verb rune) { errors.FormatError(e, s, verb) }

func (e *PanelError) Unwrap() error { return e.Err }

// ExitCode returns the process exit code for err; 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e Error
	if errors.As(err, &e) {
		return e.ExitCode()
	}
	return unclassifiedExitCode
}

// IsQueryError reports whether err has a QueryError in its chain.
func IsQueryError(err error) bool {
	var ref *QueryError
	return errors.As(err, &ref)
}

// IsShapeError reports whether err has a ShapeError in its chain.
func IsShapeError(err error) bool {
	var ref *ShapeError
	return errors.As(err, &ref)
}

// IsRenderSpecError reports whether err has a RenderSpecError in its chain.
func IsRenderSpecError(err error) bool {
	var ref *RenderSpecError
	return errors.As(err, &ref)
}

// IsConfigError reports whether err has a ConfigError in its chain.
func IsConfigError(err error) bool {
	var ref *ConfigError
	return errors.As(err, &ref)
}

// AsPanelError extracts the PanelError from err's chain.
func AsPanelError(err error) (*PanelError, bool) {
	var ref *PanelError
	if errors.As(err, &ref) {
		return ref, true
	}
	return nil, false
}
