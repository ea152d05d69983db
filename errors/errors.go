package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseCompile  Phase = "compile"  // script parse/compile
	PhaseRun      Phase = "run"      // script execution
	PhaseMarshal  Phase = "marshal"  // value conversion
	PhaseDispatch Phase = "dispatch" // metatable operator callbacks
	PhaseRegistry Phase = "registry" // handle and reference bookkeeping
	PhaseHost     Phase = "host"     // host-side proxy operations
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax            Kind = "syntax"
	KindRuntime           Kind = "runtime"
	KindUnsupportedType   Kind = "unsupported_type"
	KindKeyNotFound       Kind = "key_not_found"
	KindEnvironmentClosed Kind = "environment_closed"
	KindHostCallback      Kind = "host_callback"
	KindBadArgument       Kind = "bad_argument"
	KindReleased          Kind = "released"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Syntax creates a compile error carrying the interpreter's message
func Syntax(detail string) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindSyntax,
		Detail: detail,
	}
}

// Runtime creates a script execution error carrying the interpreter's message
func Runtime(detail string) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindRuntime,
		Detail: detail,
	}
}

// UnsupportedType creates an error for a host value with no marshalling rule.
// This is always a programming error, never a recoverable condition.
func UnsupportedType(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupportedType,
		Detail: fmt.Sprintf("no marshalling rule for Go type %s", goType),
	}
}

// KeyNotFound creates an error for a get on an absent table key
func KeyNotFound(key any) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindKeyNotFound,
		Detail: fmt.Sprintf("key %v not found", key),
		Value:  key,
	}
}

// EnvironmentClosed creates an error for operations against a closed environment
func EnvironmentClosed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEnvironmentClosed,
		Detail: "environment is closed",
	}
}

// Released creates an error for operations against a released proxy or handle
func Released(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("%s has been released", what),
	}
}

// HostCallback wraps a failure raised inside a host operator implementation
func HostCallback(op string, cause error) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindHostCallback,
		Detail: fmt.Sprintf("host %s handler failed", op),
		Cause:  cause,
	}
}

// MissingCapability reports a host object that does not implement the
// capability an operator requires.
func MissingCapability(op, goType, capability string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindHostCallback,
		Detail: fmt.Sprintf("%s does not support %s (missing %s)", goType, op, capability),
	}
}

// BadArgument creates an invalid argument error
func BadArgument(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindBadArgument,
		Detail: detail,
	}
}

// Predicates used by callers to branch on error category

func kindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// IsKeyNotFound reports whether err is a key_not_found error
func IsKeyNotFound(err error) bool {
	return kindOf(err) == KindKeyNotFound
}

// IsEnvironmentClosed reports whether err is an environment_closed error
func IsEnvironmentClosed(err error) bool {
	return kindOf(err) == KindEnvironmentClosed
}

// IsUnsupportedType reports whether err is an unsupported_type error
func IsUnsupportedType(err error) bool {
	return kindOf(err) == KindUnsupportedType
}

// IsScriptError reports whether err originated in interpreter code,
// either at compile time or during execution.
func IsScriptError(err error) bool {
	k := kindOf(err)
	return k == KindSyntax || k == KindRuntime
}
