// Package errors provides structured error types for the lua-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes context: field path, offending value,
// and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindUnsupportedType).
//		Path("args", "2").
//		Detail("cannot convert chan int").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.KeyNotFound("speed")
//	err := errors.Runtime(luaErrText)
//
// All errors implement the standard error interface and support errors.Is/As.
// The predicates IsKeyNotFound, IsEnvironmentClosed, IsUnsupportedType and
// IsScriptError identify categories without reaching into the struct.
package errors
