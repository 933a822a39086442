// Package errors provides the structured error type of the instrumentation pipeline.
//
// Errors are categorized by Phase (the pipeline stage that failed) and Kind
// (the failure category). An Error carries the function symbol and the
// instruction position it refers to, plus the underlying cause.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseSplice, errors.KindSpliceOutOfRange).
//		Symbol("main").
//		Position(20).
//		Detail("body has %d instructions", 18).
//		Build()
//
// Or use convenience constructors for the common failures:
//
//	err := errors.SymbolNotFound("main")
//	err := errors.Decode(cause)
//
// Errors match with errors.Is against the Err* sentinels by kind, or
// against an *Error with both Phase and Kind set.
package errors
