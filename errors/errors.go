package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which pipeline stage produced the error
type Phase string

const (
	PhaseDecode   Phase = "decode"   // binary to module
	PhaseNames    Phase = "names"    // name section parsing
	PhaseResolve  Phase = "resolve"  // symbol lookup
	PhaseReport   Phase = "report"   // dependency walk
	PhaseSplice   Phase = "splice"   // body modification
	PhaseEncode   Phase = "encode"   // module to binary
	PhaseIO       Phase = "io"       // file access
	PhaseValidate Phase = "validate" // wazero compilation
	PhaseUsage    Phase = "usage"    // command line
)

// Kind categorizes the error
type Kind string

const (
	KindDecode             Kind = "decode_error"
	KindMissingNameSection Kind = "missing_name_section"
	KindSymbolNotFound     Kind = "symbol_not_found"
	KindNoBodyForImport    Kind = "no_body_for_import"
	KindIndexOutOfRange    Kind = "index_out_of_range"
	KindSpliceOutOfRange   Kind = "splice_out_of_range"
	KindEncode             Kind = "encode_error"
	KindIO                 Kind = "io_error"
	KindInvalidInput       Kind = "invalid_input"
	KindInvalidState       Kind = "invalid_state"
	KindValidation         Kind = "validation_failed"
)

// Sentinels for errors.Is matching by kind alone.
var (
	ErrDecode             = sentinel(KindDecode)
	ErrMissingNameSection = sentinel(KindMissingNameSection)
	ErrSymbolNotFound     = sentinel(KindSymbolNotFound)
	ErrNoBodyForImport    = sentinel(KindNoBodyForImport)
	ErrIndexOutOfRange    = sentinel(KindIndexOutOfRange)
	ErrSpliceOutOfRange   = sentinel(KindSpliceOutOfRange)
	ErrEncode             = sentinel(KindEncode)
	ErrIO                 = sentinel(KindIO)
	ErrInvalidInput       = sentinel(KindInvalidInput)
	ErrInvalidState       = sentinel(KindInvalidState)
	ErrValidation         = sentinel(KindValidation)
)

func sentinel(kind Kind) *Error {
	return &Error{Kind: kind, Position: -1}
}

// Error is the structured error returned by the instrumentation pipeline
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Symbol   string
	Detail   string
	Position int // instruction position, -1 when not applicable
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Symbol != "" {
		b.WriteString(" in ")
		b.WriteString(strconv.Quote(e.Symbol))
	}
	if e.Position >= 0 {
		b.WriteString(" at position ")
		b.WriteString(strconv.Itoa(e.Position))
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

// Is reports whether target matches this error. A target matches on Kind,
// and also on Phase when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return t.Kind != "" || t.Phase != ""
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:    phase,
			Kind:     kind,
			Position: -1,
		},
	}
}

// Symbol sets the function symbol the error refers to
func (b *Builder) Symbol(s string) *Builder {
	b.err.Symbol = s
	return b
}

// Position sets the instruction position
func (b *Builder) Position(p int) *Builder {
	b.err.Position = p
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

// Convenience constructors for each pipeline failure

// Decode creates a module decoding error
func Decode(cause error) *Error {
	return New(PhaseDecode, KindDecode).
		Detail("malformed module").
		Cause(cause).
		Build()
}

// MissingNameSection creates an error for a module without usable function names
func MissingNameSection(cause error) *Error {
	return New(PhaseNames, KindMissingNameSection).
		Detail("module has no usable function name subsection").
		Cause(cause).
		Build()
}

// SymbolNotFound creates an error for a symbol absent from the name map
func SymbolNotFound(symbol string) *Error {
	return New(PhaseResolve, KindSymbolNotFound).
		Symbol(symbol).
		Detail("no function has this name").
		Build()
}

// NoBodyForImport creates an error for a symbol that names an imported function
func NoBodyForImport(phase Phase, symbol string, index uint32, imports int) *Error {
	return New(phase, KindNoBodyForImport).
		Symbol(symbol).
		Detail("function %d is imported (module imports %d functions)", index, imports).
		Build()
}

// IndexOutOfRange creates an error for a function index with no code body
func IndexOutOfRange(phase Phase, symbol string, index uint32, bodies int) *Error {
	return New(phase, KindIndexOutOfRange).
		Symbol(symbol).
		Detail("function %d has no body (code section has %d bodies)", index, bodies).
		Build()
}

// SpliceOutOfRange creates an error for an insertion position past the body end
func SpliceOutOfRange(symbol string, position, length int) *Error {
	return New(PhaseSplice, KindSpliceOutOfRange).
		Symbol(symbol).
		Position(position).
		Detail("body has %d instructions", length).
		Build()
}

// Encode creates a module encoding error
func Encode(cause error) *Error {
	return New(PhaseEncode, KindEncode).
		Cause(cause).
		Build()
}

// IO creates a file access error
func IO(op, path string, cause error) *Error {
	return New(PhaseIO, KindIO).
		Detail("%s %s", op, path).
		Cause(cause).
		Build()
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return New(phase, KindInvalidInput).
		Detail("%s", detail).
		Build()
}

// InvalidState creates an error for an operation not allowed in the current lifecycle state
func InvalidState(phase Phase, op, state string) *Error {
	return New(phase, KindInvalidState).
		Detail("cannot %s a module in state %s", op, state).
		Build()
}

// Validation creates a validation failure error
func Validation(cause error) *Error {
	return New(PhaseValidate, KindValidation).
		Detail("module failed to compile").
		Cause(cause).
		Build()
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return New(phase, kind).
		Detail("%s", detail).
		Cause(cause).
		Build()
}
