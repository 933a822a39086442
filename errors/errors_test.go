package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
		excludes []string
	}{
		{
			name:     "splice out of range",
			err:      SpliceOutOfRange("main", 20, 18),
			contains: []string{"[splice]", "splice_out_of_range", `"main"`, "position 20", "18 instructions"},
		},
		{
			name:     "minimal error",
			err:      New(PhaseDecode, KindDecode).Build(),
			contains: []string{"[decode]", "decode_error"},
			excludes: []string{"position", " in "},
		},
		{
			name:     "error with cause",
			err:      IO("write", "/tmp/out.wasm", errors.New("disk full")),
			contains: []string{"[io]", "io_error", "write /tmp/out.wasm", "caused by", "disk full"},
		},
		{
			name:     "position zero is printed",
			err:      New(PhaseSplice, KindSpliceOutOfRange).Position(0).Build(),
			contains: []string{"at position 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(msg, s) {
					t.Errorf("error message %q should not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Decode(cause)

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}
}

func TestError_Is(t *testing.T) {
	err := NoBodyForImport(PhaseReport, "_log", 0, 2)

	if !err.Is(ErrNoBodyForImport) {
		t.Error("Is should match sentinel of same kind")
	}
	if err.Is(ErrIndexOutOfRange) {
		t.Error("Is should not match different kind")
	}
	if !err.Is(&Error{Phase: PhaseReport, Kind: KindNoBodyForImport}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseSplice, Kind: KindNoBodyForImport}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{}) {
		t.Error("empty target should not match")
	}
	if err.Is(errors.New("other")) {
		t.Error("Is should not match foreign errors")
	}

	wrapped := fmt.Errorf("running pipeline: %w", err)
	if !errors.Is(wrapped, ErrNoBodyForImport) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("ctx: %w", SymbolNotFound("x"))); got != KindSymbolNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindSymbolNotFound)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseSplice, KindSpliceOutOfRange).
		Symbol("main").
		Position(7).
		Cause(cause).
		Detail("expected at most %d, got %d", 5, 7).
		Build()

	if err.Phase != PhaseSplice {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseSplice)
	}
	if err.Kind != KindSpliceOutOfRange {
		t.Errorf("Kind = %v, want %v", err.Kind, KindSpliceOutOfRange)
	}
	if err.Symbol != "main" {
		t.Errorf("Symbol = %q, want main", err.Symbol)
	}
	if err.Position != 7 {
		t.Errorf("Position = %d, want 7", err.Position)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected at most 5, got 7" {
		t.Errorf("Detail = %q", err.Detail)
	}

	if p := New(PhaseDecode, KindDecode).Build().Position; p != -1 {
		t.Errorf("default Position = %d, want -1", p)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err   *Error
		phase Phase
		kind  Kind
	}{
		{Decode(cause), PhaseDecode, KindDecode},
		{MissingNameSection(cause), PhaseNames, KindMissingNameSection},
		{SymbolNotFound("f"), PhaseResolve, KindSymbolNotFound},
		{NoBodyForImport(PhaseSplice, "f", 1, 2), PhaseSplice, KindNoBodyForImport},
		{IndexOutOfRange(PhaseReport, "f", 9, 2), PhaseReport, KindIndexOutOfRange},
		{SpliceOutOfRange("f", 3, 2), PhaseSplice, KindSpliceOutOfRange},
		{Encode(cause), PhaseEncode, KindEncode},
		{IO("read", "x.wasm", cause), PhaseIO, KindIO},
		{InvalidInput(PhaseUsage, "bad flag"), PhaseUsage, KindInvalidInput},
		{InvalidState(PhaseSplice, "splice", "emitted"), PhaseSplice, KindInvalidState},
		{Validation(cause), PhaseValidate, KindValidation},
		{Wrap(PhaseIO, KindIO, cause, "close"), PhaseIO, KindIO},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if tt.err.Phase != tt.phase || tt.err.Kind != tt.kind {
				t.Errorf("got [%s] %s, want [%s] %s", tt.err.Phase, tt.err.Kind, tt.phase, tt.kind)
			}
			if !strings.HasPrefix(tt.err.Error(), "["+string(tt.phase)+"] ") {
				t.Errorf("message %q does not name its phase", tt.err.Error())
			}
		})
	}
}
