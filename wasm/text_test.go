package wasm_test

import (
	"reflect"
	"testing"

	"github.com/wippyai/wasm-instrument/wasm"
)

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		opcode   string
		operands []string
		want     wasm.Instruction
	}{
		{"call", []string{"13"}, wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 13}}},
		{"0x10", []string{"13"}, wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 13}}},
		{" call ", []string{" 0x0d "}, wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 13}}},
		{"nop", nil, wasm.Instruction{Opcode: wasm.OpNop}},
		{"drop", nil, wasm.Instruction{Opcode: wasm.OpDrop}},
		{"select", nil, wasm.Instruction{Opcode: wasm.OpSelect}},
		{"i32.const", []string{"-1"}, wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -1}}},
		{"i64.const", []string{"1099511627776"}, wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 1 << 40}}},
		{"f32.const", []string{"1.5"}, wasm.Instruction{Opcode: wasm.OpF32Const, Imm: wasm.F32Imm{Value: 1.5}}},
		{"f64.const", []string{"-2"}, wasm.Instruction{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Value: -2}}},
		{"local.get", []string{"0"}, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}}},
		{"global.set", []string{"2"}, wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: 2}}},
		{"br_if", []string{"1"}, wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}}},
		{"i32.load", []string{"8"}, wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 8, Align: 2}}},
		{"i64.load8_u", nil, wasm.Instruction{Opcode: 0x31, Imm: wasm.MemoryImm{Align: 0}}},
		{"memory.size", nil, wasm.Instruction{Opcode: wasm.OpMemorySize, Imm: wasm.MemoryIdxImm{}}},
		{"call_indirect", []string{"2"}, wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 2}}},
		{"call_indirect", []string{"2", "1"}, wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 2, TableIdx: 1}}},
		{"ref.null", []string{"func"}, wasm.Instruction{Opcode: wasm.OpRefNull, Imm: wasm.RefNullImm{HeapType: -16}}},
		{"ref.func", []string{"4"}, wasm.Instruction{Opcode: wasm.OpRefFunc, Imm: wasm.RefFuncImm{FuncIdx: 4}}},
	}

	for _, tt := range tests {
		got, err := wasm.ParseInstruction(tt.opcode, tt.operands...)
		if err != nil {
			t.Errorf("ParseInstruction(%q, %q): %v", tt.opcode, tt.operands, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseInstruction(%q, %q): got %#v, want %#v", tt.opcode, tt.operands, got, tt.want)
		}
		if _, err := wasm.EncodeInstructions([]wasm.Instruction{got}); err != nil {
			t.Errorf("ParseInstruction(%q): result does not encode: %v", tt.opcode, err)
		}
	}
}

func TestParseInstructionErrors(t *testing.T) {
	tests := []struct {
		opcode   string
		operands []string
	}{
		{"", nil},
		{"bogus", nil},
		{"0x27", nil},
		{"0x1000", nil},
		{"block", nil},
		{"loop", nil},
		{"if", nil},
		{"else", nil},
		{"end", nil},
		{"try_table", nil},
		{"call", nil},
		{"call", []string{"x"}},
		{"call", []string{"-1"}},
		{"call", []string{"1", "2"}},
		{"nop", []string{"1"}},
		{"i32.const", []string{"4294967296"}},
		{"f32.const", []string{"abc"}},
		{"br_table", []string{"0"}},
		{"0x1c", []string{"0x7f"}},
		{"misc", []string{"0"}},
	}

	for _, tt := range tests {
		if _, err := wasm.ParseInstruction(tt.opcode, tt.operands...); err == nil {
			t.Errorf("ParseInstruction(%q, %q): expected error", tt.opcode, tt.operands)
		}
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   wasm.Instruction
		want string
	}{
		{wasm.Instruction{Opcode: wasm.OpNop}, "nop"},
		{wasm.Instruction{Opcode: wasm.OpEnd}, "end"},
		{wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 13}}, "call 13"},
		{wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -1}}, "i32.const -1"},
		{wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: -64}}, "block"},
		{wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: -1}}, "block i32"},
		{wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: 3}}, "loop (type 3)"},
		{wasm.Instruction{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 1}, Default: 2}}, "br_table 0 1 2"},
		{wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 2}}, "call_indirect 0 (type 2)"},
		{wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2}}, "i32.load"},
		{wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 0, Offset: 8}}, "i32.load offset=8 align=1"},
		{wasm.Instruction{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Value: 0.5}}, "f64.const 0.5"},
		{wasm.Instruction{Opcode: wasm.OpRefNull, Imm: wasm.RefNullImm{HeapType: -17}}, "ref.null extern"},
		{wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.PrefixImm{SubOpcode: 0x0b}}, "memory.fill"},
		{wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.PrefixImm{SubOpcode: 0x0c}}, "simd.0x0c"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String(): got %q, want %q", got, tt.want)
		}
	}
}

func TestOpcodeName(t *testing.T) {
	tests := map[byte]string{
		wasm.OpCall:     "call",
		0x6a:            "i32.add",
		0xc4:            "i64.extend32_s",
		0xbf:            "f64.reinterpret_i64",
		0x27:            "unknown",
		wasm.OpTryTable: "try_table",
	}
	for op, want := range tests {
		if got := wasm.OpcodeName(op); got != want {
			t.Errorf("OpcodeName(0x%02x): got %q, want %q", op, got, want)
		}
	}

	if !wasm.IsStructured(wasm.OpEnd) || wasm.IsStructured(wasm.OpCall) {
		t.Error("IsStructured mismatch")
	}
}
