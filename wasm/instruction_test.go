package wasm_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/wippyai/wasm-instrument/wasm"
)

func TestDecodeInstructionsKeepsRaw(t *testing.T) {
	instrs, err := wasm.DecodeInstructions(mainCode)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if len(instrs) != 8 {
		t.Fatalf("expected 8 instructions, got %d", len(instrs))
	}

	var joined []byte
	for _, in := range instrs {
		joined = append(joined, in.Raw...)
	}
	if !bytes.Equal(joined, mainCode) {
		t.Errorf("raw bytes: got %x, want %x", joined, mainCode)
	}

	var callees []uint32
	for _, in := range instrs {
		if idx, ok := in.GetCallTarget(); ok {
			callees = append(callees, idx)
		}
	}
	if !reflect.DeepEqual(callees, []uint32{0, 2, 1}) {
		t.Errorf("callees: got %v", callees)
	}
	if instrs[7].Opcode != wasm.OpEnd {
		t.Errorf("last instruction: got %s", instrs[7])
	}
}

func TestInstructionRoundTrip(t *testing.T) {
	tests := []wasm.Instruction{
		{Opcode: wasm.OpUnreachable},
		{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: -64}},
		{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: -1}},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: 5}},
		{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 1}},
		{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 1, 2}, Default: 3}},
		{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 300}},
		{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 1, TableIdx: 0}},
		{Opcode: wasm.OpReturnCall, Imm: wasm.CallImm{FuncIdx: 10}},
		{Opcode: wasm.OpCallRef, Imm: wasm.CallRefImm{TypeIdx: 4}},
		{Opcode: wasm.OpThrow, Imm: wasm.TagImm{TagIdx: 2}},
		{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: 7}},
		{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: 1}},
		{Opcode: wasm.OpTableGet, Imm: wasm.TableImm{TableIdx: 2}},
		{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2, Offset: 16}},
		{Opcode: wasm.OpI64Store32, Imm: wasm.MemoryImm{Align: 2, Offset: 1 << 40, MemIdx: 1}},
		{Opcode: wasm.OpMemoryGrow, Imm: wasm.MemoryIdxImm{}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: -123456}},
		{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: -1 << 40}},
		{Opcode: wasm.OpF32Const, Imm: wasm.F32Imm{Value: 3.5}},
		{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Value: -0.25}},
		{Opcode: wasm.OpRefNull, Imm: wasm.RefNullImm{HeapType: -16}},
		{Opcode: wasm.OpRefFunc, Imm: wasm.RefFuncImm{FuncIdx: 9}},
		{Opcode: wasm.OpSelectType, Imm: wasm.SelectTypeImm{Types: []wasm.ValType{wasm.ValI64}}},
		{Opcode: wasm.OpTryTable, Imm: wasm.TryTableImm{
			BlockType: -64,
			Catches: []wasm.CatchClause{
				{Kind: wasm.CatchKindCatch, TagIdx: 1, LabelIdx: 0},
				{Kind: wasm.CatchKindCatchAll, LabelIdx: 1},
			},
		}},
		{Opcode: wasm.OpEnd},
	}

	for _, tt := range tests {
		encoded, err := wasm.EncodeInstructions([]wasm.Instruction{tt})
		if err != nil {
			t.Fatalf("%s: encode: %v", tt, err)
		}
		decoded, err := wasm.DecodeInstructions(encoded)
		if err != nil {
			t.Fatalf("%s: decode: %v", tt, err)
		}
		if len(decoded) != 1 {
			t.Fatalf("%s: expected 1 instruction, got %d", tt, len(decoded))
		}
		if decoded[0].Opcode != tt.Opcode || !reflect.DeepEqual(decoded[0].Imm, tt.Imm) {
			t.Errorf("round trip: got %#v, want %#v", decoded[0].Imm, tt.Imm)
		}
		if !bytes.Equal(decoded[0].Raw, encoded) {
			t.Errorf("%s: raw %x, encoded %x", tt, decoded[0].Raw, encoded)
		}
	}
}

func TestDecodePrefixedInstructions(t *testing.T) {
	code := []byte{
		0xfc, 0x0a, 0x00, 0x00, // memory.copy
		0xfc, 0x00, // i32.trunc_sat_f32_s
		0xfd, 0x0c, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, // v128.const
		0xfd, 0x15, 0x03, // i8x16.extract_lane_s 3
		0xfd, 0x54, 0x00, 0x00, 0x01, // v128.load8_lane
		0xfe, 0x03, 0x00, // atomic.fence
		0xfe, 0x10, 0x02, 0x08, // i32.atomic.load offset=8
		0xfb, 0x01, 0x05, // struct.new_default 5
		0xfb, 0x18, 0x00, 0x01, 0x70, 0x70, // br_on_cast
		0x0b,
	}

	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	wantSub := []uint32{0x0a, 0x00, 0x0c, 0x15, 0x54, 0x03, 0x10, 0x01, 0x18}
	if len(instrs) != len(wantSub)+1 {
		t.Fatalf("expected %d instructions, got %d", len(wantSub)+1, len(instrs))
	}
	for i, sub := range wantSub {
		imm, ok := instrs[i].Imm.(wasm.PrefixImm)
		if !ok || imm.SubOpcode != sub {
			t.Errorf("instruction %d: got %#v, want sub-opcode 0x%02x", i, instrs[i].Imm, sub)
		}
	}

	out, err := wasm.EncodeInstructions(instrs)
	if err != nil {
		t.Fatalf("EncodeInstructions: %v", err)
	}
	if !bytes.Equal(out, code) {
		t.Errorf("round trip mismatch\n got %x\nwant %x", out, code)
	}
}

func TestDecodeNonCanonicalImmediate(t *testing.T) {
	code := []byte{0x10, 0x85, 0x80, 0x00, 0x0b} // call 5 with padded index
	instrs, err := wasm.DecodeInstructions(code)
	if err != nil {
		t.Fatalf("DecodeInstructions: %v", err)
	}
	if idx, ok := instrs[0].GetCallTarget(); !ok || idx != 5 {
		t.Errorf("call target: got %d, %v", idx, ok)
	}
	out, err := wasm.EncodeInstructions(instrs)
	if err != nil {
		t.Fatalf("EncodeInstructions: %v", err)
	}
	if !bytes.Equal(out, code) {
		t.Errorf("got %x, want %x", out, code)
	}
}

func TestDecodeInstructionErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"unknown opcode", []byte{0x27}},
		{"unknown opcode in gap", []byte{0x16}},
		{"truncated call", []byte{0x10}},
		{"truncated i32.const", []byte{0x41, 0x80}},
		{"truncated f64.const", []byte{0x44, 0x00, 0x00}},
		{"truncated br_table", []byte{0x0e, 0x02, 0x00}},
		{"unknown misc sub-opcode", []byte{0xfc, 0x30}},
		{"unknown gc sub-opcode", []byte{0xfb, 0x40}},
		{"truncated v128.const", []byte{0xfd, 0x0c, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := wasm.DecodeInstructions(tt.code); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncodeInstructionErrors(t *testing.T) {
	_, err := wasm.EncodeInstructions([]wasm.Instruction{{Opcode: wasm.OpCall, Imm: wasm.LocalImm{}}})
	if err == nil {
		t.Error("expected error for mismatched immediate")
	}

	_, err = wasm.EncodeInstructions([]wasm.Instruction{{Opcode: wasm.OpCall}})
	if err == nil {
		t.Error("expected error for missing immediate")
	}

	_, err = wasm.EncodeInstructions([]wasm.Instruction{{Opcode: wasm.OpPrefixMisc, Imm: wasm.PrefixImm{}}})
	if !errors.Is(err, wasm.ErrNoRawEncoding) {
		t.Errorf("expected ErrNoRawEncoding, got %v", err)
	}

	_, err = wasm.EncodeInstructions([]wasm.Instruction{{Opcode: 0x27}})
	if err == nil {
		t.Error("expected error for unknown opcode")
	}
}

func TestIsIndirectCall(t *testing.T) {
	if !(wasm.Instruction{Opcode: wasm.OpCallIndirect}).IsIndirectCall() {
		t.Error("call_indirect should be indirect")
	}
	in := wasm.Instruction{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 3}}
	if _, ok := in.GetCallTarget(); ok {
		t.Error("call_indirect has no direct target")
	}
}
