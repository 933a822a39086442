package wasm

import (
	"errors"
	"fmt"

	"github.com/wippyai/wasm-instrument/wasm/internal/binary"
)

// ErrNoRawEncoding is returned when encoding a prefixed instruction that was
// not produced by DecodeInstructions.
var ErrNoRawEncoding = errors.New("prefixed instruction has no raw encoding")

// Instruction represents a decoded WebAssembly instruction.
//
// Raw holds the instruction's original bytes when it was decoded; encoding
// prefers Raw so untouched instructions round-trip exactly. Constructed
// instructions leave Raw nil and are encoded from Opcode and Imm.
type Instruction struct {
	Imm    interface{}
	Raw    []byte
	Opcode byte
}

// BlockImm holds the block type for block, loop, if, and try instructions.
type BlockImm struct {
	Type int64 // negative for value types and void, otherwise a type index
}

// BranchImm holds a label index.
type BranchImm struct {
	LabelIdx uint32
}

// BrTableImm holds the label table for br_table instruction.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call and return_call.
type CallImm struct {
	FuncIdx uint32
}

// CallIndirectImm holds type and table indices for call_indirect instruction.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// CallRefImm holds type index for call_ref and return_call_ref
type CallRefImm struct {
	TypeIdx uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// TableImm holds table index for table.get/table.set
type TableImm struct {
	TableIdx uint32
}

// TagImm holds the tag index for throw and catch.
type TagImm struct {
	TagIdx uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
type MemoryImm struct {
	Offset uint64
	Align  uint32
	MemIdx uint32
}

// MemoryIdxImm holds memory index for memory.size, memory.grow
type MemoryIdxImm struct {
	MemIdx uint32
}

// I32Imm holds the constant value for i32.const instruction.
type I32Imm struct {
	Value int32
}

// I64Imm holds the constant value for i64.const instruction.
type I64Imm struct {
	Value int64
}

// F32Imm holds the constant value for f32.const instruction.
type F32Imm struct {
	Value float32
}

// F64Imm holds the constant value for f64.const instruction.
type F64Imm struct {
	Value float64
}

// RefNullImm holds the heap type for ref.null
type RefNullImm struct {
	HeapType int64
}

// RefFuncImm holds the function index for ref.func
type RefFuncImm struct {
	FuncIdx uint32
}

// SelectTypeImm holds value types for typed select
type SelectTypeImm struct {
	Types []ValType
}

// CatchClause represents a single catch clause in try_table
type CatchClause struct {
	Kind     byte
	TagIdx   uint32 // only for catch and catch_ref
	LabelIdx uint32
}

// TryTableImm holds immediates for try_table instruction
type TryTableImm struct {
	Catches   []CatchClause
	BlockType int64
}

// PrefixImm identifies an instruction in one of the prefixed opcode spaces
// (GC, misc, SIMD, atomics). Its operands are only kept in Raw.
type PrefixImm struct {
	SubOpcode uint32
}

// GetCallTarget returns the callee if this is a direct call instruction.
func (i Instruction) GetCallTarget() (uint32, bool) {
	if i.Opcode == OpCall {
		if imm, ok := i.Imm.(CallImm); ok {
			return imm.FuncIdx, true
		}
	}
	return 0, false
}

// IsIndirectCall returns true if this is a call_indirect instruction
func (i Instruction) IsIndirectCall() bool {
	return i.Opcode == OpCallIndirect
}

// DecodeInstructions decodes a sequence of instructions from raw bytes.
// Each returned instruction's Raw aliases code.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	r := binary.NewReader(code)
	instrs := make([]Instruction, 0, len(code)/2)

	for r.Len() > 0 {
		start := r.Position()
		op, _ := r.ReadByte()
		info := opcodeTable[op]
		if !info.valid {
			return nil, fmt.Errorf("unknown opcode 0x%02x at offset %d", op, start)
		}
		imm, err := readImmediate(r, op, info.imm)
		if err != nil {
			return nil, fmt.Errorf("%s at offset %d: %w", info.name, start, err)
		}
		instrs = append(instrs, Instruction{Opcode: op, Imm: imm, Raw: r.Span(start)})
	}

	return instrs, nil
}

func readImmediate(r *binary.Reader, op byte, kind immKind) (interface{}, error) {
	switch kind {
	case immNone:
		return nil, nil
	case immBlock:
		bt, err := r.ReadS33()
		return BlockImm{Type: bt}, err
	case immLabel:
		idx, err := r.ReadU32()
		return BranchImm{LabelIdx: idx}, err
	case immBrTable:
		count, err := readCount(r)
		if err != nil {
			return nil, err
		}
		labels := make([]uint32, count)
		for i := range labels {
			if labels[i], err = r.ReadU32(); err != nil {
				return nil, err
			}
		}
		dflt, err := r.ReadU32()
		return BrTableImm{Labels: labels, Default: dflt}, err
	case immFunc:
		idx, err := r.ReadU32()
		return CallImm{FuncIdx: idx}, err
	case immCallIndirect:
		typeIdx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		tableIdx, err := r.ReadU32()
		return CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}, err
	case immType:
		idx, err := r.ReadU32()
		return CallRefImm{TypeIdx: idx}, err
	case immLocal:
		idx, err := r.ReadU32()
		return LocalImm{LocalIdx: idx}, err
	case immGlobal:
		idx, err := r.ReadU32()
		return GlobalImm{GlobalIdx: idx}, err
	case immTable:
		idx, err := r.ReadU32()
		return TableImm{TableIdx: idx}, err
	case immTag:
		idx, err := r.ReadU32()
		return TagImm{TagIdx: idx}, err
	case immMem:
		return readMemArg(r)
	case immMemIdx:
		idx, err := r.ReadU32()
		return MemoryIdxImm{MemIdx: idx}, err
	case immI32:
		v, err := r.ReadS32()
		return I32Imm{Value: v}, err
	case immI64:
		v, err := r.ReadS64()
		return I64Imm{Value: v}, err
	case immF32:
		v, err := r.ReadF32()
		return F32Imm{Value: v}, err
	case immF64:
		v, err := r.ReadF64()
		return F64Imm{Value: v}, err
	case immHeapType:
		ht, err := r.ReadS33()
		return RefNullImm{HeapType: ht}, err
	case immRefFunc:
		idx, err := r.ReadU32()
		return RefFuncImm{FuncIdx: idx}, err
	case immSelectT:
		types, err := readValTypes(r)
		return SelectTypeImm{Types: types}, err
	case immTryTable:
		return readTryTable(r)
	case immPrefix:
		return readPrefixed(r, op)
	}
	return nil, fmt.Errorf("unhandled immediate kind %d", kind)
}

func readTryTable(r *binary.Reader) (TryTableImm, error) {
	bt, err := r.ReadS33()
	if err != nil {
		return TryTableImm{}, err
	}
	count, err := readCount(r)
	if err != nil {
		return TryTableImm{}, err
	}
	catches := make([]CatchClause, count)
	for i := range catches {
		kind, err := r.ReadByte()
		if err != nil {
			return TryTableImm{}, err
		}
		c := CatchClause{Kind: kind}
		if kind == CatchKindCatch || kind == CatchKindCatchRef {
			if c.TagIdx, err = r.ReadU32(); err != nil {
				return TryTableImm{}, err
			}
		}
		if c.LabelIdx, err = r.ReadU32(); err != nil {
			return TryTableImm{}, err
		}
		catches[i] = c
	}
	return TryTableImm{BlockType: bt, Catches: catches}, nil
}

// Multi-memory memarg bit flag
const memArgMultiMemBit = 0x40

// readMemArg reads a memarg. If bit 6 of align is set, a memory index follows.
func readMemArg(r *binary.Reader) (MemoryImm, error) {
	alignRaw, err := r.ReadU32()
	if err != nil {
		return MemoryImm{}, err
	}
	var memIdx uint32
	if alignRaw&memArgMultiMemBit != 0 {
		if memIdx, err = r.ReadU32(); err != nil {
			return MemoryImm{}, err
		}
	}
	offset, err := r.ReadU64()
	if err != nil {
		return MemoryImm{}, err
	}
	return MemoryImm{
		Align:  alignRaw &^ memArgMultiMemBit,
		Offset: offset,
		MemIdx: memIdx,
	}, nil
}

func writeMemArg(w *binary.Writer, imm MemoryImm) {
	alignRaw := imm.Align
	if imm.MemIdx != 0 {
		alignRaw |= memArgMultiMemBit
	}
	w.WriteU32(alignRaw)
	if imm.MemIdx != 0 {
		w.WriteU32(imm.MemIdx)
	}
	w.WriteU64(imm.Offset)
}

// readPrefixed consumes the sub-opcode and operands of a prefixed
// instruction. Operands are skipped; they survive through Raw.
func readPrefixed(r *binary.Reader, prefix byte) (PrefixImm, error) {
	sub, err := r.ReadU32()
	if err != nil {
		return PrefixImm{}, err
	}
	imm := PrefixImm{SubOpcode: sub}

	switch prefix {
	case OpPrefixMisc:
		err = skipMisc(r, sub)
	case OpPrefixSIMD:
		err = skipSIMD(r, sub)
	case OpPrefixAtomic:
		if sub == 0x03 { // atomic.fence
			_, err = r.ReadByte()
		} else {
			_, err = readMemArg(r)
		}
	case OpPrefixGC:
		err = skipGC(r, sub)
	}
	return imm, err
}

func skipU32s(r *binary.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := r.ReadU32(); err != nil {
			return err
		}
	}
	return nil
}

func skipMisc(r *binary.Reader, sub uint32) error {
	switch {
	case sub <= 0x07: // saturating truncation
		return nil
	case sub == 0x08, sub == 0x0A, sub == 0x0C, sub == 0x0E: // memory.init, memory.copy, table.init, table.copy
		return skipU32s(r, 2)
	case sub <= 0x12:
		return skipU32s(r, 1)
	}
	return fmt.Errorf("unknown 0xFC sub-opcode: 0x%02x", sub)
}

func skipSIMD(r *binary.Reader, sub uint32) error {
	switch {
	case sub <= 0x0B, sub == 0x5C, sub == 0x5D: // loads, store, zero-extending loads
		_, err := readMemArg(r)
		return err
	case sub == 0x0C, sub == 0x0D: // v128.const, i8x16.shuffle
		_, err := r.Next(16)
		return err
	case sub >= 0x15 && sub <= 0x22: // lane extract/replace
		_, err := r.ReadByte()
		return err
	case sub >= 0x54 && sub <= 0x5B: // lane load/store
		if _, err := readMemArg(r); err != nil {
			return err
		}
		_, err := r.ReadByte()
		return err
	}
	return nil
}

func skipGC(r *binary.Reader, sub uint32) error {
	switch sub {
	case 0x00, 0x01, 0x06, 0x07, 0x0B, 0x0C, 0x0D, 0x0E, 0x10:
		return skipU32s(r, 1)
	case 0x02, 0x03, 0x04, 0x05, 0x08, 0x09, 0x0A, 0x11, 0x12, 0x13:
		return skipU32s(r, 2)
	case 0x14, 0x15, 0x16, 0x17: // ref.test, ref.cast
		_, err := r.ReadS33()
		return err
	case 0x18, 0x19: // br_on_cast: flags, label, two heap types
		if _, err := r.ReadByte(); err != nil {
			return err
		}
		if _, err := r.ReadU32(); err != nil {
			return err
		}
		if _, err := r.ReadS33(); err != nil {
			return err
		}
		_, err := r.ReadS33()
		return err
	case 0x0F, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		return nil
	}
	return fmt.Errorf("unknown 0xFB sub-opcode: 0x%02x", sub)
}

// encodeInstructionTo appends one instruction to w.
func encodeInstructionTo(w *binary.Writer, instr *Instruction) error {
	if instr.Raw != nil {
		w.WriteBytes(instr.Raw)
		return nil
	}
	info := opcodeTable[instr.Opcode]
	if !info.valid {
		return fmt.Errorf("unknown opcode 0x%02x", instr.Opcode)
	}
	if err := writeImmediate(w, instr, info); err != nil {
		return fmt.Errorf("%s: %w", info.name, err)
	}
	return nil
}

func writeImmediate(w *binary.Writer, instr *Instruction, info opInfo) error {
	mismatch := func() error {
		return fmt.Errorf("immediate %T does not match opcode", instr.Imm)
	}
	if info.imm == immPrefix {
		return ErrNoRawEncoding
	}

	w.Byte(instr.Opcode)
	switch imm := instr.Imm.(type) {
	case nil:
		if info.imm != immNone {
			return mismatch()
		}
	case BlockImm:
		if info.imm != immBlock {
			return mismatch()
		}
		w.WriteS64(imm.Type)
	case BranchImm:
		if info.imm != immLabel {
			return mismatch()
		}
		w.WriteU32(imm.LabelIdx)
	case BrTableImm:
		if info.imm != immBrTable {
			return mismatch()
		}
		w.WriteU32(uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			w.WriteU32(l)
		}
		w.WriteU32(imm.Default)
	case CallImm:
		if info.imm != immFunc {
			return mismatch()
		}
		w.WriteU32(imm.FuncIdx)
	case CallIndirectImm:
		if info.imm != immCallIndirect {
			return mismatch()
		}
		w.WriteU32(imm.TypeIdx)
		w.WriteU32(imm.TableIdx)
	case CallRefImm:
		if info.imm != immType {
			return mismatch()
		}
		w.WriteU32(imm.TypeIdx)
	case LocalImm:
		if info.imm != immLocal {
			return mismatch()
		}
		w.WriteU32(imm.LocalIdx)
	case GlobalImm:
		if info.imm != immGlobal {
			return mismatch()
		}
		w.WriteU32(imm.GlobalIdx)
	case TableImm:
		if info.imm != immTable {
			return mismatch()
		}
		w.WriteU32(imm.TableIdx)
	case TagImm:
		if info.imm != immTag {
			return mismatch()
		}
		w.WriteU32(imm.TagIdx)
	case MemoryImm:
		if info.imm != immMem {
			return mismatch()
		}
		writeMemArg(w, imm)
	case MemoryIdxImm:
		if info.imm != immMemIdx {
			return mismatch()
		}
		w.WriteU32(imm.MemIdx)
	case I32Imm:
		if info.imm != immI32 {
			return mismatch()
		}
		w.WriteS32(imm.Value)
	case I64Imm:
		if info.imm != immI64 {
			return mismatch()
		}
		w.WriteS64(imm.Value)
	case F32Imm:
		if info.imm != immF32 {
			return mismatch()
		}
		w.WriteF32(imm.Value)
	case F64Imm:
		if info.imm != immF64 {
			return mismatch()
		}
		w.WriteF64(imm.Value)
	case RefNullImm:
		if info.imm != immHeapType {
			return mismatch()
		}
		w.WriteS64(imm.HeapType)
	case RefFuncImm:
		if info.imm != immRefFunc {
			return mismatch()
		}
		w.WriteU32(imm.FuncIdx)
	case SelectTypeImm:
		if info.imm != immSelectT {
			return mismatch()
		}
		writeValTypes(w, imm.Types)
	case TryTableImm:
		if info.imm != immTryTable {
			return mismatch()
		}
		w.WriteS64(imm.BlockType)
		w.WriteU32(uint32(len(imm.Catches)))
		for _, c := range imm.Catches {
			w.Byte(c.Kind)
			if c.Kind == CatchKindCatch || c.Kind == CatchKindCatchRef {
				w.WriteU32(c.TagIdx)
			}
			w.WriteU32(c.LabelIdx)
		}
	default:
		return mismatch()
	}
	return nil
}

// EncodeInstructions encodes instrs back to bytecode.
func EncodeInstructions(instrs []Instruction) ([]byte, error) {
	w := binary.NewWriter()
	for i := range instrs {
		if err := encodeInstructionTo(w, &instrs[i]); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return w.Bytes(), nil
}

// checkCode decodes a function body's expression and checks that its
// outermost end is the last instruction.
func checkCode(code []byte) error {
	instrs, err := DecodeInstructions(code)
	if err != nil {
		return err
	}
	return checkStructure(instrs)
}

// checkStructure tracks block nesting through instrs. The function body is
// an implicit block, so the depth starts at one and must reach zero on the
// final instruction, which must be end.
func checkStructure(instrs []Instruction) error {
	depth := 1
	for i, instr := range instrs {
		switch instr.Opcode {
		case OpBlock, OpLoop, OpIf, OpTry, OpTryTable:
			depth++
		case OpEnd, OpDelegate:
			depth--
		}
		if depth == 0 && i < len(instrs)-1 {
			return fmt.Errorf("%w: %d instruction(s) follow position %d", ErrCodeAfterEnd, len(instrs)-1-i, i)
		}
	}
	if depth != 0 || instrs[len(instrs)-1].Opcode != OpEnd {
		return ErrMissingEnd
	}
	return nil
}
