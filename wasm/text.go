package wasm

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders the instruction in a compact mnemonic form such as
// "call 13" or "i32.load offset=8 align=2".
func (i Instruction) String() string {
	name := OpcodeName(i.Opcode)
	switch imm := i.Imm.(type) {
	case nil:
		return name
	case BlockImm:
		if t := blockTypeString(imm.Type); t != "" {
			return name + " " + t
		}
		return name
	case BranchImm:
		return fmt.Sprintf("%s %d", name, imm.LabelIdx)
	case BrTableImm:
		var sb strings.Builder
		sb.WriteString(name)
		for _, l := range imm.Labels {
			fmt.Fprintf(&sb, " %d", l)
		}
		fmt.Fprintf(&sb, " %d", imm.Default)
		return sb.String()
	case CallImm:
		return fmt.Sprintf("%s %d", name, imm.FuncIdx)
	case CallIndirectImm:
		return fmt.Sprintf("%s %d (type %d)", name, imm.TableIdx, imm.TypeIdx)
	case CallRefImm:
		return fmt.Sprintf("%s %d", name, imm.TypeIdx)
	case LocalImm:
		return fmt.Sprintf("%s %d", name, imm.LocalIdx)
	case GlobalImm:
		return fmt.Sprintf("%s %d", name, imm.GlobalIdx)
	case TableImm:
		return fmt.Sprintf("%s %d", name, imm.TableIdx)
	case TagImm:
		return fmt.Sprintf("%s %d", name, imm.TagIdx)
	case MemoryImm:
		var sb strings.Builder
		sb.WriteString(name)
		if imm.MemIdx != 0 {
			fmt.Fprintf(&sb, " %d", imm.MemIdx)
		}
		if imm.Offset != 0 {
			fmt.Fprintf(&sb, " offset=%d", imm.Offset)
		}
		if imm.Align != naturalAlign(i.Opcode) {
			fmt.Fprintf(&sb, " align=%d", uint64(1)<<imm.Align)
		}
		return sb.String()
	case MemoryIdxImm:
		if imm.MemIdx == 0 {
			return name
		}
		return fmt.Sprintf("%s %d", name, imm.MemIdx)
	case I32Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	case I64Imm:
		return fmt.Sprintf("%s %d", name, imm.Value)
	case F32Imm:
		return name + " " + strconv.FormatFloat(float64(imm.Value), 'g', -1, 32)
	case F64Imm:
		return name + " " + strconv.FormatFloat(imm.Value, 'g', -1, 64)
	case RefNullImm:
		return name + " " + heapTypeString(imm.HeapType)
	case RefFuncImm:
		return fmt.Sprintf("%s %d", name, imm.FuncIdx)
	case SelectTypeImm:
		var sb strings.Builder
		sb.WriteString(name)
		for _, t := range imm.Types {
			sb.WriteString(" " + t.String())
		}
		return sb.String()
	case TryTableImm:
		if t := blockTypeString(imm.BlockType); t != "" {
			return fmt.Sprintf("%s %s (%d catches)", name, t, len(imm.Catches))
		}
		return fmt.Sprintf("%s (%d catches)", name, len(imm.Catches))
	case PrefixImm:
		if i.Opcode == OpPrefixMisc && int(imm.SubOpcode) < len(miscNames) {
			return miscNames[imm.SubOpcode]
		}
		return fmt.Sprintf("%s.0x%02x", name, imm.SubOpcode)
	}
	return name
}

func blockTypeString(t int64) string {
	switch t {
	case int64(BlockTypeVoid):
		return ""
	case int64(BlockTypeI32), int64(BlockTypeI64), int64(BlockTypeF32),
		int64(BlockTypeF64), int64(BlockTypeV128):
		return ValType(byte(t & 0x7f)).String()
	}
	if t >= 0 {
		return fmt.Sprintf("(type %d)", t)
	}
	return fmt.Sprintf("(blocktype %d)", t)
}

func heapTypeString(ht int64) string {
	switch ht {
	case -16:
		return "func"
	case -17:
		return "extern"
	}
	return strconv.FormatInt(ht, 10)
}

// ParseInstruction builds an instruction from a mnemonic (or a hex opcode
// such as "0x10") and its operands.
//
// Structured control instructions are rejected because a lone block
// delimiter would unbalance the body. Instructions whose immediates cannot
// be written as plain integers (br_table, typed select, prefixed opcodes)
// are rejected as well.
func ParseInstruction(opcode string, operands ...string) (Instruction, error) {
	op, err := lookupOpcode(strings.TrimSpace(opcode))
	if err != nil {
		return Instruction{}, err
	}
	info := opcodeTable[op]
	if info.structured {
		return Instruction{}, fmt.Errorf("%s opens or closes a block and cannot be inserted alone", info.name)
	}

	args := make([]string, len(operands))
	for i, o := range operands {
		args[i] = strings.TrimSpace(o)
	}

	imm, err := parseImmediate(op, info, args)
	if err != nil {
		return Instruction{}, fmt.Errorf("%s: %w", info.name, err)
	}
	return Instruction{Opcode: op, Imm: imm}, nil
}

func lookupOpcode(s string) (byte, error) {
	if s == "" {
		return 0, fmt.Errorf("empty opcode")
	}
	if s[0] >= '0' && s[0] <= '9' {
		v, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid opcode %q", s)
		}
		if !opcodeTable[v].valid {
			return 0, fmt.Errorf("unknown opcode 0x%02x", v)
		}
		return byte(v), nil
	}
	op, ok := opcodeByName[s]
	if !ok {
		return 0, fmt.Errorf("unknown instruction %q", s)
	}
	return op, nil
}

func parseImmediate(op byte, info opInfo, args []string) (interface{}, error) {
	want := func(lo, hi int) error {
		if len(args) < lo || len(args) > hi {
			if lo == hi {
				return fmt.Errorf("expects %d operand(s), got %d", lo, len(args))
			}
			return fmt.Errorf("expects %d to %d operands, got %d", lo, hi, len(args))
		}
		return nil
	}
	u32 := func(i int) (uint32, error) {
		v, err := strconv.ParseUint(args[i], 0, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid index %q", args[i])
		}
		return uint32(v), nil
	}

	switch info.imm {
	case immNone:
		return nil, want(0, 0)
	case immLabel, immFunc, immType, immLocal, immGlobal, immTable, immTag, immRefFunc:
		if err := want(1, 1); err != nil {
			return nil, err
		}
		v, err := u32(0)
		if err != nil {
			return nil, err
		}
		switch info.imm {
		case immLabel:
			return BranchImm{LabelIdx: v}, nil
		case immFunc:
			return CallImm{FuncIdx: v}, nil
		case immType:
			return CallRefImm{TypeIdx: v}, nil
		case immLocal:
			return LocalImm{LocalIdx: v}, nil
		case immGlobal:
			return GlobalImm{GlobalIdx: v}, nil
		case immTable:
			return TableImm{TableIdx: v}, nil
		case immTag:
			return TagImm{TagIdx: v}, nil
		default:
			return RefFuncImm{FuncIdx: v}, nil
		}
	case immCallIndirect:
		if err := want(1, 2); err != nil {
			return nil, err
		}
		typeIdx, err := u32(0)
		if err != nil {
			return nil, err
		}
		var tableIdx uint32
		if len(args) == 2 {
			if tableIdx, err = u32(1); err != nil {
				return nil, err
			}
		}
		return CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}, nil
	case immMem:
		if err := want(0, 1); err != nil {
			return nil, err
		}
		imm := MemoryImm{Align: naturalAlign(op)}
		if len(args) == 1 {
			v, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid offset %q", args[0])
			}
			imm.Offset = v
		}
		return imm, nil
	case immMemIdx:
		if err := want(0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return MemoryIdxImm{}, nil
		}
		v, err := u32(0)
		return MemoryIdxImm{MemIdx: v}, err
	case immI32:
		if err := want(1, 1); err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(args[0], 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid i32 %q", args[0])
		}
		return I32Imm{Value: int32(v)}, nil
	case immI64:
		if err := want(1, 1); err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(args[0], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid i64 %q", args[0])
		}
		return I64Imm{Value: v}, nil
	case immF32:
		if err := want(1, 1); err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return nil, fmt.Errorf("invalid f32 %q", args[0])
		}
		return F32Imm{Value: float32(v)}, nil
	case immF64:
		if err := want(1, 1); err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid f64 %q", args[0])
		}
		return F64Imm{Value: v}, nil
	case immHeapType:
		if err := want(1, 1); err != nil {
			return nil, err
		}
		switch args[0] {
		case "func", "funcref":
			return RefNullImm{HeapType: -16}, nil
		case "extern", "externref":
			return RefNullImm{HeapType: -17}, nil
		}
		v, err := strconv.ParseInt(args[0], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid heap type %q", args[0])
		}
		return RefNullImm{HeapType: v}, nil
	}
	return nil, fmt.Errorf("operands cannot be given in this form")
}
