package wasm

// immKind identifies the immediate layout that follows an opcode.
type immKind uint8

const (
	immNone immKind = iota
	immBlock
	immLabel
	immBrTable
	immFunc
	immCallIndirect
	immType
	immLocal
	immGlobal
	immTable
	immTag
	immMem
	immMemIdx
	immI32
	immI64
	immF32
	immF64
	immHeapType
	immRefFunc
	immSelectT
	immTryTable
	immPrefix
)

type opInfo struct {
	name string
	imm  immKind
	// structured opcodes open or close a block and cannot be inserted alone.
	structured bool
	valid      bool
}

var (
	opcodeTable  [256]opInfo
	opcodeByName = map[string]byte{}
)

func def(op byte, name string, imm immKind) {
	opcodeTable[op] = opInfo{name: name, imm: imm, valid: true}
	if _, ok := opcodeByName[name]; !ok {
		opcodeByName[name] = op
	}
}

func defStructured(op byte, name string, imm immKind) {
	def(op, name, imm)
	opcodeTable[op].structured = true
}

// defRun registers consecutive opcodes starting at first.
func defRun(first byte, imm immKind, names ...string) {
	for i, name := range names {
		def(first+byte(i), name, imm)
	}
}

func init() {
	def(OpUnreachable, "unreachable", immNone)
	def(OpNop, "nop", immNone)
	defStructured(OpBlock, "block", immBlock)
	defStructured(OpLoop, "loop", immBlock)
	defStructured(OpIf, "if", immBlock)
	defStructured(OpElse, "else", immNone)
	defStructured(OpTry, "try", immBlock)
	defStructured(OpCatch, "catch", immTag)
	def(OpThrow, "throw", immTag)
	def(OpRethrow, "rethrow", immLabel)
	def(OpThrowRef, "throw_ref", immNone)
	defStructured(OpEnd, "end", immNone)
	def(OpBr, "br", immLabel)
	def(OpBrIf, "br_if", immLabel)
	def(OpBrTable, "br_table", immBrTable)
	def(OpReturn, "return", immNone)

	def(OpCall, "call", immFunc)
	def(OpCallIndirect, "call_indirect", immCallIndirect)
	def(OpReturnCall, "return_call", immFunc)
	def(OpReturnCallIndirect, "return_call_indirect", immCallIndirect)
	def(OpCallRef, "call_ref", immType)
	def(OpReturnCallRef, "return_call_ref", immType)
	defStructured(OpDelegate, "delegate", immLabel)
	defStructured(OpCatchAll, "catch_all", immNone)
	def(OpDrop, "drop", immNone)
	def(OpSelect, "select", immNone)
	def(OpSelectType, "select", immSelectT)
	defStructured(OpTryTable, "try_table", immTryTable)

	defRun(OpLocalGet, immLocal, "local.get", "local.set", "local.tee")
	defRun(OpGlobalGet, immGlobal, "global.get", "global.set")
	defRun(OpTableGet, immTable, "table.get", "table.set")

	defRun(OpI32Load, immMem,
		"i32.load", "i64.load", "f32.load", "f64.load",
		"i32.load8_s", "i32.load8_u", "i32.load16_s", "i32.load16_u",
		"i64.load8_s", "i64.load8_u", "i64.load16_s", "i64.load16_u",
		"i64.load32_s", "i64.load32_u",
		"i32.store", "i64.store", "f32.store", "f64.store",
		"i32.store8", "i32.store16", "i64.store8", "i64.store16", "i64.store32")
	defRun(OpMemorySize, immMemIdx, "memory.size", "memory.grow")

	def(OpI32Const, "i32.const", immI32)
	def(OpI64Const, "i64.const", immI64)
	def(OpF32Const, "f32.const", immF32)
	def(OpF64Const, "f64.const", immF64)

	defRun(0x45, immNone,
		"i32.eqz", "i32.eq", "i32.ne", "i32.lt_s", "i32.lt_u", "i32.gt_s",
		"i32.gt_u", "i32.le_s", "i32.le_u", "i32.ge_s", "i32.ge_u",
		"i64.eqz", "i64.eq", "i64.ne", "i64.lt_s", "i64.lt_u", "i64.gt_s",
		"i64.gt_u", "i64.le_s", "i64.le_u", "i64.ge_s", "i64.ge_u",
		"f32.eq", "f32.ne", "f32.lt", "f32.gt", "f32.le", "f32.ge",
		"f64.eq", "f64.ne", "f64.lt", "f64.gt", "f64.le", "f64.ge",
		"i32.clz", "i32.ctz", "i32.popcnt", "i32.add", "i32.sub", "i32.mul",
		"i32.div_s", "i32.div_u", "i32.rem_s", "i32.rem_u", "i32.and", "i32.or",
		"i32.xor", "i32.shl", "i32.shr_s", "i32.shr_u", "i32.rotl", "i32.rotr",
		"i64.clz", "i64.ctz", "i64.popcnt", "i64.add", "i64.sub", "i64.mul",
		"i64.div_s", "i64.div_u", "i64.rem_s", "i64.rem_u", "i64.and", "i64.or",
		"i64.xor", "i64.shl", "i64.shr_s", "i64.shr_u", "i64.rotl", "i64.rotr",
		"f32.abs", "f32.neg", "f32.ceil", "f32.floor", "f32.trunc", "f32.nearest",
		"f32.sqrt", "f32.add", "f32.sub", "f32.mul", "f32.div", "f32.min",
		"f32.max", "f32.copysign",
		"f64.abs", "f64.neg", "f64.ceil", "f64.floor", "f64.trunc", "f64.nearest",
		"f64.sqrt", "f64.add", "f64.sub", "f64.mul", "f64.div", "f64.min",
		"f64.max", "f64.copysign",
		"i32.wrap_i64", "i32.trunc_f32_s", "i32.trunc_f32_u", "i32.trunc_f64_s",
		"i32.trunc_f64_u", "i64.extend_i32_s", "i64.extend_i32_u",
		"i64.trunc_f32_s", "i64.trunc_f32_u", "i64.trunc_f64_s", "i64.trunc_f64_u",
		"f32.convert_i32_s", "f32.convert_i32_u", "f32.convert_i64_s",
		"f32.convert_i64_u", "f32.demote_f64",
		"f64.convert_i32_s", "f64.convert_i32_u", "f64.convert_i64_s",
		"f64.convert_i64_u", "f64.promote_f32",
		"i32.reinterpret_f32", "i64.reinterpret_f64",
		"f32.reinterpret_i32", "f64.reinterpret_i64",
		"i32.extend8_s", "i32.extend16_s",
		"i64.extend8_s", "i64.extend16_s", "i64.extend32_s")

	def(OpRefNull, "ref.null", immHeapType)
	def(OpRefIsNull, "ref.is_null", immNone)
	def(OpRefFunc, "ref.func", immRefFunc)
	def(0xD3, "ref.as_non_null", immNone)
	def(0xD4, "ref.eq", immNone)
	def(OpBrOnNull, "br_on_null", immLabel)
	def(OpBrOnNonNull, "br_on_non_null", immLabel)

	def(OpPrefixGC, "gc", immPrefix)
	def(OpPrefixMisc, "misc", immPrefix)
	def(OpPrefixSIMD, "simd", immPrefix)
	def(OpPrefixAtomic, "atomic", immPrefix)
}

// naturalAlign returns log2 of the access width of a memory opcode.
func naturalAlign(op byte) uint32 {
	switch op {
	case 0x2C, 0x2D, 0x30, 0x31, 0x3A, 0x3C: // 8-bit
		return 0
	case 0x2E, 0x2F, 0x32, 0x33, 0x3B, 0x3D: // 16-bit
		return 1
	case 0x28, 0x2A, 0x34, 0x35, 0x36, 0x38, 0x3E: // 32-bit
		return 2
	default: // 64-bit
		return 3
	}
}

// miscNames names the 0xFC sub-opcodes.
var miscNames = []string{
	"i32.trunc_sat_f32_s", "i32.trunc_sat_f32_u",
	"i32.trunc_sat_f64_s", "i32.trunc_sat_f64_u",
	"i64.trunc_sat_f32_s", "i64.trunc_sat_f32_u",
	"i64.trunc_sat_f64_s", "i64.trunc_sat_f64_u",
	"memory.init", "data.drop", "memory.copy", "memory.fill",
	"table.init", "elem.drop", "table.copy",
	"table.grow", "table.size", "table.fill",
	"memory.discard",
}

// OpcodeName returns the mnemonic for a single-byte opcode.
func OpcodeName(op byte) string {
	if info := opcodeTable[op]; info.valid {
		return info.name
	}
	return "unknown"
}

// IsStructured reports whether op opens, separates or closes a block.
func IsStructured(op byte) bool {
	return opcodeTable[op].structured
}
