package wasm

// Module represents a decoded WebAssembly module.
//
// Only the parts of a module that instrumentation reasons about are decoded
// into fields. Everything else stays in Sections as raw bytes so that Encode
// can reproduce the input exactly.
type Module struct {
	Types   []FuncType // nil when the type section uses GC forms
	Imports []Import
	Funcs   []uint32 // Type indices for internal functions
	Exports []Export
	Start   *uint32
	Code    []FuncBody

	CustomSections []CustomSection

	// Sections holds every section in file order as read by ParseModule.
	// A module built in memory leaves it nil and is encoded from its fields.
	Sections []Section

	// codeCountRaw is the code section's vector count as encoded in the input.
	codeCountRaw []byte
}

// Section is a section as it appeared in the binary.
type Section struct {
	SizeRaw []byte // size prefix bytes, possibly non-minimal
	Payload []byte
	ID      byte
}

// FuncType represents a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// ValType represents a WebAssembly value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	case ValRefNull:
		return "ref null"
	case ValRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Import represents an imported function, table, memory, global, or tag.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// ImportDesc describes an imported item. Only function imports are decoded;
// other descriptors keep their encoded bytes in Raw.
type ImportDesc struct {
	Raw     []byte
	TypeIdx uint32
	Kind    byte
}

// Export describes an exported item.
type Export struct {
	Name string
	Kind byte
	Idx  uint32
}

// FuncBody represents a function's local declarations and bytecode.
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // Raw code bytes including the final end opcode

	raw       []byte // entire body including its size prefix
	localsRaw []byte
	dirty     bool
}

// LocalEntry represents a group of local variables with the same type.
type LocalEntry struct {
	HeapType int64 // only for ValRef and ValRefNull
	Count    uint32
	ValType  ValType
}

// CustomSection holds a named custom section's data.
type CustomSection struct {
	Name string
	Data []byte
}

// Instructions decodes the body's instruction list.
func (b *FuncBody) Instructions() ([]Instruction, error) {
	return DecodeInstructions(b.Code)
}

// SetInstructions replaces the body's code with instrs.
func (b *FuncBody) SetInstructions(instrs []Instruction) error {
	code, err := EncodeInstructions(instrs)
	if err != nil {
		return err
	}
	b.SetCode(code)
	return nil
}

// SetCode replaces the body's code bytes and marks the body for re-encoding.
func (b *FuncBody) SetCode(code []byte) {
	b.Code = code
	b.dirty = true
}

// Dirty reports whether the body changed since it was decoded.
func (b *FuncBody) Dirty() bool {
	return b.dirty || b.raw == nil
}

// NumImportedFuncs returns the number of imported functions
func (m *Module) NumImportedFuncs() int {
	count := 0
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			count++
		}
	}
	return count
}

// NumFuncs returns the size of the function index space.
func (m *Module) NumFuncs() int {
	return m.NumImportedFuncs() + len(m.Funcs)
}

// GetFuncType returns the type of a function by its index
func (m *Module) GetFuncType(funcIdx uint32) *FuncType {
	typeIdx, ok := m.funcTypeIdx(funcIdx)
	if !ok || int(typeIdx) >= len(m.Types) {
		return nil
	}
	return &m.Types[typeIdx]
}

func (m *Module) funcTypeIdx(funcIdx uint32) (uint32, bool) {
	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		if funcIdx == 0 {
			return imp.Desc.TypeIdx, true
		}
		funcIdx--
	}
	if int(funcIdx) >= len(m.Funcs) {
		return 0, false
	}
	return m.Funcs[funcIdx], true
}

// CustomSection returns the first custom section with the given name.
func (m *Module) CustomSection(name string) (*CustomSection, bool) {
	for i := range m.CustomSections {
		if m.CustomSections[i].Name == name {
			return &m.CustomSections[i], true
		}
	}
	return nil, false
}
