package instrument

import (
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-instrument/errors"
	"github.com/wippyai/wasm-instrument/wasm"
)

// State is the lifecycle stage of a Module.
type State int

const (
	StateRaw      State = iota // nothing decoded yet
	StateDecoded               // decoded and named, unmodified
	StateModified              // at least one splice applied
	StateEmitted               // encoded; terminal
)

func (s State) String() string {
	switch s {
	case StateRaw:
		return "raw"
	case StateDecoded:
		return "decoded"
	case StateModified:
		return "modified"
	case StateEmitted:
		return "emitted"
	default:
		return "unknown"
	}
}

// Module is a decoded wasm module whose functions can be addressed by name.
type Module struct {
	wasm    *wasm.Module
	names   *wasm.NameSection
	byIndex map[uint32]string
	symbols map[string]uint32
	imports uint32
	state   State
}

// Function is a named entry of the function index space.
type Function struct {
	Name     string
	Index    uint32
	Imported bool
}

// Decode parses a wasm binary and its name section.
//
// A malformed binary, or one whose function and code sections disagree,
// fails with KindDecode. A module whose
// name section is absent, malformed or lacks function names fails with
// KindMissingNameSection.
func Decode(data []byte) (*Module, error) {
	wm, err := wasm.ParseModuleValidate(data)
	if err != nil {
		return nil, errors.Decode(err)
	}

	ns, err := wm.NameSection()
	if err != nil {
		return nil, errors.MissingNameSection(err)
	}
	if !ns.HasFunctionNames() {
		return nil, errors.MissingNameSection(wasm.ErrNoFunctionNames)
	}

	m := &Module{
		wasm:    wm,
		names:   ns,
		byIndex: make(map[uint32]string, len(ns.FuncNames)),
		symbols: make(map[string]uint32, len(ns.FuncNames)),
		imports: uint32(wm.NumImportedFuncs()),
		state:   StateDecoded,
	}
	for _, n := range ns.FuncNames {
		m.byIndex[n.Index] = n.Name
		if prev, ok := m.symbols[n.Name]; !ok || n.Index < prev {
			m.symbols[n.Name] = n.Index
		}
	}

	Logger().Debug("decoded module",
		zap.Int("bytes", len(data)),
		zap.Uint32("imported_funcs", m.imports),
		zap.Int("bodies", len(wm.Code)),
		zap.Int("names", len(ns.FuncNames)))

	return m, nil
}

// DecodeFile reads and decodes the wasm binary at path.
func DecodeFile(path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO("read", path, err)
	}
	return Decode(data)
}

// State returns the module's lifecycle stage.
func (m *Module) State() State {
	return m.state
}

// Wasm returns the underlying decoded module.
func (m *Module) Wasm() *wasm.Module {
	return m.wasm
}

// ImportedFuncs returns the number of imported functions, which occupy the
// start of the function index space.
func (m *Module) ImportedFuncs() uint32 {
	return m.imports
}

// Resolve returns the function index named symbol. When several indices
// share a name the lowest one wins.
func (m *Module) Resolve(symbol string) (uint32, error) {
	if m.symbols == nil {
		return 0, errors.InvalidState(errors.PhaseResolve, "resolve", m.state.String())
	}
	idx, ok := m.symbols[symbol]
	if !ok {
		return 0, errors.SymbolNotFound(symbol)
	}
	Logger().Debug("resolved symbol", zap.String("symbol", symbol), zap.Uint32("index", idx))
	return idx, nil
}

// FuncName returns the name-section name of a function index.
func (m *Module) FuncName(idx uint32) (string, bool) {
	name, ok := m.byIndex[idx]
	return name, ok
}

// Functions lists every named function ordered by index.
func (m *Module) Functions() []Function {
	out := make([]Function, 0, len(m.byIndex))
	for idx, name := range m.byIndex {
		out = append(out, Function{Name: name, Index: idx, Imported: idx < m.imports})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// checkState fails unless the module is decoded or modified.
func (m *Module) checkState(phase errors.Phase, op string) error {
	if m.state != StateDecoded && m.state != StateModified {
		return errors.InvalidState(phase, op, m.state.String())
	}
	return nil
}

// body resolves symbol to its index and code body. This is the only place
// the function index space is mapped onto code section positions.
func (m *Module) body(phase errors.Phase, symbol string) (uint32, *wasm.FuncBody, error) {
	idx, err := m.Resolve(symbol)
	if err != nil {
		return 0, nil, err
	}
	if idx < m.imports {
		return idx, nil, errors.NoBodyForImport(phase, symbol, idx, int(m.imports))
	}
	pos := idx - m.imports
	if uint64(pos) >= uint64(len(m.wasm.Code)) {
		return idx, nil, errors.IndexOutOfRange(phase, symbol, idx, len(m.wasm.Code))
	}
	return idx, &m.wasm.Code[pos], nil
}

// Instructions returns the decoded instruction list of symbol's body.
func (m *Module) Instructions(symbol string) ([]wasm.Instruction, error) {
	if err := m.checkState(errors.PhaseReport, "list instructions of"); err != nil {
		return nil, err
	}
	_, b, err := m.body(errors.PhaseReport, symbol)
	if err != nil {
		return nil, err
	}
	return decodeBody(errors.PhaseReport, symbol, b)
}

func decodeBody(phase errors.Phase, symbol string, b *wasm.FuncBody) ([]wasm.Instruction, error) {
	instrs, err := b.Instructions()
	if err != nil {
		return nil, errors.New(phase, errors.KindDecode).
			Symbol(symbol).
			Detail("decode function body").
			Cause(err).
			Build()
	}
	return instrs, nil
}
