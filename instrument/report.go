package instrument

import (
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-instrument/errors"
)

// Unknown is printed in place of a callee that has no name.
const Unknown = "?"

// Dependency is one callee of a function.
type Dependency struct {
	Symbol   string // empty when Known is false
	Position int    // call site within the caller's body, -1 for transitive entries
	Callee   uint32
	Known    bool
}

// Name returns the callee's symbol, or Unknown.
func (d Dependency) Name() string {
	if !d.Known {
		return Unknown
	}
	return d.Symbol
}

// Report lists the direct calls made by symbol's body in instruction order.
// Callees missing from the name section, including indices outside the
// function index space, are reported with Known unset.
func (m *Module) Report(symbol string) ([]Dependency, error) {
	if err := m.checkState(errors.PhaseReport, "report on"); err != nil {
		return nil, err
	}
	idx, b, err := m.body(errors.PhaseReport, symbol)
	if err != nil {
		return nil, err
	}
	instrs, err := decodeBody(errors.PhaseReport, symbol, b)
	if err != nil {
		return nil, err
	}

	deps := make([]Dependency, 0)
	for pos, instr := range instrs {
		callee, ok := instr.GetCallTarget()
		if !ok {
			continue
		}
		deps = append(deps, m.dependency(pos, callee))
	}

	Logger().Debug("reported dependencies",
		zap.String("symbol", symbol),
		zap.Uint32("index", idx),
		zap.Int("instructions", len(instrs)),
		zap.Int("calls", len(deps)))

	return deps, nil
}

// TransitiveDependencies lists every function reachable from symbol through
// direct calls, ordered by index. symbol itself appears only when it is
// recursive. Positions are -1.
func (m *Module) TransitiveDependencies(symbol string) ([]Dependency, error) {
	if err := m.checkState(errors.PhaseReport, "report on"); err != nil {
		return nil, err
	}
	idx, _, err := m.body(errors.PhaseReport, symbol)
	if err != nil {
		return nil, err
	}

	cg, err := BuildCallGraph(m.wasm)
	if err != nil {
		return nil, errors.New(errors.PhaseReport, errors.KindDecode).
			Symbol(symbol).
			Detail("build call graph").
			Cause(err).
			Build()
	}

	reachable := cg.Reachable(idx)
	deps := make([]Dependency, 0, len(reachable))
	for callee := range reachable {
		deps = append(deps, m.dependency(-1, callee))
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Callee < deps[j].Callee })

	Logger().Debug("reported transitive dependencies",
		zap.String("symbol", symbol),
		zap.Uint32("index", idx),
		zap.Int("reachable", len(deps)))

	return deps, nil
}

func (m *Module) dependency(pos int, callee uint32) Dependency {
	name, ok := m.FuncName(callee)
	return Dependency{
		Position: pos,
		Callee:   callee,
		Symbol:   name,
		Known:    ok,
	}
}
