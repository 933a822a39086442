package instrument

import (
	"fmt"

	"github.com/wippyai/wasm-instrument/wasm"
)

// CallGraph maps each internal function index to the distinct functions it
// calls directly, in order of first call.
type CallGraph map[uint32][]uint32

// BuildCallGraph decodes every body of m and records its direct calls.
// Indirect calls and tail calls are not edges.
func BuildCallGraph(m *wasm.Module) (CallGraph, error) {
	cg := make(CallGraph)
	numImported := uint32(m.NumImportedFuncs())

	for i := range m.Code {
		callerIdx := numImported + uint32(i)
		instrs, err := m.Code[i].Instructions()
		if err != nil {
			return nil, fmt.Errorf("decode func %d: %w", callerIdx, err)
		}
		for _, instr := range instrs {
			if callee, ok := instr.GetCallTarget(); ok {
				cg[callerIdx] = appendUnique(cg[callerIdx], callee)
			}
		}
	}

	return cg, nil
}

// Reachable returns every function reachable through one or more direct
// calls from root. root itself is included only if it is on a cycle.
func (cg CallGraph) Reachable(root uint32) map[uint32]bool {
	result := make(map[uint32]bool)
	queue := append([]uint32(nil), cg[root]...)

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if result[idx] {
			continue
		}
		result[idx] = true
		queue = append(queue, cg[idx]...)
	}

	return result
}

func appendUnique(slice []uint32, val uint32) []uint32 {
	for _, v := range slice {
		if v == val {
			return slice
		}
	}
	return append(slice, val)
}
