package instrument_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-instrument/instrument"
	"github.com/wippyai/wasm-instrument/wasm"
)

const logIdx = 13

// addTwoCode has 18 instructions, the sixth of which is call 13:
//
//	0 local.get 0    6 local.get 2   12 i32.const 1
//	1 local.get 1    7 i32.eqz       13 i32.add
//	2 i32.add        8 br_if 0       14 local.set 2
//	3 local.set 2    9 nop           15 local.get 2
//	4 call 13       10 end           16 nop
//	5 block         11 local.get 2   17 end
var addTwoCode = []byte{
	0x20, 0x00, 0x20, 0x01, 0x6a, 0x21, 0x02,
	0x10, logIdx,
	0x02, 0x40, 0x20, 0x02, 0x45, 0x0d, 0x00, 0x01, 0x0b,
	0x20, 0x02, 0x41, 0x01, 0x6a, 0x21, 0x02, 0x20, 0x02, 0x01,
	0x0b,
}

// mainCode calls leaf (15), addTwo (14) and the unnamed import 3.
var mainCode = []byte{
	0x10, 0x0f,
	0x41, 0x01,
	0x41, 0x02,
	0x10, 0x0e,
	0x1a,
	0x10, 0x03,
	0x0b,
}

// fixtureModule has 14 imported functions, _log being the last one, and
// four bodies: addTwo (14), leaf (15), main (16) and a second "leaf" (17).
func fixtureModule(extra ...wasm.Naming) *wasm.Module {
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{},
			{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
		},
		Funcs:   []uint32{1, 0, 0, 0},
		Exports: []wasm.Export{{Name: "main", Kind: wasm.KindFunc, Idx: 16}},
		Code: []wasm.FuncBody{
			{Locals: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}}, Code: addTwoCode},
			{Code: []byte{wasm.OpNop, wasm.OpEnd}},
			{Code: mainCode},
			{Code: []byte{wasm.OpCall, logIdx, wasm.OpEnd}},
		},
	}
	for i := 0; i < logIdx; i++ {
		m.Imports = append(m.Imports, wasm.Import{
			Module: "env", Name: "host" + string(rune('a'+i)),
			Desc: wasm.ImportDesc{Kind: wasm.KindFunc},
		})
	}
	m.Imports = append(m.Imports, wasm.Import{Module: "env", Name: "_log", Desc: wasm.ImportDesc{Kind: wasm.KindFunc}})

	names := &wasm.NameSection{
		ModuleName: "indirect",
		FuncNames: append(wasm.NameMap{
			{Index: logIdx, Name: "_log"},
			{Index: 14, Name: "addTwo"},
			{Index: 15, Name: "leaf"},
			{Index: 16, Name: "main"},
			{Index: 17, Name: "leaf"},
		}, extra...),
	}
	m.CustomSections = []wasm.CustomSection{{Name: wasm.NameSectionName, Data: names.Encode()}}
	return m
}

func fixtureBytes(t testing.TB, extra ...wasm.Naming) []byte {
	t.Helper()
	data, err := fixtureModule(extra...).Encode()
	require.NoError(t, err)
	return data
}

func decodeFixture(t testing.TB, extra ...wasm.Naming) *instrument.Module {
	t.Helper()
	m, err := instrument.Decode(fixtureBytes(t, extra...))
	require.NoError(t, err)
	return m
}

func call(idx uint32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: idx}}
}
