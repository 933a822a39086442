package wasm_test

import (
	"testing"

	"github.com/wippyai/wasm-instrument/wasm"
)

var header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// mainCode is: i32.const 42, call 0, i32.const 1, i32.const 2, call 2,
// drop, call 1, end.
var mainCode = []byte{
	0x41, 0x2a,
	0x10, 0x00,
	0x41, 0x01,
	0x41, 0x02,
	0x10, 0x02,
	0x1a,
	0x10, 0x01,
	0x0b,
}

// fixtureModule describes two imported functions (_log, abort) followed by
// addTwo (index 2) and main (index 3).
func fixtureModule() *wasm.Module {
	names := &wasm.NameSection{
		ModuleName: "fixture",
		FuncNames: wasm.NameMap{
			{Index: 0, Name: "_log"},
			{Index: 1, Name: "abort"},
			{Index: 2, Name: "addTwo"},
			{Index: 3, Name: "main"},
		},
	}
	return &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}},
			{},
			{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "_log", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
			{Module: "env", Name: "abort", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 1}},
		},
		Funcs:   []uint32{2, 1},
		Exports: []wasm.Export{{Name: "main", Kind: wasm.KindFunc, Idx: 3}},
		Code: []wasm.FuncBody{
			{Code: []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}},
			{Locals: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}}, Code: mainCode},
		},
		CustomSections: []wasm.CustomSection{
			{Name: wasm.NameSectionName, Data: names.Encode()},
		},
	}
}

func fixtureBytes(t testing.TB) []byte {
	t.Helper()
	data, err := fixtureModule().Encode()
	if err != nil {
		t.Fatalf("Encode fixture: %v", err)
	}
	return data
}

func parseFixture(t testing.TB) (*wasm.Module, []byte) {
	t.Helper()
	data := fixtureBytes(t)
	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	return m, data
}

func module(sections ...[]byte) []byte {
	out := append([]byte(nil), header...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}
