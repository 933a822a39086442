package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-instrument/wasm"
)

// sampleModule mirrors the layout the instrument tests use: thirteen unnamed
// host imports, _log at index 13, then addTwo (14), leaf (15) and main (16).
func sampleModule(withNames bool) *wasm.Module {
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{},
			{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
		},
		Funcs:   []uint32{1, 0, 0},
		Exports: []wasm.Export{{Name: "main", Kind: wasm.KindFunc, Idx: 16}},
		Code: []wasm.FuncBody{
			{Locals: []wasm.LocalEntry{{Count: 1, ValType: wasm.ValI32}}, Code: []byte{
				0x20, 0x00, 0x20, 0x01, 0x6a, 0x21, 0x02,
				0x10, 0x0d,
				0x02, 0x40, 0x20, 0x02, 0x45, 0x0d, 0x00, 0x01, 0x0b,
				0x20, 0x02, 0x41, 0x01, 0x6a, 0x21, 0x02, 0x20, 0x02, 0x01,
				0x0b,
			}},
			{Code: []byte{wasm.OpNop, wasm.OpEnd}},
			{Code: []byte{
				0x10, 0x0f,
				0x41, 0x01, 0x41, 0x02, 0x10, 0x0e, 0x1a,
				0x10, 0x03,
				0x0b,
			}},
		},
	}
	for i := 0; i < 13; i++ {
		m.Imports = append(m.Imports, wasm.Import{
			Module: "env", Name: "host" + string(rune('a'+i)),
			Desc: wasm.ImportDesc{Kind: wasm.KindFunc},
		})
	}
	m.Imports = append(m.Imports, wasm.Import{Module: "env", Name: "_log", Desc: wasm.ImportDesc{Kind: wasm.KindFunc}})

	if withNames {
		names := &wasm.NameSection{FuncNames: wasm.NameMap{
			{Index: 13, Name: "_log"},
			{Index: 14, Name: "addTwo"},
			{Index: 15, Name: "leaf"},
			{Index: 16, Name: "main"},
		}}
		m.CustomSections = []wasm.CustomSection{{Name: wasm.NameSectionName, Data: names.Encode()}}
	}
	return m
}

// writeSample encodes the sample module into a temporary directory and
// returns its path.
func writeSample(t *testing.T, withNames bool) string {
	t.Helper()
	data, err := sampleModule(withNames).Encode()
	require.NoError(t, err)
	return writeFile(t, "in.wasm", data)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(args ...string) result {
	var stdout, stderr bytes.Buffer
	code := doMain(args, &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}
