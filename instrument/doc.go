// Package instrument resolves functions of a wasm module by their
// name-section symbols, reports their direct call dependencies and splices
// single instructions into their bodies.
//
// A Module moves through four states. Decode yields StateDecoded. Splice
// moves it to StateModified. Encode moves it to StateEmitted, after which
// no further operation is accepted.
//
//	m, err := instrument.DecodeFile("app.wasm")
//	if err != nil {
//		return err
//	}
//	deps, err := m.Report("main")
//	...
//	err = m.Splice("main", 0, wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 13}})
//	...
//	out, err := m.Encode()
//	...
//	err = instrument.WriteFile("app.instrumented.wasm", out)
//
// Functions the module imports occupy the lowest indices of the function
// index space and have no body; reporting on or splicing into them fails
// with errors.KindNoBodyForImport. All failures are *errors.Error values.
package instrument
