// Package wasm decodes and re-encodes WebAssembly binary modules for
// instrumentation.
//
// The decoder keeps every section's original bytes next to the decoded
// fields, so a module that is parsed and encoded again comes out
// byte-identical. Only function bodies replaced through FuncBody.SetCode or
// FuncBody.SetInstructions are re-encoded, together with the size prefixes
// that frame them.
//
// # Parsing
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasm.ParseModule(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Decoded fields cover types, imports, functions, exports, the start
// function, code bodies and custom sections. Tables, memories, globals,
// element and data segments, tags and the data count are carried as raw
// sections.
//
// # Instructions
//
//	instrs, err := module.Code[0].Instructions()
//	call, _ := wasm.ParseInstruction("call", "13")
//	instrs = append(instrs[:3], append([]wasm.Instruction{call}, instrs[3:]...)...)
//	err = module.Code[0].SetInstructions(instrs)
//
// Decoded instructions keep their original encoding in Instruction.Raw.
// Instructions from the single-byte opcode space get typed immediates;
// prefixed opcodes (GC, misc, SIMD, atomics) are identified by PrefixImm
// and carried through Raw.
//
// # Names
//
//	names, err := module.NameSection()
//	name, ok := names.FuncNames.Get(13)
//
// # Encoding
//
//	out, err := module.Encode()
package wasm
