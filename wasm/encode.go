package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-instrument/wasm/internal/binary"
)

// Encode serializes the module to WebAssembly binary format.
//
// A module produced by ParseModule is written from its raw sections, so
// the output is byte-identical to the input unless a function body was
// replaced through FuncBody.SetCode or FuncBody.SetInstructions. In that
// case only the code section is rebuilt: the vector count and untouched
// bodies keep their original bytes, and changed bodies get a minimal size
// prefix. A module built in memory is encoded canonically from its fields.
func (m *Module) Encode() ([]byte, error) {
	if m.Sections == nil {
		return m.encodeFields()
	}

	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	for _, s := range m.Sections {
		if s.ID == SectionCode && m.codeDirty() {
			payload, err := m.encodeCodeSection()
			if err != nil {
				return nil, err
			}
			writeSection(w, SectionCode, payload)
			continue
		}
		w.Byte(s.ID)
		w.WriteBytes(s.SizeRaw)
		w.WriteBytes(s.Payload)
	}
	return w.Bytes(), nil
}

func (m *Module) codeDirty() bool {
	if m.codeCountRaw == nil {
		return true
	}
	if n, err := binary.NewReader(m.codeCountRaw).ReadU32(); err != nil || int(n) != len(m.Code) {
		return true
	}
	for i := range m.Code {
		if m.Code[i].Dirty() {
			return true
		}
	}
	return false
}

func (m *Module) encodeCodeSection() ([]byte, error) {
	w := binary.NewWriter()
	if n, err := binary.NewReader(m.codeCountRaw).ReadU32(); err == nil && int(n) == len(m.Code) {
		w.WriteBytes(m.codeCountRaw)
	} else {
		w.WriteU32(uint32(len(m.Code)))
	}
	for i := range m.Code {
		b := &m.Code[i]
		if !b.Dirty() {
			w.WriteBytes(b.raw)
			continue
		}
		body, err := b.encode()
		if err != nil {
			return nil, fmt.Errorf("function body %d: %w", i, err)
		}
		w.WriteVec(body)
	}
	return w.Bytes(), nil
}

// encode returns the body without its size prefix.
func (b *FuncBody) encode() ([]byte, error) {
	if err := checkCode(b.Code); err != nil {
		return nil, err
	}
	w := binary.NewWriter()
	if b.localsRaw != nil {
		w.WriteBytes(b.localsRaw)
	} else {
		w.WriteU32(uint32(len(b.Locals)))
		for _, l := range b.Locals {
			w.WriteU32(l.Count)
			writeValType(w, l.ValType, l.HeapType)
		}
	}
	w.WriteBytes(b.Code)
	return w.Bytes(), nil
}

func (m *Module) encodeFields() ([]byte, error) {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(m.Types) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			s.Byte(FuncTypeByte)
			writeValTypes(s, ft.Params)
			writeValTypes(s, ft.Results)
		}
		writeSection(w, SectionType, s.Bytes())
	}

	if len(m.Imports) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			s.WriteName(imp.Module)
			s.WriteName(imp.Name)
			s.Byte(imp.Desc.Kind)
			if imp.Desc.Kind == KindFunc {
				s.WriteU32(imp.Desc.TypeIdx)
			} else {
				s.WriteBytes(imp.Desc.Raw)
			}
		}
		writeSection(w, SectionImport, s.Bytes())
	}

	if len(m.Funcs) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Funcs)))
		for _, idx := range m.Funcs {
			s.WriteU32(idx)
		}
		writeSection(w, SectionFunction, s.Bytes())
	}

	if len(m.Exports) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			s.WriteName(exp.Name)
			s.Byte(exp.Kind)
			s.WriteU32(exp.Idx)
		}
		writeSection(w, SectionExport, s.Bytes())
	}

	if m.Start != nil {
		s := binary.NewWriter()
		s.WriteU32(*m.Start)
		writeSection(w, SectionStart, s.Bytes())
	}

	if len(m.Code) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(m.Code)))
		for i := range m.Code {
			body, err := m.Code[i].encode()
			if err != nil {
				return nil, fmt.Errorf("function body %d: %w", i, err)
			}
			s.WriteVec(body)
		}
		writeSection(w, SectionCode, s.Bytes())
	}

	for _, cs := range m.CustomSections {
		s := binary.NewWriter()
		s.WriteName(cs.Name)
		s.WriteBytes(cs.Data)
		writeSection(w, SectionCustom, s.Bytes())
	}

	return w.Bytes(), nil
}

func writeSection(w *binary.Writer, id byte, data []byte) {
	w.Byte(id)
	w.WriteVec(data)
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		writeValType(w, t, 0)
	}
}

func writeValType(w *binary.Writer, t ValType, heap int64) {
	w.Byte(byte(t))
	if t == ValRef || t == ValRefNull {
		w.WriteS64(heap)
	}
}
