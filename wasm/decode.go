package wasm

import (
	"errors"
	"fmt"

	"github.com/wippyai/wasm-instrument/wasm/internal/binary"
)

// Parsing errors returned by ParseModule.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("invalid wasm version")
	ErrMissingEnd     = errors.New("function body does not end with end opcode")
	ErrCodeAfterEnd   = errors.New("instructions after the function's final end")
)

// sectionNames is indexed by section ID.
var sectionNames = [...]string{
	SectionCustom:    "custom section",
	SectionType:      "type section",
	SectionImport:    "import section",
	SectionFunction:  "function section",
	SectionTable:     "table section",
	SectionMemory:    "memory section",
	SectionGlobal:    "global section",
	SectionExport:    "export section",
	SectionStart:     "start section",
	SectionElement:   "element section",
	SectionCode:      "code section",
	SectionData:      "data section",
	SectionDataCount: "data count section",
	SectionTag:       "tag section",
}

// sectionOrder gives the required relative position of each known section.
// Tag sits between memory and global, data count before code.
var sectionOrder = [...]int{
	SectionType:      1,
	SectionImport:    2,
	SectionFunction:  3,
	SectionTable:     4,
	SectionMemory:    5,
	SectionTag:       6,
	SectionGlobal:    7,
	SectionExport:    8,
	SectionStart:     9,
	SectionElement:   10,
	SectionDataCount: 11,
	SectionCode:      12,
	SectionData:      13,
}

// SectionName returns a human readable name for a section ID.
func SectionName(id byte) string {
	if int(id) < len(sectionNames) {
		return sectionNames[id]
	}
	return fmt.Sprintf("section 0x%02x", id)
}

// ParseModule decodes a WebAssembly binary module.
//
// Section payloads and function bodies alias data; callers must not modify
// data while the module is in use.
func ParseModule(data []byte) (*Module, error) {
	r := binary.NewReader(data)

	magic, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", 0, err)
	}
	if magic != Magic {
		return nil, ErrInvalidMagic
	}
	version, err := r.ReadU32LE()
	if err != nil {
		return nil, r.WrapError("header", 0, err)
	}
	if version != Version {
		return nil, ErrInvalidVersion
	}

	m := &Module{}
	lastOrder := 0

	for r.Len() > 0 {
		id, _ := r.ReadByte()
		if int(id) >= len(sectionNames) {
			return nil, r.WrapError("section header", 0, fmt.Errorf("unknown section ID: 0x%02x", id))
		}
		if id != SectionCustom {
			order := sectionOrder[id]
			if order <= lastOrder {
				return nil, r.WrapError("section header", 0, fmt.Errorf("%s appears out of order", SectionName(id)))
			}
			lastOrder = order
		}

		sizeStart := r.Position()
		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("section size", 0, err)
		}
		sizeRaw := r.Span(sizeStart)

		base := r.Position()
		payload, err := r.Next(int(size))
		if err != nil {
			return nil, r.WrapError(SectionName(id), 0, err)
		}

		m.Sections = append(m.Sections, Section{ID: id, SizeRaw: sizeRaw, Payload: payload})

		sr := binary.NewReader(payload)
		if err := m.parseSection(id, sr); err != nil {
			return nil, sr.WrapError(SectionName(id), base, err)
		}
		if sr.Len() != 0 {
			return nil, sr.WrapError(SectionName(id), base, fmt.Errorf("%d trailing bytes", sr.Len()))
		}
	}

	return m, nil
}

func (m *Module) parseSection(id byte, r *binary.Reader) error {
	switch id {
	case SectionCustom:
		return parseCustomSection(r, m)
	case SectionType:
		return parseTypeSection(r, m)
	case SectionImport:
		return parseImportSection(r, m)
	case SectionFunction:
		return parseFunctionSection(r, m)
	case SectionExport:
		return parseExportSection(r, m)
	case SectionStart:
		return parseStartSection(r, m)
	case SectionCode:
		return parseCodeSection(r, m)
	default:
		// Kept opaque in Sections.
		_, err := r.Next(r.Len())
		return err
	}
}

// readCount reads a vector length and rejects lengths that cannot fit in the
// remaining input, assuming every element takes at least one byte.
func readCount(r *binary.Reader) (uint32, error) {
	n, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	if int64(n) > int64(r.Len()) {
		return 0, fmt.Errorf("vector length %d exceeds remaining %d bytes", n, r.Len())
	}
	return n, nil
}

func parseCustomSection(r *binary.Reader, m *Module) error {
	name, err := r.ReadName()
	if err != nil {
		return err
	}
	rest, err := r.Next(r.Len())
	if err != nil {
		return err
	}
	m.CustomSections = append(m.CustomSections, CustomSection{Name: name, Data: rest})
	return nil
}

func parseTypeSection(r *binary.Reader, m *Module) error {
	count, err := readCount(r)
	if err != nil {
		return err
	}
	types := make([]FuncType, 0, count)
	for i := uint32(0); i < count; i++ {
		form, err := r.ReadByte()
		if err != nil {
			return err
		}
		if form != FuncTypeByte {
			// GC type forms are not modelled; the section stays raw.
			_, err := r.Next(r.Len())
			return err
		}
		params, err := readValTypes(r)
		if err != nil {
			return err
		}
		results, err := readValTypes(r)
		if err != nil {
			return err
		}
		types = append(types, FuncType{Params: params, Results: results})
	}
	m.Types = types
	return nil
}

func readValTypes(r *binary.Reader) ([]ValType, error) {
	count, err := readCount(r)
	if err != nil {
		return nil, err
	}
	types := make([]ValType, count)
	for i := range types {
		t, _, err := readValType(r)
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

func readValType(r *binary.Reader) (ValType, int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	t := ValType(b)
	if t == ValRef || t == ValRefNull {
		heap, err := r.ReadS33()
		if err != nil {
			return 0, 0, err
		}
		return t, heap, nil
	}
	return t, 0, nil
}

func parseImportSection(r *binary.Reader, m *Module) error {
	count, err := readCount(r)
	if err != nil {
		return err
	}
	m.Imports = make([]Import, count)
	for i := range m.Imports {
		module, err := r.ReadName()
		if err != nil {
			return err
		}
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}

		imp := Import{Module: module, Name: name, Desc: ImportDesc{Kind: kind}}
		start := r.Position()
		switch kind {
		case KindFunc:
			imp.Desc.TypeIdx, err = r.ReadU32()
		case KindTable:
			err = skipTableType(r)
		case KindMemory:
			err = skipLimits(r)
		case KindGlobal:
			if _, _, err = readValType(r); err == nil {
				_, err = r.ReadByte()
			}
		case KindTag:
			if _, err = r.ReadByte(); err == nil {
				_, err = r.ReadU32()
			}
		default:
			return fmt.Errorf("unknown import kind: %d", kind)
		}
		if err != nil {
			return fmt.Errorf("import %d (%s.%s): %w", i, module, name, err)
		}
		if kind != KindFunc {
			imp.Desc.Raw = r.Span(start)
		}
		m.Imports[i] = imp
	}
	return nil
}

func skipTableType(r *binary.Reader) error {
	if _, _, err := readValType(r); err != nil {
		return err
	}
	return skipLimits(r)
}

func skipLimits(r *binary.Reader) error {
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	read := func() error {
		if flags&0x04 != 0 {
			_, err := r.ReadU64()
			return err
		}
		_, err := r.ReadU32()
		return err
	}
	if err := read(); err != nil {
		return err
	}
	if flags&0x01 != 0 {
		return read()
	}
	return nil
}

func parseFunctionSection(r *binary.Reader, m *Module) error {
	count, err := readCount(r)
	if err != nil {
		return err
	}
	m.Funcs = make([]uint32, count)
	for i := range m.Funcs {
		m.Funcs[i], err = r.ReadU32()
		if err != nil {
			return err
		}
	}
	return nil
}

func parseExportSection(r *binary.Reader, m *Module) error {
	count, err := readCount(r)
	if err != nil {
		return err
	}
	m.Exports = make([]Export, count)
	for i := range m.Exports {
		name, err := r.ReadName()
		if err != nil {
			return err
		}
		kind, err := r.ReadByte()
		if err != nil {
			return err
		}
		if kind > KindTag {
			return fmt.Errorf("invalid export kind: 0x%02x", kind)
		}
		idx, err := r.ReadU32()
		if err != nil {
			return err
		}
		m.Exports[i] = Export{Name: name, Kind: kind, Idx: idx}
	}
	return nil
}

func parseStartSection(r *binary.Reader, m *Module) error {
	idx, err := r.ReadU32()
	if err != nil {
		return err
	}
	m.Start = &idx
	return nil
}

func parseCodeSection(r *binary.Reader, m *Module) error {
	count, err := readCount(r)
	if err != nil {
		return err
	}
	m.codeCountRaw = r.Span(0)
	m.Code = make([]FuncBody, count)
	for i := range m.Code {
		start := r.Position()
		size, err := r.ReadU32()
		if err != nil {
			return err
		}
		body, err := r.Next(int(size))
		if err != nil {
			return fmt.Errorf("function body %d: %w", i, err)
		}
		fb, err := parseFuncBody(body)
		if err != nil {
			return fmt.Errorf("function body %d: %w", i, err)
		}
		fb.raw = r.Span(start)
		m.Code[i] = fb
	}
	return nil
}

func parseFuncBody(body []byte) (FuncBody, error) {
	r := binary.NewReader(body)
	groups, err := readCount(r)
	if err != nil {
		return FuncBody{}, err
	}
	locals := make([]LocalEntry, 0, groups)
	for i := uint32(0); i < groups; i++ {
		n, err := r.ReadU32()
		if err != nil {
			return FuncBody{}, err
		}
		t, heap, err := readValType(r)
		if err != nil {
			return FuncBody{}, err
		}
		locals = append(locals, LocalEntry{Count: n, ValType: t, HeapType: heap})
	}
	localsRaw := r.Span(0)

	code, _ := r.Next(r.Len())
	if err := checkCode(code); err != nil {
		return FuncBody{}, err
	}
	return FuncBody{Locals: locals, Code: code, localsRaw: localsRaw}, nil
}
