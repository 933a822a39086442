package wasm

import (
	"errors"
	"fmt"

	"github.com/wippyai/wasm-instrument/wasm/internal/binary"
)

// Name section errors.
var (
	ErrNoNameSection    = errors.New("module has no name section")
	ErrNoFunctionNames  = errors.New("name section has no function names")
	ErrDuplicateNameKey = errors.New("duplicate index in name map")
)

// Naming associates an index with a name.
type Naming struct {
	Name  string
	Index uint32
}

// NameMap is a list of index/name pairs in encoded order.
type NameMap []Naming

// Get returns the name for idx.
func (nm NameMap) Get(idx uint32) (string, bool) {
	for _, n := range nm {
		if n.Index == idx {
			return n.Name, true
		}
	}
	return "", false
}

// IndirectNaming holds the local names of one function.
type IndirectNaming struct {
	Names NameMap
	Index uint32
}

// NameSection is the decoded "name" custom section.
type NameSection struct {
	ModuleName string
	FuncNames  NameMap
	LocalNames []IndirectNaming

	hasModuleName bool
	hasFuncNames  bool
}

// HasFunctionNames reports whether the function names subsection was present.
func (ns *NameSection) HasFunctionNames() bool {
	return ns.hasFuncNames
}

// NameSection parses the module's "name" custom section.
func (m *Module) NameSection() (*NameSection, error) {
	cs, ok := m.CustomSection(NameSectionName)
	if !ok {
		return nil, ErrNoNameSection
	}
	return ParseNameSection(cs.Data)
}

// ParseNameSection decodes the payload of a "name" custom section.
// Subsections other than module, function and local names are skipped.
func ParseNameSection(data []byte) (*NameSection, error) {
	r := binary.NewReader(data)
	ns := &NameSection{}
	seen := map[byte]bool{}

	for r.Len() > 0 {
		id, _ := r.ReadByte()
		size, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("name subsection size", 0, err)
		}
		base := r.Position()
		payload, err := r.Next(int(size))
		if err != nil {
			return nil, r.WrapError("name subsection", 0, err)
		}
		if id > NameSubsectionLocal {
			continue
		}
		if seen[id] {
			return nil, fmt.Errorf("name subsection %d appears twice", id)
		}
		seen[id] = true

		sr := binary.NewReader(payload)
		switch id {
		case NameSubsectionModule:
			ns.ModuleName, err = sr.ReadName()
			ns.hasModuleName = true
		case NameSubsectionFunction:
			ns.FuncNames, err = readNameMap(sr)
			ns.hasFuncNames = true
		case NameSubsectionLocal:
			ns.LocalNames, err = readIndirectNameMap(sr)
		}
		if err == nil && sr.Len() != 0 {
			err = fmt.Errorf("%d trailing bytes", sr.Len())
		}
		if err != nil {
			return nil, sr.WrapError(fmt.Sprintf("name subsection %d", id), base, err)
		}
	}

	return ns, nil
}

func readNameMap(r *binary.Reader) (NameMap, error) {
	count, err := readCount(r)
	if err != nil {
		return nil, err
	}
	nm := make(NameMap, 0, count)
	seen := make(map[uint32]struct{}, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadName()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateNameKey, idx)
		}
		seen[idx] = struct{}{}
		nm = append(nm, Naming{Index: idx, Name: name})
	}
	return nm, nil
}

func readIndirectNameMap(r *binary.Reader) ([]IndirectNaming, error) {
	count, err := readCount(r)
	if err != nil {
		return nil, err
	}
	out := make([]IndirectNaming, 0, count)
	seen := make(map[uint32]struct{}, count)
	for i := uint32(0); i < count; i++ {
		idx, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		names, err := readNameMap(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateNameKey, idx)
		}
		seen[idx] = struct{}{}
		out = append(out, IndirectNaming{Index: idx, Names: names})
	}
	return out, nil
}

// Encode serializes the name section payload.
func (ns *NameSection) Encode() []byte {
	w := binary.NewWriter()
	if ns.hasModuleName || ns.ModuleName != "" {
		s := binary.NewWriter()
		s.WriteName(ns.ModuleName)
		writeSection(w, NameSubsectionModule, s.Bytes())
	}
	if ns.hasFuncNames || len(ns.FuncNames) > 0 {
		s := binary.NewWriter()
		writeNameMap(s, ns.FuncNames)
		writeSection(w, NameSubsectionFunction, s.Bytes())
	}
	if len(ns.LocalNames) > 0 {
		s := binary.NewWriter()
		s.WriteU32(uint32(len(ns.LocalNames)))
		for _, in := range ns.LocalNames {
			s.WriteU32(in.Index)
			writeNameMap(s, in.Names)
		}
		writeSection(w, NameSubsectionLocal, s.Bytes())
	}
	return w.Bytes()
}

func writeNameMap(w *binary.Writer, nm NameMap) {
	w.WriteU32(uint32(len(nm)))
	for _, n := range nm {
		w.WriteU32(n.Index)
		w.WriteName(n.Name)
	}
}
