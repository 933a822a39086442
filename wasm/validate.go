package wasm

import (
	"errors"
	"fmt"
)

// ErrMalformed wraps every structural inconsistency reported by Validate.
var ErrMalformed = errors.New("malformed module")

// Validate checks that the index spaces of the decoded module agree with
// each other: every defined function has a body, and every type, export and
// start reference points inside its index space. Function bodies are not
// type-checked, and name-section entries are not required to be in range.
func (m *Module) Validate() error {
	checks := []func() error{
		m.checkBodies,
		m.checkTypeRefs,
		m.checkExports,
		m.checkStart,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}
	return nil
}

// ParseModuleValidate parses data and runs Validate on the result.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// checkBodies guards the body = index - imports mapping used by callers.
func (m *Module) checkBodies() error {
	if len(m.Code) != len(m.Funcs) {
		return fmt.Errorf("%d functions declared, %d bodies present", len(m.Funcs), len(m.Code))
	}
	return nil
}

func (m *Module) checkTypeRefs() error {
	if m.Types == nil {
		if len(m.Funcs) > 0 && !m.hasSection(SectionType) {
			return fmt.Errorf("functions declared without a type section")
		}
		return nil
	}

	limit := uint32(len(m.Types))
	for i, t := range m.Funcs {
		if t >= limit {
			return fmt.Errorf("function %d: type %d of %d", m.NumImportedFuncs()+i, t, limit)
		}
	}
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.TypeIdx >= limit {
			return fmt.Errorf("import %s.%s: type %d of %d", imp.Module, imp.Name, imp.Desc.TypeIdx, limit)
		}
	}
	return nil
}

func (m *Module) checkExports() error {
	funcs := uint32(m.NumFuncs())
	names := make(map[string]bool, len(m.Exports))
	for _, e := range m.Exports {
		if names[e.Name] {
			return fmt.Errorf("export %q declared twice", e.Name)
		}
		names[e.Name] = true
		if e.Kind == KindFunc && e.Idx >= funcs {
			return fmt.Errorf("export %q: function %d of %d", e.Name, e.Idx, funcs)
		}
	}
	return nil
}

func (m *Module) checkStart() error {
	if m.Start == nil {
		return nil
	}
	if funcs := uint32(m.NumFuncs()); *m.Start >= funcs {
		return fmt.Errorf("start: function %d of %d", *m.Start, funcs)
	}
	return nil
}

func (m *Module) hasSection(id byte) bool {
	for i := range m.Sections {
		if m.Sections[i].ID == id {
			return true
		}
	}
	return false
}
