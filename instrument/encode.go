package instrument

import (
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-instrument/errors"
)

// Encode serializes the module. Sections and bodies that were not spliced
// keep their original bytes. The module is emitted afterwards and accepts no
// further operations.
func (m *Module) Encode() ([]byte, error) {
	if err := m.checkState(errors.PhaseEncode, "encode"); err != nil {
		return nil, err
	}
	data, err := m.wasm.Encode()
	if err != nil {
		return nil, errors.Encode(err)
	}
	m.state = StateEmitted

	Logger().Debug("encoded module", zap.Int("bytes", len(data)))
	return data, nil
}

// WriteFile atomically replaces path with data. The bytes go to a temporary
// file in the same directory which is renamed over path once complete, so
// path is never left truncated.
func WriteFile(path string, data []byte) error {
	f, err := renameio.TempFile(filepath.Dir(path), path)
	if err != nil {
		return errors.IO("create temporary file for", path, err)
	}
	defer f.Cleanup()

	if _, err := f.Write(data); err != nil {
		return errors.IO("write", path, err)
	}
	if err := f.Chmod(0o644); err != nil {
		return errors.IO("chmod", path, err)
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return errors.IO("replace", path, err)
	}

	Logger().Debug("wrote module", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}
