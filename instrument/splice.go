package instrument

import (
	"slices"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-instrument/errors"
	"github.com/wippyai/wasm-instrument/wasm"
)

// Splice inserts instr into symbol's body so that it occupies position.
// Instructions at position and after shift right by one; position equal to
// the body length appends. Only the target body is changed.
//
// The instruction is not type-checked against the surrounding code and no
// branch depths are adjusted.
func (m *Module) Splice(symbol string, position int, instr wasm.Instruction) error {
	if err := m.checkState(errors.PhaseSplice, "splice"); err != nil {
		return err
	}
	idx, b, err := m.body(errors.PhaseSplice, symbol)
	if err != nil {
		return err
	}
	instrs, err := decodeBody(errors.PhaseSplice, symbol, b)
	if err != nil {
		return err
	}
	if position < 0 || position > len(instrs) {
		return errors.SpliceOutOfRange(symbol, position, len(instrs))
	}

	instrs = slices.Insert(instrs, position, instr)
	if err := b.SetInstructions(instrs); err != nil {
		return errors.New(errors.PhaseSplice, errors.KindEncode).
			Symbol(symbol).
			Position(position).
			Detail("encode %s", instr).
			Cause(err).
			Build()
	}
	m.state = StateModified

	Logger().Debug("spliced instruction",
		zap.String("symbol", symbol),
		zap.Uint32("index", idx),
		zap.Int("position", position),
		zap.Stringer("instruction", instr),
		zap.Int("instructions", len(instrs)))

	return nil
}
