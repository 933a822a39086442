package main

import (
	"strconv"
	"strings"

	"github.com/wippyai/wasm-instrument/wasm"
)

// edit is one --splice request.
type edit struct {
	Arg         string
	Instruction wasm.Instruction
	Position    int
}

// parseEdit parses POS,OPCODE[,OPERAND...] where OPCODE is a mnemonic such
// as "call" or a numeric opcode such as "0x10".
func parseEdit(arg string) (edit, error) {
	parts := strings.Split(arg, ",")
	if len(parts) < 2 {
		return edit{}, usageError("--splice %q: want POS,OPCODE[,OPERAND]", arg)
	}

	pos, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 31)
	if err != nil {
		return edit{}, usageError("--splice %q: invalid position %q", arg, parts[0])
	}

	instr, err := wasm.ParseInstruction(parts[1], parts[2:]...)
	if err != nil {
		return edit{}, usageError("--splice %q: %v", arg, err)
	}

	return edit{Arg: arg, Position: int(pos), Instruction: instr}, nil
}
