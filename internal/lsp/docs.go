package lsp

import (
	"strings"

	"allot/internal/code"
)

var mnemonicDocs = map[code.Opcode]string{
	code.OpNop:          "Does nothing.",
	code.OpOp:           "Applies an operator to dst, with src as the right-hand side for binary operators. The result replaces dst.",
	code.OpMov:          "Stores a literal in dst. A register operand is moved and left empty.",
	code.OpCpy:          "Copies src into dst.",
	code.OpCast:         "Converts the register in place to the given kind.",
	code.OpLea:          "Stores the instruction offset as an address in the register.",
	code.OpJmp:          "Jumps to the address when the condition register holds true. `_` jumps unconditionally.",
	code.OpRet:          "Pops an address off the current frame and continues there.",
	code.OpCall:         "Calls a library function. Arguments and results live in R5 to R9.",
	code.OpExit:         "Terminates the engine with an i32 status.",
	code.OpPush:         "Moves the register onto the current frame.",
	code.OpPushCpy:      "Copies the register onto the current frame.",
	code.OpPop:          "Pops the top of the current frame into the register, or drops it with `_`.",
	code.OpPopMany:      "Drops the given number of values from the current frame.",
	code.OpStackCpy:     "Copies the value at the given depth below the top into the register.",
	code.OpPushFrame:    "Pushes a new frame. `true` isolates it from the caller.",
	code.OpPopFrame:     "Discards the current frame. The root frame cannot be popped.",
	code.OpTakeFrom:     "Moves a value from the frame below into the current frame. Not supported yet.",
	code.OpGiveTo:       "Moves a value from the current frame to the frame below. Not supported yet.",
	code.OpThreadCreate: "Starts a thread at the address. The current frame is handed to it and R5 receives its handle.",
	code.OpThreadJoin:   "Waits for the thread behind the handle. Its exit status lands in R5 and its last frame is pushed.",
	code.OpAssert:       "Stops with status -1 when the register differs from the expected value.",
	code.OpDbg:          "Prints the register to the debug output.",
	code.OpDump:         "Prints engine state selected by bits: 1 instructions, 2 registers, 4 frames, 8 heap, 16 snapshot file.",
}

var operandNames = map[code.Operand]string{
	code.OperandOp:     "operator",
	code.OperandReg:    "reg",
	code.OperandOptReg: "reg|_",
	code.OperandValue:  "value",
	code.OperandKind:   "kind",
	code.OperandOffset: "offset",
	code.OperandName:   "function",
	code.OperandFlag:   "bool",
	code.OperandBits:   "bits",
}

func mnemonicSignature(op code.Opcode) string {
	def, ok := code.Lookup(op)
	if !ok {
		return ""
	}
	parts := []string{def.Name}
	for _, o := range def.Operands {
		parts = append(parts, operandNames[o])
	}
	return strings.Join(parts, " ")
}
