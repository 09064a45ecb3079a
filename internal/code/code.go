package code

import (
	"allot/internal/ops"
	"allot/internal/value"
)

type Opcode byte

const (
	OpNop Opcode = iota
	OpOp
	OpMov
	OpCpy
	OpCast
	OpLea
	OpJmp
	OpRet
	OpCall
	OpExit
	OpPush
	OpPushCpy
	OpPop
	OpPopMany
	OpStackCpy
	OpPushFrame
	OpPopFrame
	OpTakeFrom
	OpGiveTo
	OpThreadCreate
	OpThreadJoin
	OpAssert
)

const (
	OpDbg  Opcode = 128
	OpDump Opcode = 129
)

type Operand byte

const (
	OperandOp     Operand = iota // operator byte
	OperandReg                   // register, required
	OperandOptReg                // register or "_"
	OperandValue                 // typed literal or register reference
	OperandKind                  // kind byte
	OperandOffset                // u64
	OperandName                  // length-prefixed string
	OperandFlag                  // bool
	OperandBits                  // u8
)

type Definition struct {
	Name     string
	Operands []Operand
}

var definitions = map[Opcode]*Definition{
	OpNop:          {"nop", nil},
	OpOp:           {"op", []Operand{OperandOp, OperandReg, OperandOptReg}},
	OpMov:          {"mov", []Operand{OperandReg, OperandValue}},
	OpCpy:          {"cpy", []Operand{OperandReg, OperandReg}},
	OpCast:         {"cast", []Operand{OperandReg, OperandKind}},
	OpLea:          {"lea", []Operand{OperandReg, OperandOffset}},
	OpJmp:          {"jmp", []Operand{OperandOptReg, OperandValue}},
	OpRet:          {"ret", nil},
	OpCall:         {"call", []Operand{OperandName}},
	OpExit:         {"exit", []Operand{OperandValue}},
	OpPush:         {"push", []Operand{OperandReg}},
	OpPushCpy:      {"pushcpy", []Operand{OperandReg}},
	OpPop:          {"pop", []Operand{OperandOptReg}},
	OpPopMany:      {"popmany", []Operand{OperandValue}},
	OpStackCpy:     {"stackcpy", []Operand{OperandReg, OperandValue}},
	OpPushFrame:    {"pushframe", []Operand{OperandFlag}},
	OpPopFrame:     {"popframe", nil},
	OpTakeFrom:     {"takefrom", nil},
	OpGiveTo:       {"giveto", nil},
	OpThreadCreate: {"threadcreate", []Operand{OperandValue}},
	OpThreadJoin:   {"threadjoin", []Operand{OperandReg}},
	OpAssert:       {"assert", []Operand{OperandReg, OperandValue}},
	OpDbg:          {"dbg", []Operand{OperandReg}},
	OpDump:         {"dump", []Operand{OperandBits}},
}

var byMnemonic = func() map[string]Opcode {
	m := make(map[string]Opcode, len(definitions))
	for op, def := range definitions {
		m[def.Name] = op
	}
	return m
}()

func Lookup(op Opcode) (*Definition, bool) {
	def, ok := definitions[op]
	return def, ok
}

func LookupMnemonic(name string) (Opcode, bool) {
	op, ok := byMnemonic[name]
	return op, ok
}

func Mnemonics() []string {
	out := make([]string, 0, len(definitions))
	for _, op := range Opcodes() {
		out = append(out, definitions[op].Name)
	}
	return out
}

// Opcodes lists every defined opcode in byte order.
func Opcodes() []Opcode {
	out := make([]Opcode, 0, len(definitions))
	for op := OpNop; op <= OpAssert; op++ {
		out = append(out, op)
	}
	return append(out, OpDbg, OpDump)
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return def.Name
	}
	return "unknown"
}

// Dump flag bits.
const (
	DumpInstructions uint8 = 1 << iota
	DumpRegisters
	DumpFrames
	DumpHeap
	DumpSnapshot
)

type Instruction struct {
	Op     Opcode
	Oper   ops.Operation
	A      value.Register
	B      value.Register
	Val    value.Value
	Kind   value.Kind
	Offset uint64
	Name   string
	Flag   bool
	Bits   uint8
}

type Program []Instruction

func Nop() Instruction { return Instruction{Op: OpNop, A: value.RegNone, B: value.RegNone} }

func Op(op ops.Operation, dst, src value.Register) Instruction {
	return Instruction{Op: OpOp, Oper: op, A: dst, B: src}
}

func Unary(op ops.UnaryOp, dst value.Register) Instruction {
	return Op(ops.Prim1(op), dst, value.RegNone)
}

func Binary(op ops.BinaryOp, dst, src value.Register) Instruction {
	return Op(ops.Prim2(op), dst, src)
}

func Mov(dst value.Register, v value.Value) Instruction {
	return Instruction{Op: OpMov, A: dst, B: value.RegNone, Val: v}
}

func Cpy(dst, src value.Register) Instruction {
	return Instruction{Op: OpCpy, A: dst, B: src}
}

func Cast(r value.Register, k value.Kind) Instruction {
	return Instruction{Op: OpCast, A: r, B: value.RegNone, Kind: k}
}

func Lea(r value.Register, offset uint64) Instruction {
	return Instruction{Op: OpLea, A: r, B: value.RegNone, Offset: offset}
}

// Jmp jumps to target when cond holds true; cond RegNone jumps unconditionally.
func Jmp(cond value.Register, target value.Value) Instruction {
	return Instruction{Op: OpJmp, A: cond, B: value.RegNone, Val: target}
}

func Ret() Instruction { return Instruction{Op: OpRet, A: value.RegNone, B: value.RegNone} }

func Call(name string) Instruction {
	return Instruction{Op: OpCall, A: value.RegNone, B: value.RegNone, Name: name}
}

func Exit(code value.Value) Instruction {
	return Instruction{Op: OpExit, A: value.RegNone, B: value.RegNone, Val: code}
}

func Push(r value.Register) Instruction {
	return Instruction{Op: OpPush, A: r, B: value.RegNone}
}

func PushCpy(r value.Register) Instruction {
	return Instruction{Op: OpPushCpy, A: r, B: value.RegNone}
}

func Pop(dst value.Register) Instruction {
	return Instruction{Op: OpPop, A: dst, B: value.RegNone}
}

func PopMany(n value.Value) Instruction {
	return Instruction{Op: OpPopMany, A: value.RegNone, B: value.RegNone, Val: n}
}

func StackCpy(dst value.Register, depth value.Value) Instruction {
	return Instruction{Op: OpStackCpy, A: dst, B: value.RegNone, Val: depth}
}

func PushFrame(isolated bool) Instruction {
	return Instruction{Op: OpPushFrame, A: value.RegNone, B: value.RegNone, Flag: isolated}
}

func PopFrame() Instruction {
	return Instruction{Op: OpPopFrame, A: value.RegNone, B: value.RegNone}
}

func TakeFrom() Instruction {
	return Instruction{Op: OpTakeFrom, A: value.RegNone, B: value.RegNone}
}

func GiveTo() Instruction {
	return Instruction{Op: OpGiveTo, A: value.RegNone, B: value.RegNone}
}

func ThreadCreate(target value.Value) Instruction {
	return Instruction{Op: OpThreadCreate, A: value.RegNone, B: value.RegNone, Val: target}
}

func ThreadJoin(r value.Register) Instruction {
	return Instruction{Op: OpThreadJoin, A: r, B: value.RegNone}
}

func Assert(r value.Register, expected value.Value) Instruction {
	return Instruction{Op: OpAssert, A: r, B: value.RegNone, Val: expected}
}

func Dbg(r value.Register) Instruction {
	return Instruction{Op: OpDbg, A: r, B: value.RegNone}
}

func Dump(bits uint8) Instruction {
	return Instruction{Op: OpDump, A: value.RegNone, B: value.RegNone, Bits: bits}
}
