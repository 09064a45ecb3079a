package ops

import "fmt"

type UnaryOp uint8

const (
	Increment UnaryOp = iota
	Decrement
	LogicalNot
	BitwiseNot
)

type BinaryOp uint8

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
	Modulus
	LogicalAnd
	LogicalOr
	LogicalXor
	Equal
	NotEqual
	Greater
	Less
	GreaterEqual
	LessEqual
	BitwiseAnd
	BitwiseOr
	BitwiseXor
	ShiftLeft
	ShiftRight
	SameKind
)

var unarySymbols = [...]string{"++", "--", "!", "~"}

var binarySymbols = [...]string{
	"+", "-", "*", "/", "%",
	"&&", "||", "^^",
	"==", "!=", ">", "<", ">=", "<=",
	"&", "|", "^", "<<", ">>",
	"<>",
}

// Operation is the encoded operator byte: unary operators keep their index,
// binary operators set the high bit.
type Operation uint8

const binaryFlag Operation = 0x80

func Prim1(op UnaryOp) Operation  { return Operation(op) }
func Prim2(op BinaryOp) Operation { return binaryFlag | Operation(op) }

func (o Operation) IsBinary() bool   { return o&binaryFlag != 0 }
func (o Operation) Unary() UnaryOp   { return UnaryOp(o) }
func (o Operation) Binary() BinaryOp { return BinaryOp(o &^ binaryFlag) }

func (o Operation) Valid() bool {
	if o.IsBinary() {
		return int(o.Binary()) < len(binarySymbols)
	}
	return int(o) < len(unarySymbols)
}

func (o Operation) String() string {
	if !o.Valid() {
		return fmt.Sprintf("op(0x%02x)", uint8(o))
	}
	if o.IsBinary() {
		return binarySymbols[o.Binary()]
	}
	return unarySymbols[o]
}

func (op UnaryOp) String() string  { return Prim1(op).String() }
func (op BinaryOp) String() string { return Prim2(op).String() }

func ParseOperation(sym string) (Operation, bool) {
	for i, s := range unarySymbols {
		if s == sym {
			return Prim1(UnaryOp(i)), true
		}
	}
	for i, s := range binarySymbols {
		if s == sym {
			return Prim2(BinaryOp(i)), true
		}
	}
	return 0, false
}

func Symbols() []string {
	out := make([]string, 0, len(unarySymbols)+len(binarySymbols))
	out = append(out, unarySymbols[:]...)
	return append(out, binarySymbols[:]...)
}
