package code

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

func (ins Instruction) Operands() []string {
	def, ok := Lookup(ins.Op)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(def.Operands))
	regs := [2]string{strings.ToLower(ins.A.String()), strings.ToLower(ins.B.String())}
	ri := 0
	for _, operand := range def.Operands {
		switch operand {
		case OperandOp:
			out = append(out, ins.Oper.String())
		case OperandReg, OperandOptReg:
			out = append(out, regs[ri])
			ri++
		case OperandValue:
			out = append(out, ins.Val.String())
		case OperandKind:
			out = append(out, ins.Kind.String())
		case OperandOffset:
			out = append(out, strconv.FormatUint(ins.Offset, 10))
		case OperandName:
			out = append(out, formatName(ins.Name))
		case OperandFlag:
			out = append(out, strconv.FormatBool(ins.Flag))
		case OperandBits:
			out = append(out, strconv.Itoa(int(ins.Bits)))
		}
	}
	return out
}

func formatName(name string) string {
	if name == "" || strings.ContainsAny(name, " \t\r\n\";()") {
		return strconv.Quote(name)
	}
	return name
}

// String renders the instruction as one line of assembly.
func (ins Instruction) String() string {
	def, ok := Lookup(ins.Op)
	if !ok {
		return fmt.Sprintf("; unknown opcode %d", byte(ins.Op))
	}
	operands := ins.Operands()
	if len(operands) == 0 {
		return def.Name
	}
	return def.Name + " " + strings.Join(operands, " ")
}

// String renders the program as assembly source that assembles back to the
// same instructions.
func (p Program) String() string {
	var out bytes.Buffer
	for _, ins := range p {
		out.WriteString(ins.String())
		out.WriteByte('\n')
	}
	return out.String()
}

// Listing renders the program with instruction offsets, marking cur.
func (p Program) Listing(cur int) string {
	var out bytes.Buffer
	for i, ins := range p {
		marker := "  "
		if i == cur {
			marker = "> "
		}
		fmt.Fprintf(&out, "%s%04d %s\n", marker, i, ins)
	}
	return out.String()
}
