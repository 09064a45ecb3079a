package code

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"

	"allot/internal/ops"
	"allot/internal/value"
)

const BytecodeVersion uint64 = 0

var (
	ErrVersion   = errors.New("unsupported bytecode version")
	ErrTruncated = errors.New("truncated bytecode")
	ErrOpcode    = errors.New("unknown opcode")
	ErrOperand   = errors.New("malformed operand")
)

func Encode(prog Program) ([]byte, error) {
	out := binary.LittleEndian.AppendUint64(nil, BytecodeVersion)
	for i, ins := range prog {
		def, ok := Lookup(ins.Op)
		if !ok {
			return nil, fmt.Errorf("instruction %d: %w %d", i, ErrOpcode, ins.Op)
		}
		out = append(out, byte(ins.Op))
		regs := [2]value.Register{ins.A, ins.B}
		ri := 0
		for _, operand := range def.Operands {
			switch operand {
			case OperandOp:
				out = append(out, byte(ins.Oper))
			case OperandReg, OperandOptReg:
				out = append(out, byte(regs[ri]))
				ri++
			case OperandValue:
				var err error
				out, err = appendValue(out, ins.Val)
				if err != nil {
					return nil, fmt.Errorf("instruction %d: %w", i, err)
				}
			case OperandKind:
				out = append(out, byte(ins.Kind))
			case OperandOffset:
				out = binary.LittleEndian.AppendUint64(out, ins.Offset)
			case OperandName:
				out = appendString(out, ins.Name)
			case OperandFlag:
				out = append(out, boolByte(ins.Flag))
			case OperandBits:
				out = append(out, ins.Bits)
			}
		}
	}
	return out, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func appendString(out []byte, s string) []byte {
	out = binary.LittleEndian.AppendUint64(out, uint64(len(s)))
	return append(out, s...)
}

func appendValue(out []byte, v value.Value) ([]byte, error) {
	k := v.Kind()
	out = append(out, byte(k))
	switch k {
	case value.KindNone:
	case value.KindInt8, value.KindUInt8, value.KindBool:
		out = append(out, byte(v.Bits()))
	case value.KindInt16, value.KindUInt16:
		out = binary.LittleEndian.AppendUint16(out, uint16(v.Bits()))
	case value.KindInt32, value.KindUInt32, value.KindFloat32, value.KindChar:
		out = binary.LittleEndian.AppendUint32(out, uint32(v.Bits()))
	case value.KindInt, value.KindInt64, value.KindUInt, value.KindUInt64,
		value.KindFloat64, value.KindAddress, value.KindPointer:
		out = binary.LittleEndian.AppendUint64(out, v.Bits())
	case value.KindInt128, value.KindUInt128:
		out = append(out, wideBytes(v.Big())...)
	case value.KindString:
		if !utf8.ValidString(v.Str()) {
			return nil, fmt.Errorf("%w: invalid utf-8 string %q", ErrOperand, v.Str())
		}
		out = appendString(out, v.Str())
	case value.KindRegister:
		out = append(out, byte(v.Register()))
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrOperand, k)
	}
	return out, nil
}

// wideBytes encodes x as 16 little-endian two's complement bytes.
func wideBytes(x *big.Int) []byte {
	m := new(big.Int).Mod(x, new(big.Int).Lsh(big.NewInt(1), 128))
	be := m.FillBytes(make([]byte, 16))
	le := make([]byte, 16)
	for i := range be {
		le[i] = be[15-i]
	}
	return le
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w at byte %d", ErrTruncated, r.pos)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u64()
	if err != nil {
		return "", err
	}
	if n > uint64(len(r.buf)-r.pos) {
		return "", fmt.Errorf("%w: string of %d bytes at byte %d", ErrTruncated, n, r.pos)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid utf-8 at byte %d", ErrOperand, r.pos-len(b))
	}
	return string(b), nil
}

func (r *reader) register(optional bool) (value.Register, error) {
	b, err := r.u8()
	if err != nil {
		return 0, err
	}
	reg := value.Register(b)
	if reg.Valid() || (optional && reg == value.RegNone) {
		return reg, nil
	}
	return 0, fmt.Errorf("%w: register %d at byte %d", ErrOperand, b, r.pos-1)
}

func (r *reader) kind() (value.Kind, error) {
	b, err := r.u8()
	if err != nil {
		return 0, err
	}
	k := value.Kind(b)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: kind %d at byte %d", ErrOperand, b, r.pos-1)
	}
	return k, nil
}

func (r *reader) value() (value.Value, error) {
	k, err := r.kind()
	if err != nil {
		return value.None(), err
	}
	switch k {
	case value.KindNone:
		return value.None(), nil
	case value.KindInt8, value.KindUInt8:
		b, err := r.u8()
		return value.FromBits(k, uint64(b)), err
	case value.KindBool:
		b, err := r.u8()
		return value.Bool(b != 0), err
	case value.KindInt16, value.KindUInt16:
		n, err := r.u16()
		return value.FromBits(k, uint64(n)), err
	case value.KindInt32, value.KindUInt32:
		n, err := r.u32()
		return value.FromBits(k, uint64(n)), err
	case value.KindFloat32:
		n, err := r.u32()
		return value.Float32(math.Float32frombits(n)), err
	case value.KindChar:
		n, err := r.u32()
		if err != nil {
			return value.None(), err
		}
		if !utf8.ValidRune(rune(n)) {
			return value.None(), fmt.Errorf("%w: char %#x", ErrOperand, n)
		}
		return value.Char(rune(n)), nil
	case value.KindInt, value.KindInt64, value.KindUInt, value.KindUInt64:
		n, err := r.u64()
		return value.FromBits(k, n), err
	case value.KindFloat64:
		n, err := r.u64()
		return value.Float64(math.Float64frombits(n)), err
	case value.KindAddress:
		n, err := r.u64()
		return value.Address(int(n)), err
	case value.KindPointer:
		n, err := r.u64()
		return value.Pointer(n), err
	case value.KindInt128, value.KindUInt128:
		b, err := r.take(16)
		if err != nil {
			return value.None(), err
		}
		be := make([]byte, 16)
		for i := range b {
			be[i] = b[15-i]
		}
		return value.FromBig(k, new(big.Int).SetBytes(be)), nil
	case value.KindString:
		s, err := r.str()
		return value.String(s), err
	case value.KindRegister:
		reg, err := r.register(false)
		return value.Reg(reg), err
	}
	return value.None(), fmt.Errorf("%w: kind %d", ErrOperand, k)
}

// Decode parses a bytecode image. An unknown version stops decoding before
// any instruction is read.
func Decode(data []byte) (Program, error) {
	r := &reader{buf: data}
	version, err := r.u64()
	if err != nil {
		return nil, err
	}
	if version != BytecodeVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	var prog Program
	for r.pos < len(r.buf) {
		at := r.pos
		b, _ := r.u8()
		op := Opcode(b)
		def, ok := Lookup(op)
		if !ok {
			return nil, fmt.Errorf("%w %d at byte %d", ErrOpcode, b, at)
		}
		ins := Instruction{Op: op, A: value.RegNone, B: value.RegNone}
		regs := []*value.Register{&ins.A, &ins.B}
		ri := 0
		for _, operand := range def.Operands {
			var err error
			switch operand {
			case OperandOp:
				var o byte
				o, err = r.u8()
				ins.Oper = ops.Operation(o)
				if err == nil && !ins.Oper.Valid() {
					err = fmt.Errorf("%w: operation %#x", ErrOperand, o)
				}
			case OperandReg, OperandOptReg:
				*regs[ri], err = r.register(operand == OperandOptReg)
				ri++
			case OperandValue:
				ins.Val, err = r.value()
			case OperandKind:
				ins.Kind, err = r.kind()
			case OperandOffset:
				ins.Offset, err = r.u64()
			case OperandName:
				ins.Name, err = r.str()
			case OperandFlag:
				var f byte
				f, err = r.u8()
				ins.Flag = f != 0
			case OperandBits:
				ins.Bits, err = r.u8()
			}
			if err != nil {
				return nil, fmt.Errorf("%s at byte %d: %w", op, at, err)
			}
		}
		prog = append(prog, ins)
	}
	return prog, nil
}
