package value

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Value is immutable; copying a Value clones it. The big.Int behind the
// 128-bit kinds is never modified after construction.
type Value struct {
	kind Kind
	bits uint64
	wide *big.Int
	str  string
}

var (
	two64  = new(big.Int).Lsh(big.NewInt(1), 64)
	two127 = new(big.Int).Lsh(big.NewInt(1), 127)
	two128 = new(big.Int).Lsh(big.NewInt(1), 128)
)

func None() Value { return Value{} }

func Int8(v int8) Value   { return Value{kind: KindInt8, bits: uint64(uint8(v))} }
func Int16(v int16) Value { return Value{kind: KindInt16, bits: uint64(uint16(v))} }
func Int32(v int32) Value { return Value{kind: KindInt32, bits: uint64(uint32(v))} }
func Int(v int64) Value   { return Value{kind: KindInt, bits: uint64(v)} }
func Int64(v int64) Value { return Value{kind: KindInt64, bits: uint64(v)} }

func UInt8(v uint8) Value   { return Value{kind: KindUInt8, bits: uint64(v)} }
func UInt16(v uint16) Value { return Value{kind: KindUInt16, bits: uint64(v)} }
func UInt32(v uint32) Value { return Value{kind: KindUInt32, bits: uint64(v)} }
func UInt(v uint64) Value   { return Value{kind: KindUInt, bits: v} }
func UInt64(v uint64) Value { return Value{kind: KindUInt64, bits: v} }

func Int128(v *big.Int) Value  { return FromBig(KindInt128, v) }
func UInt128(v *big.Int) Value { return FromBig(KindUInt128, v) }

func Float32(v float32) Value { return Value{kind: KindFloat32, bits: uint64(math.Float32bits(v))} }
func Float64(v float64) Value { return Value{kind: KindFloat64, bits: math.Float64bits(v)} }

func Char(r rune) Value { return Value{kind: KindChar, bits: uint64(uint32(r))} }

func String(s string) Value { return Value{kind: KindString, str: s} }

func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, bits: 1}
	}
	return Value{kind: KindBool}
}

func Address(offset int) Value    { return Value{kind: KindAddress, bits: uint64(offset)} }
func Pointer(handle uint64) Value { return Value{kind: KindPointer, bits: handle} }
func Reg(r Register) Value        { return Value{kind: KindRegister, bits: uint64(r)} }

// FromBits builds an integer value of kind k from a two's complement bit
// pattern, truncating to the kind's width.
func FromBits(k Kind, bits uint64) Value {
	switch k {
	case KindInt128, KindUInt128:
		return FromBig(k, new(big.Int).SetUint64(bits))
	case KindAddress, KindPointer:
		return Value{kind: k, bits: bits}
	}
	w := k.Width()
	if w < 64 {
		bits &= (uint64(1) << w) - 1
	}
	return Value{kind: k, bits: bits}
}

// FromInt64 is FromBits for a signed source, sign-extending into 128-bit kinds.
func FromInt64(k Kind, v int64) Value {
	if k.IsWide() {
		return FromBig(k, big.NewInt(v))
	}
	return FromBits(k, uint64(v))
}

// FromBig wraps v modulo 2^width into integer kind k.
func FromBig(k Kind, v *big.Int) Value {
	if !k.IsWide() {
		m := new(big.Int).Mod(v, two64)
		return FromBits(k, m.Uint64())
	}
	m := new(big.Int).Mod(v, two128)
	if k == KindInt128 && m.Cmp(two127) >= 0 {
		m.Sub(m, two128)
	}
	return Value{kind: k, wide: m}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNone() bool { return v.kind == KindNone }

// Bits returns the raw payload: the integer bit pattern truncated to width,
// float bits, code point, bool, address, handle, or register index.
func (v Value) Bits() uint64 {
	if v.wide != nil {
		return new(big.Int).Mod(v.wide, two64).Uint64()
	}
	return v.bits
}

// Int returns the payload of a 64-bit-or-narrower integer, sign-extended for
// signed kinds.
func (v Value) Int() int64 {
	if v.wide != nil {
		return v.Big().Int64()
	}
	if v.kind.IsSigned() {
		w := v.kind.Width()
		if w < 64 {
			shift := 64 - w
			return int64(v.bits<<shift) >> shift
		}
	}
	return int64(v.bits)
}

func (v Value) Uint() uint64 { return v.Bits() }

// Big returns a fresh copy of the integer payload.
func (v Value) Big() *big.Int {
	if v.wide != nil {
		return new(big.Int).Set(v.wide)
	}
	if v.kind.IsSigned() {
		return big.NewInt(v.Int())
	}
	return new(big.Int).SetUint64(v.bits)
}

func (v Value) Float() float64 {
	if v.kind == KindFloat32 {
		return float64(math.Float32frombits(uint32(v.bits)))
	}
	return math.Float64frombits(v.bits)
}

func (v Value) Float32() float32 {
	if v.kind == KindFloat32 {
		return math.Float32frombits(uint32(v.bits))
	}
	return float32(math.Float64frombits(v.bits))
}

func (v Value) Char() rune         { return rune(uint32(v.bits)) }
func (v Value) Str() string        { return v.str }
func (v Value) Bool() bool         { return v.bits != 0 }
func (v Value) Address() int       { return int(v.bits) }
func (v Value) Pointer() uint64    { return v.bits }
func (v Value) Register() Register { return Register(v.bits) }

func (v Value) Inspect() string {
	switch v.kind {
	case KindNone:
		return ""
	case KindInt128, KindUInt128:
		return v.wide.String()
	case KindFloat32:
		return formatFloat(v.Float(), 32)
	case KindFloat64:
		return formatFloat(v.Float(), 64)
	case KindChar:
		return string(v.Char())
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindAddress, KindPointer:
		return strings.ToUpper(strconv.FormatUint(v.bits, 16))
	case KindRegister:
		return v.Register().String()
	}
	if v.kind.IsSigned() {
		return strconv.FormatInt(v.Int(), 10)
	}
	return strconv.FormatUint(v.bits, 10)
}

// String renders the value in assembly literal form, e.g. u32(7).
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "none()"
	case KindRegister:
		return strings.ToLower(v.Register().String())
	case KindString:
		return "str(" + strconv.Quote(v.str) + ")"
	case KindChar:
		return "chr(" + strconv.QuoteRune(v.Char()) + ")"
	case KindAddress, KindPointer:
		return v.kind.String() + "(" + strconv.FormatUint(v.bits, 10) + ")"
	}
	return v.kind.String() + "(" + v.Inspect() + ")"
}

func formatFloat(f float64, size int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, size)
}

// Equal compares kind and payload. Floats follow IEEE equality.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNone:
		return true
	case KindInt128, KindUInt128:
		return a.wide.Cmp(b.wide) == 0
	case KindFloat32, KindFloat64:
		return a.Float() == b.Float()
	case KindString:
		return a.str == b.str
	}
	return a.bits == b.bits
}
