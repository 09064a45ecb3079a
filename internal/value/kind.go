package value

import "fmt"

type Kind uint8

const (
	KindNone Kind = iota
	KindInt8
	KindInt16
	KindInt32
	KindInt
	KindInt64
	KindInt128
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt
	KindUInt64
	KindUInt128
	KindFloat32
	KindFloat64
	KindChar
	KindString
	KindBool
	KindAddress
	KindPointer
	KindRegister
)

const KindCount = int(KindRegister) + 1

var kindNames = [KindCount]string{
	KindNone:     "none",
	KindInt8:     "i8",
	KindInt16:    "i16",
	KindInt32:    "i32",
	KindInt:      "isize",
	KindInt64:    "i64",
	KindInt128:   "i128",
	KindUInt8:    "u8",
	KindUInt16:   "u16",
	KindUInt32:   "u32",
	KindUInt:     "usize",
	KindUInt64:   "u64",
	KindUInt128:  "u128",
	KindFloat32:  "f32",
	KindFloat64:  "f64",
	KindChar:     "chr",
	KindString:   "str",
	KindBool:     "bool",
	KindAddress:  "addr",
	KindPointer:  "ptr",
	KindRegister: "reg",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, KindCount)
	for i, n := range kindNames {
		m[n] = Kind(i)
	}
	return m
}()

func (k Kind) String() string {
	if int(k) < KindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) Valid() bool { return int(k) < KindCount }

func ParseKind(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

func KindNames() []string {
	out := make([]string, KindCount)
	copy(out, kindNames[:])
	return out
}

func (k Kind) IsSigned() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt, KindInt64, KindInt128:
		return true
	}
	return false
}

func (k Kind) IsUnsigned() bool {
	switch k {
	case KindUInt8, KindUInt16, KindUInt32, KindUInt, KindUInt64, KindUInt128:
		return true
	}
	return false
}

func (k Kind) IsInteger() bool { return k.IsSigned() || k.IsUnsigned() }

func (k Kind) IsFloat() bool { return k == KindFloat32 || k == KindFloat64 }

func (k Kind) IsNumeric() bool { return k.IsInteger() || k.IsFloat() }

func (k Kind) IsWide() bool { return k == KindInt128 || k == KindUInt128 }

// Width is the payload size in bits for integer, float, and handle kinds.
func (k Kind) Width() uint {
	switch k {
	case KindInt8, KindUInt8, KindBool:
		return 8
	case KindInt16, KindUInt16:
		return 16
	case KindInt32, KindUInt32, KindFloat32, KindChar:
		return 32
	case KindInt, KindInt64, KindUInt, KindUInt64, KindFloat64, KindAddress, KindPointer:
		return 64
	case KindInt128, KindUInt128:
		return 128
	}
	return 0
}
