package ops

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"allot/internal/value"
)

var (
	ErrType         = errors.New("type mismatch")
	ErrDivideByZero = errors.New("division by zero")
	ErrShift        = errors.New("shift amount out of range")
	ErrChar         = errors.New("invalid char")
	ErrCast         = errors.New("invalid cast")
	ErrOperation    = errors.New("unknown operation")
)

func unaryTypeError(op UnaryOp, v value.Value) error {
	return fmt.Errorf("%w: %s %s", ErrType, op, v.Kind())
}

func binaryTypeError(op BinaryOp, a, b value.Value) error {
	return fmt.Errorf("%w: %s %s %s", ErrType, a.Kind(), op, b.Kind())
}

// Apply resolves op against dst and, for binary operators, src.
func Apply(op Operation, dst, src value.Value) (value.Value, error) {
	if !op.Valid() {
		return value.None(), fmt.Errorf("%w: %s", ErrOperation, op)
	}
	if op.IsBinary() {
		return Binary(op.Binary(), dst, src)
	}
	return Unary(op.Unary(), dst)
}

func Unary(op UnaryOp, v value.Value) (value.Value, error) {
	k := v.Kind()
	switch op {
	case Increment, Decrement:
		delta := int64(1)
		if op == Decrement {
			delta = -1
		}
		switch {
		case k.IsWide():
			return value.FromBig(k, new(big.Int).Add(v.Big(), big.NewInt(delta))), nil
		case k.IsInteger():
			return value.FromBits(k, v.Bits()+uint64(delta)), nil
		case k == value.KindFloat32:
			return value.Float32(v.Float32() + float32(delta)), nil
		case k == value.KindFloat64:
			return value.Float64(v.Float() + float64(delta)), nil
		case k == value.KindChar:
			return charFrom(int64(v.Char()) + delta)
		}
	case LogicalNot:
		if k == value.KindBool {
			return value.Bool(!v.Bool()), nil
		}
	case BitwiseNot:
		switch {
		case k.IsWide():
			return value.FromBig(k, new(big.Int).Not(v.Big())), nil
		case k.IsInteger():
			return value.FromBits(k, ^v.Bits()), nil
		}
	default:
		return value.None(), fmt.Errorf("%w: unary %d", ErrOperation, op)
	}
	return value.None(), unaryTypeError(op, v)
}

func charFrom(cp int64) (value.Value, error) {
	if cp < 0 || cp > utf8.MaxRune || !utf8.ValidRune(rune(cp)) {
		return value.None(), fmt.Errorf("%w: code point %d", ErrChar, cp)
	}
	return value.Char(rune(cp)), nil
}

func Binary(op BinaryOp, a, b value.Value) (value.Value, error) {
	switch op {
	case SameKind:
		return value.Bool(a.Kind() == b.Kind()), nil
	case ShiftLeft, ShiftRight:
		return shift(op, a, b)
	}
	if int(op) >= len(binarySymbols) {
		return value.None(), fmt.Errorf("%w: binary %d", ErrOperation, op)
	}
	if a.Kind() != b.Kind() {
		return value.None(), binaryTypeError(op, a, b)
	}
	k := a.Kind()
	switch {
	case k.IsWide():
		return wideBinary(op, a, b)
	case k.IsInteger():
		return intBinary(op, a, b)
	case k.IsFloat():
		return floatBinary(op, a, b)
	}
	switch k {
	case value.KindChar:
		return charBinary(op, a, b)
	case value.KindString:
		return stringBinary(op, a, b)
	case value.KindBool:
		switch op {
		case LogicalAnd:
			return value.Bool(a.Bool() && b.Bool()), nil
		case LogicalOr:
			return value.Bool(a.Bool() || b.Bool()), nil
		case LogicalXor, NotEqual:
			return value.Bool(a.Bool() != b.Bool()), nil
		case Equal:
			return value.Bool(a.Bool() == b.Bool()), nil
		}
	case value.KindNone:
		switch op {
		case Equal:
			return value.Bool(true), nil
		case NotEqual:
			return value.Bool(false), nil
		}
	}
	return value.None(), binaryTypeError(op, a, b)
}

func compare(op BinaryOp, c int) (value.Value, bool) {
	switch op {
	case Equal:
		return value.Bool(c == 0), true
	case NotEqual:
		return value.Bool(c != 0), true
	case Greater:
		return value.Bool(c > 0), true
	case Less:
		return value.Bool(c < 0), true
	case GreaterEqual:
		return value.Bool(c >= 0), true
	case LessEqual:
		return value.Bool(c <= 0), true
	}
	return value.None(), false
}

func cmpOrdered[T int64 | uint64 | float64 | string](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func intBinary(op BinaryOp, a, b value.Value) (value.Value, error) {
	k := a.Kind()
	signed := k.IsSigned()
	x, y := a.Bits(), b.Bits()
	switch op {
	case Add:
		return value.FromBits(k, x+y), nil
	case Subtract:
		return value.FromBits(k, x-y), nil
	case Multiply:
		return value.FromBits(k, x*y), nil
	case Divide, Modulus:
		if y == 0 {
			return value.None(), fmt.Errorf("%w: %s %s", ErrDivideByZero, a, op)
		}
		if signed {
			sx, sy := a.Int(), b.Int()
			if op == Divide {
				return value.FromInt64(k, sx/sy), nil
			}
			return value.FromInt64(k, sx%sy), nil
		}
		if op == Divide {
			return value.FromBits(k, x/y), nil
		}
		return value.FromBits(k, x%y), nil
	case BitwiseAnd:
		return value.FromBits(k, x&y), nil
	case BitwiseOr:
		return value.FromBits(k, x|y), nil
	case BitwiseXor:
		return value.FromBits(k, x^y), nil
	}
	c := cmpOrdered(x, y)
	if signed {
		c = cmpOrdered(a.Int(), b.Int())
	}
	if r, ok := compare(op, c); ok {
		return r, nil
	}
	return value.None(), binaryTypeError(op, a, b)
}

func wideBinary(op BinaryOp, a, b value.Value) (value.Value, error) {
	k := a.Kind()
	x, y := a.Big(), b.Big()
	r := new(big.Int)
	switch op {
	case Add:
		r.Add(x, y)
	case Subtract:
		r.Sub(x, y)
	case Multiply:
		r.Mul(x, y)
	case Divide, Modulus:
		if y.Sign() == 0 {
			return value.None(), fmt.Errorf("%w: %s %s", ErrDivideByZero, a, op)
		}
		if op == Divide {
			r.Quo(x, y)
		} else {
			r.Rem(x, y)
		}
	case BitwiseAnd:
		r.And(x, y)
	case BitwiseOr:
		r.Or(x, y)
	case BitwiseXor:
		r.Xor(x, y)
	default:
		if res, ok := compare(op, x.Cmp(y)); ok {
			return res, nil
		}
		return value.None(), binaryTypeError(op, a, b)
	}
	return value.FromBig(k, r), nil
}

func floatBinary(op BinaryOp, a, b value.Value) (value.Value, error) {
	if a.Kind() == value.KindFloat32 {
		x, y := a.Float32(), b.Float32()
		switch op {
		case Add:
			return value.Float32(x + y), nil
		case Subtract:
			return value.Float32(x - y), nil
		case Multiply:
			return value.Float32(x * y), nil
		case Divide:
			return value.Float32(x / y), nil
		case Modulus:
			return value.Float32(float32(math.Mod(float64(x), float64(y)))), nil
		}
	} else {
		x, y := a.Float(), b.Float()
		switch op {
		case Add:
			return value.Float64(x + y), nil
		case Subtract:
			return value.Float64(x - y), nil
		case Multiply:
			return value.Float64(x * y), nil
		case Divide:
			return value.Float64(x / y), nil
		case Modulus:
			return value.Float64(math.Mod(x, y)), nil
		}
	}
	x, y := a.Float(), b.Float()
	if math.IsNaN(x) || math.IsNaN(y) {
		// Every ordered comparison with NaN is false.
		switch op {
		case Equal, Greater, Less, GreaterEqual, LessEqual:
			return value.Bool(false), nil
		case NotEqual:
			return value.Bool(true), nil
		}
		return value.None(), binaryTypeError(op, a, b)
	}
	if r, ok := compare(op, cmpOrdered(x, y)); ok {
		return r, nil
	}
	return value.None(), binaryTypeError(op, a, b)
}

func charBinary(op BinaryOp, a, b value.Value) (value.Value, error) {
	x, y := int64(a.Char()), int64(b.Char())
	switch op {
	case Add:
		return charFrom(x + y)
	case Subtract:
		return charFrom(x - y)
	case Multiply:
		return charFrom(x * y)
	case Divide, Modulus:
		if y == 0 {
			return value.None(), fmt.Errorf("%w: %s %s", ErrDivideByZero, a, op)
		}
		if op == Divide {
			return charFrom(x / y)
		}
		return charFrom(x % y)
	}
	if r, ok := compare(op, cmpOrdered(x, y)); ok {
		return r, nil
	}
	return value.None(), binaryTypeError(op, a, b)
}

func stringBinary(op BinaryOp, a, b value.Value) (value.Value, error) {
	if op == Add {
		return value.String(a.Str() + b.Str()), nil
	}
	if r, ok := compare(op, strings.Compare(a.Str(), b.Str())); ok {
		return r, nil
	}
	return value.None(), binaryTypeError(op, a, b)
}

// shift takes any integer on the left and a usize amount on the right.
func shift(op BinaryOp, a, b value.Value) (value.Value, error) {
	k := a.Kind()
	if !k.IsInteger() || b.Kind() != value.KindUInt {
		return value.None(), binaryTypeError(op, a, b)
	}
	n := b.Uint()
	if n >= uint64(k.Width()) {
		return value.None(), fmt.Errorf("%w: %d for %s", ErrShift, n, k)
	}
	if k.IsWide() {
		r := new(big.Int)
		if op == ShiftLeft {
			r.Lsh(a.Big(), uint(n))
		} else {
			r.Rsh(a.Big(), uint(n))
		}
		return value.FromBig(k, r), nil
	}
	if op == ShiftLeft {
		return value.FromBits(k, a.Bits()<<n), nil
	}
	if k.IsSigned() {
		return value.FromInt64(k, a.Int()>>n), nil
	}
	return value.FromBits(k, a.Bits()>>n), nil
}
