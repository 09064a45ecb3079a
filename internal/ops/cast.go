package ops

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"allot/internal/value"
)

func castError(v value.Value, to value.Kind) error {
	return fmt.Errorf("%w: %s to %s", ErrCast, v.Kind(), to)
}

// Cast converts v to kind to. Numeric conversions follow two's complement
// truncation between integers and saturate from floats.
func Cast(v value.Value, to value.Kind) (value.Value, error) {
	from := v.Kind()
	if from == to && to != value.KindRegister {
		return v, nil
	}
	if !to.Valid() {
		return value.None(), castError(v, to)
	}
	switch to {
	case value.KindNone, value.KindRegister, value.KindPointer:
		return value.None(), castError(v, to)
	case value.KindString:
		if from == value.KindRegister || from == value.KindPointer {
			return value.None(), castError(v, to)
		}
		return value.String(v.Inspect()), nil
	}

	switch {
	case from.IsInteger():
		return castInteger(v, to)
	case from.IsFloat():
		return castFloat(v, to)
	}
	switch from {
	case value.KindChar:
		if to.IsInteger() {
			return value.FromBits(to, uint64(uint32(v.Char()))), nil
		}
	case value.KindBool:
		if to.IsInteger() {
			return value.FromBits(to, v.Bits()), nil
		}
	case value.KindAddress:
		if to == value.KindUInt || to == value.KindUInt64 {
			return value.FromBits(to, v.Bits()), nil
		}
	case value.KindString:
		return parseString(v, to)
	}
	return value.None(), castError(v, to)
}

func castInteger(v value.Value, to value.Kind) (value.Value, error) {
	from := v.Kind()
	switch {
	case to.IsInteger():
		if from.IsWide() || to.IsWide() {
			return value.FromBig(to, v.Big()), nil
		}
		if from.IsSigned() {
			return value.FromInt64(to, v.Int()), nil
		}
		return value.FromBits(to, v.Bits()), nil
	case to == value.KindFloat32:
		switch {
		case from.IsWide():
			f, _ := new(big.Float).SetInt(v.Big()).Float32()
			return value.Float32(f), nil
		case from.IsSigned():
			return value.Float32(float32(v.Int())), nil
		}
		return value.Float32(float32(v.Uint())), nil
	case to == value.KindFloat64:
		switch {
		case from.IsWide():
			f, _ := new(big.Float).SetInt(v.Big()).Float64()
			return value.Float64(f), nil
		case from.IsSigned():
			return value.Float64(float64(v.Int())), nil
		}
		return value.Float64(float64(v.Uint())), nil
	case to == value.KindChar:
		x := v.Big()
		if !x.IsInt64() {
			return value.None(), fmt.Errorf("%w: code point %s", ErrChar, x)
		}
		return charFrom(x.Int64())
	case to == value.KindBool:
		return value.Bool(v.Big().Sign() != 0), nil
	case to == value.KindAddress:
		if from.IsUnsigned() && !from.IsWide() {
			return value.Address(int(v.Uint())), nil
		}
	}
	return value.None(), castError(v, to)
}

func castFloat(v value.Value, to value.Kind) (value.Value, error) {
	f := v.Float()
	switch {
	case to == value.KindFloat32:
		return value.Float32(v.Float32()), nil
	case to == value.KindFloat64:
		return value.Float64(f), nil
	case to.IsInteger():
		return saturate(f, to), nil
	}
	return value.None(), castError(v, to)
}

func kindBounds(k value.Kind) (lo, hi *big.Int) {
	w := k.Width()
	one := big.NewInt(1)
	if k.IsSigned() {
		hi = new(big.Int).Sub(new(big.Int).Lsh(one, w-1), one)
		lo = new(big.Int).Neg(new(big.Int).Lsh(one, w-1))
		return lo, hi
	}
	return new(big.Int), new(big.Int).Sub(new(big.Int).Lsh(one, w), one)
}

// saturate truncates f toward zero and clamps it into k. NaN becomes zero.
func saturate(f float64, k value.Kind) value.Value {
	lo, hi := kindBounds(k)
	switch {
	case math.IsNaN(f):
		return value.FromBits(k, 0)
	case math.IsInf(f, 1):
		return value.FromBig(k, hi)
	case math.IsInf(f, -1):
		return value.FromBig(k, lo)
	}
	x, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	if x.Cmp(hi) > 0 {
		x = hi
	} else if x.Cmp(lo) < 0 {
		x = lo
	}
	return value.FromBig(k, x)
}

func parseString(v value.Value, to value.Kind) (value.Value, error) {
	s := strings.TrimSpace(v.Str())
	fail := func(err error) (value.Value, error) {
		return value.None(), fmt.Errorf("%w: %q to %s: %v", ErrCast, v.Str(), to, err)
	}
	switch {
	case to.IsWide():
		x, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fail(strconv.ErrSyntax)
		}
		lo, hi := kindBounds(to)
		if x.Cmp(lo) < 0 || x.Cmp(hi) > 0 {
			return fail(strconv.ErrRange)
		}
		return value.FromBig(to, x), nil
	case to.IsSigned():
		n, err := strconv.ParseInt(s, 10, int(to.Width()))
		if err != nil {
			return fail(err)
		}
		return value.FromInt64(to, n), nil
	case to.IsUnsigned():
		n, err := strconv.ParseUint(s, 10, int(to.Width()))
		if err != nil {
			return fail(err)
		}
		return value.FromBits(to, n), nil
	case to == value.KindFloat32:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return fail(err)
		}
		return value.Float32(float32(f)), nil
	case to == value.KindFloat64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fail(err)
		}
		return value.Float64(f), nil
	case to == value.KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fail(err)
		}
		return value.Bool(b), nil
	case to == value.KindChar:
		raw := v.Str()
		r, size := utf8.DecodeRuneInString(raw)
		if raw == "" || size != len(raw) || (r == utf8.RuneError && size == 1) {
			return fail(strconv.ErrSyntax)
		}
		return value.Char(r), nil
	}
	return value.None(), castError(v, to)
}
