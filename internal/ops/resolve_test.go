package ops

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"allot/internal/value"
)

func mustBinary(t *testing.T, op BinaryOp, a, b value.Value) value.Value {
	t.Helper()
	got, err := Binary(op, a, b)
	if err != nil {
		t.Fatalf("%s %s %s: unexpected error: %v", a, op, b, err)
	}
	return got
}

func TestAddSubtractRoundTrip(t *testing.T) {
	huge, _ := new(big.Int).SetString("170141183460469231731687303715884105727", 10)
	pairs := [][2]value.Value{
		{value.Int8(100), value.Int8(100)},
		{value.Int16(-30000), value.Int16(-30000)},
		{value.Int32(7), value.Int32(-9)},
		{value.Int(math.MaxInt64), value.Int(1)},
		{value.Int64(-5), value.Int64(12)},
		{value.Int128(huge), value.Int128(big.NewInt(3))},
		{value.UInt8(250), value.UInt8(10)},
		{value.UInt16(1), value.UInt16(65535)},
		{value.UInt32(0), value.UInt32(1)},
		{value.UInt(50), value.UInt(75)},
		{value.UInt64(math.MaxUint64), value.UInt64(2)},
		{value.UInt128(big.NewInt(9)), value.UInt128(big.NewInt(11))},
		{value.Float64(1.5), value.Float64(0.25)},
		{value.Float32(2.5), value.Float32(0.5)},
	}
	for _, p := range pairs {
		sum := mustBinary(t, Add, p[0], p[1])
		back := mustBinary(t, Subtract, sum, p[1])
		if !value.Equal(back, p[0]) {
			t.Fatalf("(%s + %s) - %s = %s", p[0], p[1], p[1], back)
		}
	}
}

func TestBinaryRejectsMixedKinds(t *testing.T) {
	a, b := value.UInt(1), value.Int(1)
	for op := Add; op <= BitwiseXor; op++ {
		if _, err := Binary(op, a, b); !errors.Is(err, ErrType) {
			t.Fatalf("%s: expected type error, got %v", op, err)
		}
	}
	got := mustBinary(t, SameKind, a, b)
	if got.Bool() {
		t.Fatalf("usize <> isize should be false")
	}
	if got := mustBinary(t, SameKind, value.String("x"), value.String("y")); !got.Bool() {
		t.Fatalf("str <> str should be true")
	}
}

func TestIntegerWrapping(t *testing.T) {
	if got := mustBinary(t, Add, value.UInt8(255), value.UInt8(1)); got.Uint() != 0 {
		t.Fatalf("u8 overflow: got %s", got)
	}
	if got := mustBinary(t, Add, value.Int8(127), value.Int8(1)); got.Int() != -128 {
		t.Fatalf("i8 overflow: got %s", got)
	}
	if got := mustBinary(t, Divide, value.Int32(-7), value.Int32(2)); got.Int() != -3 {
		t.Fatalf("i32 division truncates: got %s", got)
	}
	if got := mustBinary(t, Modulus, value.Int32(-7), value.Int32(2)); got.Int() != -1 {
		t.Fatalf("i32 remainder keeps dividend sign: got %s", got)
	}
	_, hi := kindBounds(value.KindUInt128)
	if got := mustBinary(t, Add, value.UInt128(hi), value.UInt128(big.NewInt(1))); got.Big().Sign() != 0 {
		t.Fatalf("u128 overflow: got %s", got)
	}
}

func TestDivideByZero(t *testing.T) {
	cases := [][2]value.Value{
		{value.Int32(1), value.Int32(0)},
		{value.UInt(1), value.UInt(0)},
		{value.Int128(big.NewInt(1)), value.Int128(big.NewInt(0))},
		{value.Char('a'), value.Char(0)},
	}
	for _, c := range cases {
		if _, err := Binary(Divide, c[0], c[1]); !errors.Is(err, ErrDivideByZero) {
			t.Fatalf("%s / %s: expected divide by zero, got %v", c[0], c[1], err)
		}
		if _, err := Binary(Modulus, c[0], c[1]); !errors.Is(err, ErrDivideByZero) {
			t.Fatalf("%s %% %s: expected divide by zero, got %v", c[0], c[1], err)
		}
	}
	got := mustBinary(t, Divide, value.Float64(1), value.Float64(0))
	if !math.IsInf(got.Float(), 1) {
		t.Fatalf("float division by zero should be +inf, got %s", got)
	}
}

func TestComparisons(t *testing.T) {
	cases := []struct {
		op   BinaryOp
		a, b value.Value
		want bool
	}{
		{Less, value.Int8(-1), value.Int8(1), true},
		{Greater, value.UInt8(200), value.UInt8(100), true},
		{GreaterEqual, value.Char('b'), value.Char('a'), true},
		{LessEqual, value.String("abc"), value.String("abd"), true},
		{Equal, value.Bool(true), value.Bool(true), true},
		{NotEqual, value.None(), value.None(), false},
		{Equal, value.Float64(math.NaN()), value.Float64(math.NaN()), false},
		{Less, value.Int128(big.NewInt(-3)), value.Int128(big.NewInt(2)), true},
	}
	for _, c := range cases {
		got := mustBinary(t, c.op, c.a, c.b)
		if got.Kind() != value.KindBool || got.Bool() != c.want {
			t.Fatalf("%s %s %s = %s, want %v", c.a, c.op, c.b, got, c.want)
		}
	}
	if _, err := Binary(Less, value.Bool(false), value.Bool(true)); !errors.Is(err, ErrType) {
		t.Fatalf("bool ordering should be a type error, got %v", err)
	}
	if _, err := Binary(Equal, value.Pointer(1), value.Pointer(1)); !errors.Is(err, ErrType) {
		t.Fatalf("pointer comparison should be a type error, got %v", err)
	}
}

func TestLogicAndStrings(t *testing.T) {
	if got := mustBinary(t, LogicalXor, value.Bool(true), value.Bool(false)); !got.Bool() {
		t.Fatalf("true ^^ false should be true")
	}
	if got := mustBinary(t, Add, value.String("foo"), value.String("bar")); got.Str() != "foobar" {
		t.Fatalf("concat: got %q", got.Str())
	}
	if _, err := Binary(Subtract, value.String("a"), value.String("b")); !errors.Is(err, ErrType) {
		t.Fatalf("string subtraction should fail, got %v", err)
	}
	if _, err := Binary(LogicalAnd, value.Int32(1), value.Int32(1)); !errors.Is(err, ErrType) {
		t.Fatalf("integer && should fail, got %v", err)
	}
}

func TestShift(t *testing.T) {
	if got := mustBinary(t, ShiftLeft, value.UInt8(0x81), value.UInt(1)); got.Uint() != 0x02 {
		t.Fatalf("u8 << 1: got %s", got)
	}
	if got := mustBinary(t, ShiftRight, value.Int16(-8), value.UInt(2)); got.Int() != -2 {
		t.Fatalf("i16 >> keeps sign: got %s", got)
	}
	if got := mustBinary(t, ShiftLeft, value.UInt128(big.NewInt(1)), value.UInt(100)); got.Big().BitLen() != 101 {
		t.Fatalf("u128 << 100: got %s", got)
	}
	if _, err := Binary(ShiftLeft, value.UInt32(1), value.UInt(32)); !errors.Is(err, ErrShift) {
		t.Fatalf("shift by width should fail, got %v", err)
	}
	if _, err := Binary(ShiftLeft, value.UInt32(1), value.UInt32(1)); !errors.Is(err, ErrType) {
		t.Fatalf("shift amount must be usize, got %v", err)
	}
}

func TestUnary(t *testing.T) {
	got, err := Unary(Increment, value.Char('a'))
	if err != nil || got.Char() != 'b' {
		t.Fatalf("++ 'a': got %s, %v", got, err)
	}
	if _, err := Unary(Increment, value.Char(0xD7FF)); !errors.Is(err, ErrChar) {
		t.Fatalf("++ into surrogate range should fail, got %v", err)
	}
	got, err = Unary(Decrement, value.UInt8(0))
	if err != nil || got.Uint() != 255 {
		t.Fatalf("-- u8(0): got %s, %v", got, err)
	}
	got, err = Unary(BitwiseNot, value.Int32(0))
	if err != nil || got.Int() != -1 {
		t.Fatalf("~ i32(0): got %s, %v", got, err)
	}
	for _, v := range []value.Value{value.Float64(1), value.Float32(1), value.Char('a')} {
		if _, err := Unary(BitwiseNot, v); !errors.Is(err, ErrType) {
			t.Fatalf("~ %s should fail, got %v", v.Kind(), err)
		}
	}
	got, err = Unary(LogicalNot, value.Bool(false))
	if err != nil || !got.Bool() {
		t.Fatalf("! false: got %s, %v", got, err)
	}
	if _, err := Unary(LogicalNot, value.Int8(0)); !errors.Is(err, ErrType) {
		t.Fatalf("! i8 should fail, got %v", err)
	}
}

func TestApplyUsesEncodedOperation(t *testing.T) {
	got, err := Apply(Prim2(Multiply), value.Int64(6), value.Int64(7))
	if err != nil || got.Int() != 42 {
		t.Fatalf("6 * 7: got %s, %v", got, err)
	}
	got, err = Apply(Prim1(Increment), value.Int64(6), value.None())
	if err != nil || got.Int() != 7 {
		t.Fatalf("++ 6: got %s, %v", got, err)
	}
	if _, err := Apply(Operation(0x7f), value.None(), value.None()); !errors.Is(err, ErrOperation) {
		t.Fatalf("expected unknown operation, got %v", err)
	}
}

func TestParseOperation(t *testing.T) {
	for _, sym := range Symbols() {
		op, ok := ParseOperation(sym)
		if !ok || op.String() != sym {
			t.Fatalf("round trip %q: got %q, %v", sym, op, ok)
		}
	}
	if op, _ := ParseOperation("<>"); op != Prim2(SameKind) || uint8(op) != 0x80|19 {
		t.Fatalf("<> encodes as 0x%02x", uint8(op))
	}
}
