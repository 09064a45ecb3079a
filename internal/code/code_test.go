package code

import (
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"

	"allot/internal/ops"
	"allot/internal/value"
)

func sampleProgram() Program {
	return Program{
		Nop(),
		Binary(ops.Add, value.R1, value.R2),
		Unary(ops.Increment, value.R3),
		Mov(value.R1, value.UInt(50)),
		Mov(value.R2, value.Reg(value.R1)),
		Mov(value.R4, value.Int128(big.NewInt(-12345678901234))),
		Mov(value.R4, value.UInt128(new(big.Int).Lsh(big.NewInt(1), 100))),
		Mov(value.R5, value.Float32(1.25)),
		Mov(value.R6, value.Float64(-0.5)),
		Mov(value.R7, value.Char('é')),
		Mov(value.R8, value.String("hello \"world\"")),
		Mov(value.R9, value.Bool(true)),
		Mov(value.R10, value.Int8(-3)),
		Mov(value.R11, value.Int16(-300)),
		Mov(value.R12, value.UInt16(300)),
		Mov(value.R13, value.None()),
		Cpy(value.R2, value.R1),
		Cast(value.R1, value.KindFloat64),
		Lea(value.R3, 12),
		Jmp(value.RegNone, value.Address(4)),
		Jmp(value.R1, value.Reg(value.R3)),
		Ret(),
		Call("println"),
		Call("thread::sleep"),
		Exit(value.Int32(512)),
		Push(value.R1),
		PushCpy(value.R2),
		Pop(value.RegNone),
		Pop(value.R4),
		PopMany(value.UInt(2)),
		StackCpy(value.R1, value.UInt(0)),
		PushFrame(true),
		PopFrame(),
		TakeFrom(),
		GiveTo(),
		ThreadCreate(value.Address(0)),
		ThreadJoin(value.R5),
		Assert(value.R1, value.UInt(50)),
		Dbg(value.R29),
		Dump(DumpRegisters | DumpHeap),
	}
}

func TestBytecodeRoundTrip(t *testing.T) {
	prog := sampleProgram()
	data, err := Encode(prog)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != len(prog) {
		t.Fatalf("decoded %d instructions, want %d", len(got), len(prog))
	}
	for i := range prog {
		if got[i].String() != prog[i].String() {
			t.Fatalf("instruction %d: got %q, want %q", i, got[i], prog[i])
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	data, err := Encode(Program{Mov(value.R1, value.UInt(50)), Exit(value.Int32(512))})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{
		0, 0, 0, 0, 0, 0, 0, 0, // version
		byte(OpMov), 1, byte(value.KindUInt), 50, 0, 0, 0, 0, 0, 0, 0,
		byte(OpExit), byte(value.KindInt32), 0, 2, 0, 0,
	}
	if !reflect.DeepEqual(data, want) {
		t.Fatalf("layout mismatch:\n got %v\nwant %v", data, want)
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	data, _ := Encode(Program{Nop()})
	data[0] = 7
	prog, err := Decode(data)
	if !errors.Is(err, ErrVersion) {
		t.Fatalf("expected version error, got %v", err)
	}
	if prog != nil {
		t.Fatalf("nothing should be decoded after a bad version")
	}
}

func TestDecodeErrors(t *testing.T) {
	good, _ := Encode(Program{Call("println")})
	if _, err := Decode(good[:len(good)-2]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected truncation error, got %v", err)
	}
	if _, err := Decode([]byte{0, 0, 0}); !errors.Is(err, ErrTruncated) {
		t.Fatalf("short header: expected truncation error, got %v", err)
	}
	bad := append(append([]byte{}, good[:8]...), 77)
	if _, err := Decode(bad); !errors.Is(err, ErrOpcode) {
		t.Fatalf("expected opcode error, got %v", err)
	}
	reg := append(append([]byte{}, good[:8]...), byte(OpPush), 30)
	if _, err := Decode(reg); !errors.Is(err, ErrOperand) {
		t.Fatalf("register 30 should be rejected, got %v", err)
	}
	if _, err := Encode(Program{Mov(value.R1, value.String("\xff"))}); !errors.Is(err, ErrOperand) {
		t.Fatalf("encoding invalid utf-8 should fail, got %v", err)
	}
	none := append(append([]byte{}, good[:8]...), byte(OpPop), 255)
	if _, err := Decode(none); err != nil {
		t.Fatalf("optional register accepts 255: %v", err)
	}
}

func TestDisassembly(t *testing.T) {
	cases := []struct {
		ins  Instruction
		want string
	}{
		{Binary(ops.Add, value.R1, value.R2), "op + r1 r2"},
		{Unary(ops.LogicalNot, value.R0), "op ! r0 _"},
		{Mov(value.R1, value.UInt(50)), "mov r1 usize(50)"},
		{Jmp(value.RegNone, value.Address(3)), "jmp _ addr(3)"},
		{Call("string::trim"), "call string::trim"},
		{Call("odd name"), `call "odd name"`},
		{PushFrame(false), "pushframe false"},
		{Ret(), "ret"},
	}
	for _, c := range cases {
		if got := c.ins.String(); got != c.want {
			t.Fatalf("got %q, want %q", got, c.want)
		}
	}
	listing := Program{Nop(), Ret()}.Listing(1)
	if !strings.Contains(listing, "> 0001 ret") {
		t.Fatalf("listing should mark the current instruction:\n%s", listing)
	}
}

func TestMnemonicLookup(t *testing.T) {
	for _, op := range Opcodes() {
		name := op.String()
		back, ok := LookupMnemonic(name)
		if !ok || back != op {
			t.Fatalf("mnemonic %q maps to %d", name, back)
		}
	}
	if len(Mnemonics()) != 24 {
		t.Fatalf("expected 24 mnemonics, got %d", len(Mnemonics()))
	}
}
