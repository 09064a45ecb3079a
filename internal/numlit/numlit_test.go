package numlit

import (
	"math"
	"testing"
)

func TestParseIntLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"50", "50"},
		{"-7", "-7"},
		{"+7", "7"},
		{"0xff", "255"},
		{"0b1010", "10"},
		{"0o17", "15"},
		{"1_000_000", "1000000"},
		{"340282366920938463463374607431768211455", "340282366920938463463374607431768211455"},
	}
	for _, tt := range tests {
		got, err := ParseIntLiteral(tt.in)
		if err != nil {
			t.Fatalf("ParseIntLiteral(%q) error: %v", tt.in, err)
		}
		if got.String() != tt.want {
			t.Fatalf("ParseIntLiteral(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseIntLiteralErrors(t *testing.T) {
	for _, in := range []string{"", "-", "1__0", "_1", "0x", "12a", "0b2"} {
		if _, err := ParseIntLiteral(in); err == nil {
			t.Fatalf("ParseIntLiteral(%q) expected error", in)
		}
	}
}

func TestParseFloatLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1.5", 1.5},
		{"-2.25", -2.25},
		{"3", 3},
		{"1e3", 1000},
		{"1_0.5e-1", 1.05},
		{"inf", math.Inf(1)},
		{"-inf", math.Inf(-1)},
	}
	for _, tt := range tests {
		got, err := ParseFloatLiteral(tt.in)
		if err != nil {
			t.Fatalf("ParseFloatLiteral(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseFloatLiteral(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	v, err := ParseFloatLiteral("NaN")
	if err != nil || !math.IsNaN(v) {
		t.Fatalf("ParseFloatLiteral(NaN) = %v, %v", v, err)
	}
	if _, err := ParseFloatLiteral("0x1.0"); err == nil {
		t.Fatalf("expected base prefix error")
	}
	if _, err := ParseFloatLiteral("1."); err == nil {
		t.Fatalf("expected digits error")
	}
}
