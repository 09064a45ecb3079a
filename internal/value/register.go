package value

import (
	"fmt"
	"strconv"
	"strings"
)

type Register uint8

const (
	RegisterCount          = 30
	RegNone       Register = 255
)

const (
	R0 Register = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	R16
	R17
	R18
	R19
	R20
	R21
	R22
	R23
	R24
	R25
	R26
	R27
	R28
	R29
)

func (r Register) Valid() bool { return int(r) < RegisterCount }

func (r Register) String() string {
	if r == RegNone {
		return "_"
	}
	return fmt.Sprintf("R%d", uint8(r))
}

// ParseRegister accepts r0..r29 in either case and "_" for RegNone.
func ParseRegister(s string) (Register, bool) {
	if s == "_" {
		return RegNone, true
	}
	if len(s) < 2 || (s[0] != 'r' && s[0] != 'R') {
		return 0, false
	}
	if strings.HasPrefix(s[1:], "+") || strings.HasPrefix(s[1:], "-") {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 || n >= RegisterCount {
		return 0, false
	}
	return Register(n), true
}
