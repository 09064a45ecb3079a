package memory

import (
	"errors"
	"fmt"

	"allot/internal/value"
)

var (
	ErrRegister      = errors.New("invalid register")
	ErrStoreRegister = errors.New("register reference cannot be stored")
)

type Registers struct {
	slots [value.RegisterCount]value.Value
}

func NewRegisters() *Registers { return &Registers{} }

func checkRegister(r value.Register) error {
	if !r.Valid() {
		return fmt.Errorf("%w: %s", ErrRegister, r)
	}
	return nil
}

func (rs *Registers) Get(r value.Register) (value.Value, error) {
	if err := checkRegister(r); err != nil {
		return value.None(), err
	}
	return rs.slots[r], nil
}

func (rs *Registers) Set(r value.Register, v value.Value) error {
	if err := checkRegister(r); err != nil {
		return err
	}
	if v.Kind() == value.KindRegister {
		return fmt.Errorf("%w: %s into %s", ErrStoreRegister, v, r)
	}
	rs.slots[r] = v
	return nil
}

// Take moves the value out of r, leaving None behind.
func (rs *Registers) Take(r value.Register) (value.Value, error) {
	v, err := rs.Get(r)
	if err != nil {
		return v, err
	}
	rs.slots[r] = value.None()
	return v, nil
}

func (rs *Registers) Reset() {
	rs.slots = [value.RegisterCount]value.Value{}
}

// Snapshot copies every slot in register order.
func (rs *Registers) Snapshot() []value.Value {
	out := make([]value.Value, value.RegisterCount)
	copy(out, rs.slots[:])
	return out
}
