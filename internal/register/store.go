// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package register

import (
	"encoding/binary"
	"fmt"
)

// Table identifies one of the four Modbus data tables.
type Table int

const (
	TableCoils Table = iota
	TableDiscreteInputs
	TableHoldingRegisters
	TableInputRegisters
)

func (t Table) String() string {
	switch t {
	case TableCoils:
		return "coils"
	case TableDiscreteInputs:
		return "discrete_inputs"
	case TableHoldingRegisters:
		return "holding_registers"
	case TableInputRegisters:
		return "input_registers"
	}
	return fmt.Sprintf("table(%d)", int(t))
}

// Sizes are the capacities of the four tables, in words.
type Sizes struct {
	Coils            int `mapstructure:"coils"`
	DiscreteInputs   int `mapstructure:"discrete_inputs"`
	HoldingRegisters int `mapstructure:"holding_registers"`
	InputRegisters   int `mapstructure:"input_registers"`
}

// Validate checks that every table fits the 16-bit address space.
func (s Sizes) Validate() error {
	for _, t := range []Table{TableCoils, TableDiscreteInputs, TableHoldingRegisters, TableInputRegisters} {
		n := s.Of(t)
		if n < 0 || n > MaxSize {
			return fmt.Errorf("register: %s size %d out of range [0, %d]", t, n, MaxSize)
		}
	}
	return nil
}

// Of returns the size of table t.
func (s Sizes) Of(t Table) int {
	switch t {
	case TableCoils:
		return s.Coils
	case TableDiscreteInputs:
		return s.DiscreteInputs
	case TableHoldingRegisters:
		return s.HoldingRegisters
	case TableInputRegisters:
		return s.InputRegisters
	}
	return 0
}

// MaxSize is the largest table the 16-bit address space can reach.
const MaxSize = 65536

// Store holds the slave's data tables. Bits are modeled as whole words.
// The slices keep their length for the lifetime of the store; the
// application may read and write them directly between polls.
type Store struct {
	// 0x Coils (Read/Write).
	Coils []uint16
	// 1x Discrete Inputs (Read Only).
	DiscreteInputs []uint16
	// 4x Holding Registers (Read/Write).
	HoldingRegisters []uint16
	// 3x Input Registers (Read Only).
	InputRegisters []uint16
}

// NewStore creates a zeroed store with the given table sizes.
func NewStore(sizes Sizes) *Store {
	return &Store{
		Coils:            make([]uint16, sizes.Coils),
		DiscreteInputs:   make([]uint16, sizes.DiscreteInputs),
		HoldingRegisters: make([]uint16, sizes.HoldingRegisters),
		InputRegisters:   make([]uint16, sizes.InputRegisters),
	}
}

// Sizes reports the capacities of the store.
func (s *Store) Sizes() Sizes {
	return Sizes{
		Coils:            len(s.Coils),
		DiscreteInputs:   len(s.DiscreteInputs),
		HoldingRegisters: len(s.HoldingRegisters),
		InputRegisters:   len(s.InputRegisters),
	}
}

// Table returns the words of table t.
func (s *Store) Table(t Table) []uint16 {
	switch t {
	case TableCoils:
		return s.Coils
	case TableDiscreteInputs:
		return s.DiscreteInputs
	case TableHoldingRegisters:
		return s.HoldingRegisters
	case TableInputRegisters:
		return s.InputRegisters
	}
	return nil
}

// ReadHoldingRegisters returns a range of holding registers as BigEndian bytes.
func (s *Store) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	if err := validateRange(len(s.HoldingRegisters), address, quantity); err != nil {
		return nil, err
	}

	result := make([]byte, int(quantity)*2)
	for i := 0; i < int(quantity); i++ {
		binary.BigEndian.PutUint16(result[i*2:], s.HoldingRegisters[int(address)+i])
	}
	return result, nil
}

// WriteHoldingRegisters writes a range of holding registers from BigEndian bytes.
func (s *Store) WriteHoldingRegisters(address, quantity uint16, data []byte) error {
	if err := validateRange(len(s.HoldingRegisters), address, quantity); err != nil {
		return err
	}
	if len(data) < int(quantity)*2 {
		return fmt.Errorf("register: insufficient data length %d for %d registers", len(data), quantity)
	}

	for i := 0; i < int(quantity); i++ {
		s.HoldingRegisters[int(address)+i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return nil
}

func validateRange(size int, address, quantity uint16) error {
	if int(address) >= size {
		return fmt.Errorf("register: address %d out of bounds (size %d)", address, size)
	}
	if int(address)+int(quantity) > size {
		return fmt.Errorf("register: range %d+%d out of bounds (size %d)", address, quantity, size)
	}
	return nil
}
