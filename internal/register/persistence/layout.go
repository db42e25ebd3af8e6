// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"unsafe"

	"github.com/ffutop/modbus-slave/internal/register"
)

// Tables are laid out back to back in this order, two bytes per word.
var layoutOrder = []register.Table{
	register.TableCoils,
	register.TableDiscreteInputs,
	register.TableHoldingRegisters,
	register.TableInputRegisters,
}

// layoutSize is the number of bytes needed for a store of the given sizes.
func layoutSize(sizes register.Sizes) int {
	total := 0
	for _, t := range layoutOrder {
		total += sizes.Of(t) * 2
	}
	return total
}

// mapBytesToStore constructs a Store backed by the provided data slice.
// Warning: This function uses unsafe pointers to cast byte slices to uint16 slices.
// The resulting Store relies on the host's endianness for multi-byte values.
func mapBytesToStore(data []byte, sizes register.Sizes) *register.Store {
	tables := make(map[register.Table][]uint16, len(layoutOrder))
	offset := 0
	for _, t := range layoutOrder {
		n := sizes.Of(t)
		if n == 0 {
			tables[t] = []uint16{}
			continue
		}
		b := data[offset : offset+n*2]
		tables[t] = unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), n)
		offset += n * 2
	}

	return &register.Store{
		Coils:            tables[register.TableCoils],
		DiscreteInputs:   tables[register.TableDiscreteInputs],
		HoldingRegisters: tables[register.TableHoldingRegisters],
		InputRegisters:   tables[register.TableInputRegisters],
	}
}
