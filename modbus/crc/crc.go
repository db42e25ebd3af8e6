// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the CRC-16 used by Modbus RTU frames.
package crc

const (
	seed       = 0xFFFF
	polynomial = 0xA001
)

// CRC is a running Modbus CRC-16 register.
type CRC struct {
	value uint16
}

// Reset sets the register back to the seed value.
func (crc *CRC) Reset() *CRC {
	crc.value = seed
	return crc
}

// PushBytes feeds bs into the register.
func (crc *CRC) PushBytes(bs []byte) *CRC {
	v := crc.value
	for _, b := range bs {
		v ^= uint16(b)
		for i := 0; i < 8; i++ {
			if v&0x0001 != 0 {
				v = (v >> 1) ^ polynomial
			} else {
				v >>= 1
			}
		}
	}
	crc.value = v
	return crc
}

// Value returns the register as computed. The low byte goes on the wire first.
func (crc *CRC) Value() uint16 {
	return crc.value
}

// Checksum returns the CRC of bs with its bytes swapped, so that the high
// byte of the result is the first CRC byte transmitted.
func Checksum(bs []byte) uint16 {
	var crc CRC
	v := crc.Reset().PushBytes(bs).Value()
	return v<<8 | v>>8
}

// Validate reports whether the last two bytes of frame are the CRC of the rest.
func Validate(frame []byte) bool {
	n := len(frame)
	if n <= 2 {
		return false
	}
	sum := Checksum(frame[:n-2])
	return frame[n-2] == byte(sum>>8) && frame[n-1] == byte(sum)
}

// Append returns bs followed by its CRC in wire order.
func Append(bs []byte) []byte {
	sum := Checksum(bs)
	return append(bs, byte(sum>>8), byte(sum))
}
