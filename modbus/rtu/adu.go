// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"fmt"

	"github.com/ffutop/modbus-slave/modbus"
	"github.com/ffutop/modbus-slave/modbus/crc"
)

// ApplicationDataUnit is one RTU frame: address, PDU and trailing CRC.
type ApplicationDataUnit struct {
	SlaveID byte
	Pdu     modbus.ProtocolDataUnit
	// CRC is the trailing two bytes as received, first byte high.
	CRC uint16

	raw []byte
}

// Decode splits a raw frame into its fields. The CRC is not checked here
// since the caller has to filter by address first, see ChecksumValid.
// An empty frame means nothing was received and yields a nil ADU.
func Decode(raw []byte) (adu *ApplicationDataUnit, err error) {
	length := len(raw)
	if length == 0 {
		return nil, nil
	}
	// Minimum size (including address, function and CRC)
	if length < MinSize {
		err = fmt.Errorf("modbus: frame length '%v' does not meet minimum '%v'", length, MinSize)
		return
	}
	adu = &ApplicationDataUnit{
		SlaveID: raw[0],
		Pdu: modbus.ProtocolDataUnit{
			FunctionCode: raw[1],
			Data:         raw[2 : length-2],
		},
		CRC: uint16(raw[length-2])<<8 | uint16(raw[length-1]),
		raw: raw,
	}
	return
}

// ChecksumValid recomputes the CRC over everything but the trailing two bytes.
func (adu *ApplicationDataUnit) ChecksumValid() bool {
	if len(adu.raw) < MinSize {
		return false
	}
	return crc.Checksum(adu.raw[:len(adu.raw)-2]) == adu.CRC
}

// IsBroadcast reports whether the frame was sent to every slave.
func (adu *ApplicationDataUnit) IsBroadcast() bool {
	return adu.SlaveID == BroadcastAddress
}

// Length is the number of bytes received for this frame, CRC included.
func (adu *ApplicationDataUnit) Length() int {
	if adu.raw != nil {
		return len(adu.raw)
	}
	return len(adu.Pdu.Data) + MinSize
}

// Raw returns the bytes the frame was decoded from.
func (adu *ApplicationDataUnit) Raw() []byte {
	return adu.raw
}

// Encode encodes PDU in an RTU frame:
//
//	Slave Address   : 1 byte
//	Function        : 1 byte
//	Data            : 0 up to 124 bytes
//	CRC             : 2 bytes
func (adu *ApplicationDataUnit) Encode() (raw []byte, err error) {
	length := len(adu.Pdu.Data) + MinSize
	if length > MaxSize {
		err = fmt.Errorf("modbus: length of data '%v' must not be bigger than '%v'", length, MaxSize)
		return
	}
	raw = make([]byte, length)

	raw[0] = adu.SlaveID
	raw[1] = adu.Pdu.FunctionCode
	copy(raw[2:], adu.Pdu.Data)

	checksum := crc.Checksum(raw[0 : length-2])
	raw[length-2] = byte(checksum >> 8)
	raw[length-1] = byte(checksum)

	adu.CRC = checksum
	adu.raw = raw
	return
}
