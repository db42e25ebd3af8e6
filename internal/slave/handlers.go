// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package slave

import (
	"encoding/binary"
	"errors"

	"github.com/ffutop/modbus-slave/internal/register"
	"github.com/ffutop/modbus-slave/modbus"
	"github.com/ffutop/modbus-slave/modbus/rtu"
)

// ErrByteCount is returned when the byte count field of a write request
// disagrees with the frame length. Such frames are dropped without an
// exception.
var ErrByteCount = errors.New("slave: byte count does not match frame length")

// maxReadQuantity keeps a read response within a single frame:
// address, function, byte count and CRC plus two bytes per register.
const maxReadQuantity = (rtu.MaxSize - 5) / 2

// ReadHoldingRegisters serves function code 0x03.
//
// Request:
//
//	Starting address: 2 bytes
//	Quantity:         2 bytes
//
// Response:
//
//	Byte count:       1 byte
//	Register values:  N* x 2 bytes
func ReadHoldingRegisters(req *rtu.ApplicationDataUnit, store *register.Store) (*modbus.ProtocolDataUnit, error) {
	fc := req.Pdu.FunctionCode
	if req.IsBroadcast() {
		return nil, modbus.NewError(fc, modbus.ExceptionCodeIllegalFunction)
	}
	if len(req.Pdu.Data) < 4 {
		return nil, modbus.NewError(fc, modbus.ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(req.Pdu.Data[0:2])
	quantity := binary.BigEndian.Uint16(req.Pdu.Data[2:4])

	if err := checkRange(fc, len(store.HoldingRegisters), address, quantity); err != nil {
		return nil, err
	}
	if quantity > maxReadQuantity {
		return nil, modbus.NewError(fc, modbus.ExceptionCodeIllegalDataValue)
	}

	data, err := store.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, modbus.NewError(fc, modbus.ExceptionCodeIllegalDataAddress)
	}

	respData := make([]byte, 1+len(data))
	respData[0] = byte(len(data))
	copy(respData[1:], data)

	return &modbus.ProtocolDataUnit{
		FunctionCode: fc,
		Data:         respData,
	}, nil
}

// WriteMultipleRegisters serves function code 0x10. Broadcast writes are
// performed like addressed ones.
//
// Request:
//
//	Starting address: 2 bytes
//	Quantity:         2 bytes
//	Byte count:       1 byte
//	Register values:  N* x 2 bytes
//
// Response:
//
//	Starting address: 2 bytes
//	Quantity:         2 bytes
func WriteMultipleRegisters(req *rtu.ApplicationDataUnit, store *register.Store) (*modbus.ProtocolDataUnit, error) {
	fc := req.Pdu.FunctionCode
	if len(req.Pdu.Data) < 5 {
		return nil, ErrByteCount
	}
	byteCount := req.Pdu.Data[4]
	// header of 7 bytes plus CRC
	if int(byteCount) != req.Length()-9 {
		return nil, ErrByteCount
	}
	address := binary.BigEndian.Uint16(req.Pdu.Data[0:2])
	quantity := binary.BigEndian.Uint16(req.Pdu.Data[2:4])

	if err := checkRange(fc, len(store.HoldingRegisters), address, quantity); err != nil {
		return nil, err
	}
	if int(byteCount) != 2*int(quantity) {
		return nil, modbus.NewError(fc, modbus.ExceptionCodeIllegalDataValue)
	}

	if err := store.WriteHoldingRegisters(address, quantity, req.Pdu.Data[5:]); err != nil {
		return nil, modbus.NewError(fc, modbus.ExceptionCodeIllegalDataAddress)
	}

	respData := make([]byte, 4)
	copy(respData, req.Pdu.Data[0:4])

	return &modbus.ProtocolDataUnit{
		FunctionCode: fc,
		Data:         respData,
	}, nil
}

// checkRange applies the address rules shared by the register functions:
// a start beyond the table is an address error, a range running past the
// end or an empty range is a value error.
func checkRange(fc byte, size int, address, quantity uint16) error {
	if int(address) >= size {
		return modbus.NewError(fc, modbus.ExceptionCodeIllegalDataAddress)
	}
	if int(address)+int(quantity) > size {
		return modbus.NewError(fc, modbus.ExceptionCodeIllegalDataValue)
	}
	if quantity == 0 {
		return modbus.NewError(fc, modbus.ExceptionCodeIllegalDataValue)
	}
	return nil
}
