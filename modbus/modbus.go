// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

/*
Package modbus holds the protocol level vocabulary shared by the RTU framing
and the slave engine: function codes, exception codes and the PDU.
*/
package modbus

import (
	"fmt"
)

const (
	// FuncCodeReadHoldingRegisters 16-bit wise access
	FuncCodeReadHoldingRegisters = 0x03
	// FuncCodeWriteMultipleRegisters 16-bit wise access
	FuncCodeWriteMultipleRegisters = 0x10

	// ExceptionFlag is set on the function code of an exception response.
	ExceptionFlag = 0x80
)

const (
	// ExceptionCodeIllegalFunction error code
	ExceptionCodeIllegalFunction = 0x01
	// ExceptionCodeIllegalDataAddress error code
	ExceptionCodeIllegalDataAddress = 0x02
	// ExceptionCodeIllegalDataValue error code
	ExceptionCodeIllegalDataValue = 0x03
	// ExceptionCodeServerDeviceFailure error code
	ExceptionCodeServerDeviceFailure = 0x04
	// ExceptionCodeAcknowledge error code
	ExceptionCodeAcknowledge = 0x05
	// ExceptionCodeServerDeviceBusy error code
	ExceptionCodeServerDeviceBusy = 0x06
	// ExceptionCodeMemoryParityError error code
	ExceptionCodeMemoryParityError = 0x08
	// ExceptionCodeGatewayPathUnavailable error code
	ExceptionCodeGatewayPathUnavailable = 0x0A
	// ExceptionCodeGatewayTargetDeviceFailedToRespond error code
	ExceptionCodeGatewayTargetDeviceFailedToRespond = 0x0B
)

// Error is a Modbus exception raised while serving a request.
type Error struct {
	FunctionCode  byte
	ExceptionCode byte
}

// NewError returns the exception for function code fc.
func NewError(fc, code byte) *Error {
	return &Error{FunctionCode: fc, ExceptionCode: code}
}

// Error converts known modbus exception code to error message.
func (e *Error) Error() string {
	var name string
	switch e.ExceptionCode {
	case ExceptionCodeIllegalFunction:
		name = "illegal function"
	case ExceptionCodeIllegalDataAddress:
		name = "illegal data address"
	case ExceptionCodeIllegalDataValue:
		name = "illegal data value"
	case ExceptionCodeServerDeviceFailure:
		name = "server device failure"
	case ExceptionCodeAcknowledge:
		name = "acknowledge"
	case ExceptionCodeServerDeviceBusy:
		name = "server device busy"
	case ExceptionCodeMemoryParityError:
		name = "memory parity error"
	case ExceptionCodeGatewayPathUnavailable:
		name = "gateway path unavailable"
	case ExceptionCodeGatewayTargetDeviceFailedToRespond:
		name = "gateway target device failed to respond"
	default:
		name = "unknown"
	}
	return fmt.Sprintf("modbus: exception '%v' (%s), function '%v'", e.ExceptionCode, name, e.FunctionCode&^ExceptionFlag)
}

// ProtocolDataUnit (PDU) is independent of underlying communication layers.
type ProtocolDataUnit struct {
	FunctionCode byte
	Data         []byte
}

// Exception builds the exception PDU answering function code fc.
func Exception(fc, code byte) ProtocolDataUnit {
	return ProtocolDataUnit{
		FunctionCode: fc | ExceptionFlag,
		Data:         []byte{code},
	}
}

// IsException reports whether the PDU carries an exception response.
func (pdu ProtocolDataUnit) IsException() bool {
	return pdu.FunctionCode&ExceptionFlag != 0
}
