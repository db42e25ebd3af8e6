// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		code byte
		want string
	}{
		{ExceptionCodeIllegalFunction, "modbus: exception '1' (illegal function), function '3'"},
		{ExceptionCodeIllegalDataAddress, "modbus: exception '2' (illegal data address), function '3'"},
		{ExceptionCodeIllegalDataValue, "modbus: exception '3' (illegal data value), function '3'"},
		{0x7F, "modbus: exception '127' (unknown), function '3'"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("code_%d", tt.code), func(t *testing.T) {
			err := NewError(FuncCodeReadHoldingRegisters|ExceptionFlag, tt.code)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestErrorAs(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", NewError(FuncCodeWriteMultipleRegisters, ExceptionCodeIllegalDataValue))

	var mbErr *Error
	if assert.True(t, errors.As(err, &mbErr)) {
		assert.Equal(t, byte(ExceptionCodeIllegalDataValue), mbErr.ExceptionCode)
		assert.Equal(t, byte(FuncCodeWriteMultipleRegisters), mbErr.FunctionCode)
	}
}

func TestException(t *testing.T) {
	pdu := Exception(FuncCodeReadHoldingRegisters, ExceptionCodeIllegalDataAddress)
	assert.Equal(t, byte(0x83), pdu.FunctionCode)
	assert.Equal(t, []byte{0x02}, pdu.Data)
	assert.True(t, pdu.IsException())

	assert.False(t, ProtocolDataUnit{FunctionCode: FuncCodeReadHoldingRegisters}.IsException())
}
