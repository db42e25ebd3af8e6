// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package slave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffutop/modbus-slave/internal/register"
	"github.com/ffutop/modbus-slave/modbus"
	"github.com/ffutop/modbus-slave/modbus/rtu"
)

var nopHandler = HandlerFunc(func(*rtu.ApplicationDataUnit, *register.Store) (*modbus.ProtocolDataUnit, error) {
	return nil, nil
})

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Codes())

	require.NoError(t, r.Add(0x41, nopHandler))
	assert.ErrorIs(t, r.Add(0x41, nopHandler), ErrDuplicateFunction)
	assert.Error(t, r.Add(0x00, nopHandler))
	assert.Error(t, r.Add(0x83, nopHandler))
	assert.Error(t, r.Add(0x42, nil))
	assert.Equal(t, []byte{0x41}, r.Codes())
}

func TestRegistry_Lookup(t *testing.T) {
	r := DefaultRegistry()

	h, cb, ok := r.Lookup(modbus.FuncCodeReadHoldingRegisters)
	assert.True(t, ok)
	assert.NotNil(t, h)
	assert.Nil(t, cb)

	_, _, ok = r.Lookup(0x04)
	assert.False(t, ok)
}

func TestRegistry_SetCallback(t *testing.T) {
	r := DefaultRegistry()
	called := false
	require.NoError(t, r.SetCallback(modbus.FuncCodeWriteMultipleRegisters, func(*rtu.ApplicationDataUnit, *register.Store) {
		called = true
	}))

	_, cb, ok := r.Lookup(modbus.FuncCodeWriteMultipleRegisters)
	require.True(t, ok)
	require.NotNil(t, cb)
	cb(nil, nil)
	assert.True(t, called)

	assert.ErrorIs(t, r.SetCallback(0x06, nil), ErrUnknownFunction)
}
