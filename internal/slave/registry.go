// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package slave

import (
	"errors"
	"fmt"

	"github.com/ffutop/modbus-slave/internal/register"
	"github.com/ffutop/modbus-slave/modbus"
	"github.com/ffutop/modbus-slave/modbus/rtu"
)

var (
	// ErrUnknownFunction is returned when a function code has no handler.
	ErrUnknownFunction = errors.New("slave: unknown function code")
	// ErrDuplicateFunction is returned when a function code is registered twice.
	ErrDuplicateFunction = errors.New("slave: function code already registered")
)

// Handler serves one function code.
//
// The returned PDU is sent back to the master unless the request was a
// broadcast. A *modbus.Error return is answered with an exception frame;
// ErrByteCount drops the request silently.
type Handler interface {
	ServeModbus(req *rtu.ApplicationDataUnit, store *register.Store) (*modbus.ProtocolDataUnit, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(req *rtu.ApplicationDataUnit, store *register.Store) (*modbus.ProtocolDataUnit, error)

func (f HandlerFunc) ServeModbus(req *rtu.ApplicationDataUnit, store *register.Store) (*modbus.ProtocolDataUnit, error) {
	return f(req, store)
}

// Callback runs after a handler completed without error.
type Callback func(req *rtu.ApplicationDataUnit, store *register.Store)

type entry struct {
	code     byte
	handler  Handler
	callback Callback
}

// Registry maps function codes to handlers. Entries are only ever added.
type Registry struct {
	entries []entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns a registry serving read holding registers and
// write multiple registers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustAdd(modbus.FuncCodeReadHoldingRegisters, HandlerFunc(ReadHoldingRegisters))
	r.mustAdd(modbus.FuncCodeWriteMultipleRegisters, HandlerFunc(WriteMultipleRegisters))
	return r
}

// Add registers h for the function code.
func (r *Registry) Add(code byte, h Handler) error {
	if code == 0 || code&modbus.ExceptionFlag != 0 {
		return fmt.Errorf("slave: invalid function code 0x%02X", code)
	}
	if h == nil {
		return fmt.Errorf("slave: nil handler for function code 0x%02X", code)
	}
	if r.find(code) != nil {
		return fmt.Errorf("function code 0x%02X: %w", code, ErrDuplicateFunction)
	}
	r.entries = append(r.entries, entry{code: code, handler: h})
	return nil
}

func (r *Registry) mustAdd(code byte, h Handler) {
	if err := r.Add(code, h); err != nil {
		panic(err)
	}
}

// SetCallback attaches cb to an already registered function code,
// replacing any previous callback. A nil cb detaches it.
func (r *Registry) SetCallback(code byte, cb Callback) error {
	e := r.find(code)
	if e == nil {
		return fmt.Errorf("function code 0x%02X: %w", code, ErrUnknownFunction)
	}
	e.callback = cb
	return nil
}

// Lookup returns the handler and callback for the function code.
func (r *Registry) Lookup(code byte) (Handler, Callback, bool) {
	e := r.find(code)
	if e == nil {
		return nil, nil, false
	}
	return e.handler, e.callback, true
}

// Codes lists the registered function codes in registration order.
func (r *Registry) Codes() []byte {
	codes := make([]byte, len(r.entries))
	for i, e := range r.entries {
		codes[i] = e.code
	}
	return codes
}

func (r *Registry) find(code byte) *entry {
	for i := range r.entries {
		if r.entries[i].code == code {
			return &r.entries[i]
		}
	}
	return nil
}
