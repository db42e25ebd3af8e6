// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

/*
Package slave implements a Modbus RTU slave that is polled from the
application's main loop. Each Poll receives at most one frame, validates it,
dispatches it to the registered function handler and answers the master.
*/
package slave

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/modbus-slave/internal/register"
	"github.com/ffutop/modbus-slave/modbus"
	"github.com/ffutop/modbus-slave/modbus/rtu"
)

// Config holds the engine parameters.
type Config struct {
	// SlaveID is the address this slave answers to, 1 to 247.
	SlaveID byte
	// BaudRate selects the inter-character and inter-frame delays.
	BaudRate int
	// Capacity is the receive buffer size, rtu.MaxSize if zero.
	// A frame is accepted only if it is shorter than Capacity.
	Capacity int
	// Sleep waits for the bus delays, time.Sleep if nil.
	Sleep func(time.Duration)
}

func (c *Config) validate() error {
	if c.SlaveID < rtu.MinSlaveID || c.SlaveID > rtu.MaxSlaveID {
		return fmt.Errorf("slave: id %d out of range [%d, %d]", c.SlaveID, rtu.MinSlaveID, rtu.MaxSlaveID)
	}
	if c.Capacity == 0 {
		c.Capacity = rtu.MaxSize
	}
	if c.Capacity <= rtu.MinRequestSize || c.Capacity > rtu.MaxSize {
		return fmt.Errorf("slave: frame capacity %d out of range (%d, %d]", c.Capacity, rtu.MinRequestSize, rtu.MaxSize)
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
	return nil
}

// Outcome classifies what a Poll did with the bus.
type Outcome int

const (
	// OutcomeIdle means nothing was received.
	OutcomeIdle Outcome = iota
	// OutcomeShortFrame means the frame was too short to be a request.
	OutcomeShortFrame
	// OutcomeTruncated means more bytes arrived than the buffer holds.
	OutcomeTruncated
	// OutcomeOversize means the frame filled the whole buffer.
	OutcomeOversize
	// OutcomeForeign means the frame was addressed to another slave.
	OutcomeForeign
	// OutcomeChecksum means the CRC did not match.
	OutcomeChecksum
	// OutcomeByteCount means a write request's byte count disagreed with its length.
	OutcomeByteCount
	// OutcomeException means an exception was raised, and sent unless broadcast.
	OutcomeException
	// OutcomeResponded means the request was served and answered.
	OutcomeResponded
	// OutcomeSuppressed means the request was served but not answered.
	OutcomeSuppressed
)

var outcomeNames = [...]string{
	OutcomeIdle:       "idle",
	OutcomeShortFrame: "short frame",
	OutcomeTruncated:  "truncated",
	OutcomeOversize:   "oversize",
	OutcomeForeign:    "foreign",
	OutcomeChecksum:   "checksum",
	OutcomeByteCount:  "byte count",
	OutcomeException:  "exception",
	OutcomeResponded:  "responded",
	OutcomeSuppressed: "suppressed",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Engine is a Modbus RTU slave. It is not safe for concurrent use; the
// application touches the store only between calls to Poll.
type Engine struct {
	cfg        Config
	transport  Transport
	driver     DriverEnabler
	framer     *rtu.Framer
	registry   *Registry
	store      *register.Store
	frameDelay time.Duration
	errors     uint64
}

// New creates an engine serving store over t. A nil registry selects
// DefaultRegistry. If t implements DriverEnabler the transmit driver is
// asserted while responses are sent.
func New(cfg Config, t Transport, store *register.Store, registry *Registry) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("slave: nil transport")
	}
	if store == nil {
		return nil, errors.New("slave: nil register store")
	}
	if registry == nil {
		registry = DefaultRegistry()
	}

	charDelay, frameDelay := rtu.Timing(cfg.BaudRate)
	e := &Engine{
		cfg:       cfg,
		transport: t,
		framer: &rtu.Framer{
			Source:         t,
			CharacterDelay: charDelay,
			Capacity:       cfg.Capacity,
			Sleep:          cfg.Sleep,
		},
		registry:   registry,
		store:      store,
		frameDelay: frameDelay,
	}
	if d, ok := t.(DriverEnabler); ok {
		e.driver = d
	}
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Registers returns the store the engine serves.
func (e *Engine) Registers() *register.Store {
	return e.store
}

// Registry returns the function registry for adding handlers.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// AddCallback attaches cb to a registered function code.
func (e *Engine) AddCallback(code byte, cb Callback) error {
	return e.registry.SetCallback(code, cb)
}

// Errors returns the number of framing, checksum and exception errors
// since the engine was created.
func (e *Engine) Errors() uint64 {
	return e.errors
}

// Poll runs one receive cycle. It returns immediately when nothing was
// received. The error is non-nil only when the transport failed.
func (e *Engine) Poll() (Outcome, error) {
	frame, err := e.framer.ReadFrame()
	if err != nil {
		if errors.Is(err, rtu.ErrFrameTruncated) {
			e.errors++
			slog.Debug("Frame truncated", "retained", len(frame))
			return OutcomeTruncated, nil
		}
		return OutcomeIdle, err
	}

	length := len(frame)
	switch {
	case length == 0:
		return OutcomeIdle, nil
	case length < rtu.MinRequestSize:
		e.errors++
		slog.Debug("Frame too short", "frame", hex.EncodeToString(frame))
		return OutcomeShortFrame, nil
	case length >= e.cfg.Capacity:
		e.errors++
		slog.Debug("Frame too long", "length", length)
		return OutcomeOversize, nil
	}

	adu, err := rtu.Decode(frame)
	if err != nil {
		e.errors++
		return OutcomeShortFrame, nil
	}
	if adu.SlaveID != e.cfg.SlaveID && !adu.IsBroadcast() {
		return OutcomeForeign, nil
	}
	if !adu.ChecksumValid() {
		e.errors++
		slog.Debug("Frame checksum mismatch", "frame", hex.EncodeToString(frame))
		return OutcomeChecksum, nil
	}

	slog.Debug("Request received", "request", hex.EncodeToString(frame))
	return e.dispatch(adu)
}

func (e *Engine) dispatch(req *rtu.ApplicationDataUnit) (Outcome, error) {
	fc := req.Pdu.FunctionCode
	handler, callback, ok := e.registry.Lookup(fc)
	if !ok {
		return e.exception(req, modbus.NewError(fc, modbus.ExceptionCodeIllegalFunction))
	}

	resp, err := handler.ServeModbus(req, e.store)
	if err != nil {
		var mbErr *modbus.Error
		switch {
		case errors.As(err, &mbErr):
			return e.exception(req, mbErr)
		case errors.Is(err, ErrByteCount):
			e.errors++
			slog.Debug("Request dropped", "func", fc, "err", err)
			return OutcomeByteCount, nil
		default:
			slog.Error("Handler failed", "func", fc, "err", err)
			return e.exception(req, modbus.NewError(fc, modbus.ExceptionCodeServerDeviceFailure))
		}
	}

	outcome := OutcomeSuppressed
	var sendErr error
	if resp != nil && !req.IsBroadcast() {
		outcome = OutcomeResponded
		sendErr = e.send(*resp)
	}
	if callback != nil {
		callback(req, e.store)
	}
	return outcome, sendErr
}

// exception counts the error and answers it unless the request was a
// broadcast.
func (e *Engine) exception(req *rtu.ApplicationDataUnit, mbErr *modbus.Error) (Outcome, error) {
	e.errors++
	slog.Debug("Request rejected", "err", mbErr, "broadcast", req.IsBroadcast())
	if req.IsBroadcast() {
		return OutcomeException, nil
	}
	return OutcomeException, e.send(modbus.Exception(mbErr.FunctionCode, mbErr.ExceptionCode))
}

// send frames the PDU with our address and writes it with the driver
// asserted, holding the line for one inter-frame delay after the last byte.
func (e *Engine) send(pdu modbus.ProtocolDataUnit) (err error) {
	adu := &rtu.ApplicationDataUnit{SlaveID: e.cfg.SlaveID, Pdu: pdu}
	raw, err := adu.Encode()
	if err != nil {
		return err
	}

	if e.driver != nil {
		if err := e.driver.SetDriverEnable(true); err != nil {
			return fmt.Errorf("slave: enable driver: %w", err)
		}
		defer func() {
			if derr := e.driver.SetDriverEnable(false); derr != nil && err == nil {
				err = fmt.Errorf("slave: disable driver: %w", derr)
			}
		}()
	}

	for _, b := range raw {
		if err := e.transport.WriteByte(b); err != nil {
			return fmt.Errorf("slave: write response: %w", err)
		}
	}
	if err := e.transport.Flush(); err != nil {
		return fmt.Errorf("slave: flush response: %w", err)
	}
	e.cfg.Sleep(e.frameDelay)

	slog.Debug("Response sent", "response", hex.EncodeToString(raw))
	return nil
}
