// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package serial adapts a serial port to the non-blocking byte interface the
// slave engine polls.
package serial

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/grid-x/serial"

	"github.com/ffutop/modbus-slave/internal/config"
)

const (
	// queueSize bounds the bytes held between polls. Later bytes are dropped.
	queueSize = 1024
	// readBufferSize is the chunk size of a single port read.
	readBufferSize = 256
	// readRetryDelay is waited after a failed read before trying again.
	readRetryDelay = 10 * time.Millisecond
)

// ErrEmpty is returned by ReadByte when no byte is queued.
var ErrEmpty = errors.New("serial: receive queue empty")

// Port is a serial line with a receive queue filled in the background.
type Port struct {
	device string
	port   io.ReadWriteCloser

	mu      sync.Mutex
	rx      []byte
	dropped uint64
	driver  bool

	tx []byte

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

// Open opens the configured device and starts receiving.
func Open(cfg config.SerialConfig) (*Port, error) {
	spConfig := &serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	}
	if cfg.RS485 {
		spConfig.RS485 = serial.RS485Config{
			Enabled:            true,
			DelayRtsBeforeSend: cfg.DelayRtsBeforeSend,
			DelayRtsAfterSend:  cfg.DelayRtsAfterSend,
			RtsHighDuringSend:  cfg.RtsHighDuringSend,
			RtsHighAfterSend:   cfg.RtsHighAfterSend,
			RxDuringTx:         cfg.RxDuringTx,
		}
	}

	port, err := serial.Open(spConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	slog.Info("Serial port opened", "device", cfg.Device, "baudRate", cfg.BaudRate, "dataBits", cfg.DataBits, "parity", cfg.Parity, "stopBits", cfg.StopBits, "rs485", cfg.RS485)
	return newPort(cfg.Device, port), nil
}

// NewPort wraps an already open port.
func NewPort(port io.ReadWriteCloser) *Port {
	return newPort("", port)
}

func newPort(device string, port io.ReadWriteCloser) *Port {
	p := &Port{
		device:  device,
		port:    port,
		rx:      make([]byte, 0, queueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.receive()
	return p
}

func (p *Port) receive() {
	defer close(p.done)
	buf := make([]byte, readBufferSize)
	for {
		n, err := p.port.Read(buf)
		if n > 0 {
			p.enqueue(buf[:n])
		}

		select {
		case <-p.closing:
			return
		default:
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
			slog.Debug("Serial receive stopped", "device", p.device, "err", err)
			return
		}
		// read timeouts end up here as well
		if n == 0 {
			time.Sleep(readRetryDelay)
		}
	}
}

func (p *Port) enqueue(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := queueSize - len(p.rx)
	if len(b) > free {
		p.dropped += uint64(len(b) - free)
		b = b[:free]
	}
	p.rx = append(p.rx, b...)
}

// Available reports whether a received byte is queued.
func (p *Port) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rx) > 0
}

// ReadByte returns the oldest queued byte without waiting.
func (p *Port) ReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.rx) == 0 {
		return 0, ErrEmpty
	}
	b := p.rx[0]
	p.rx = append(p.rx[:0], p.rx[1:]...)
	return b, nil
}

// Dropped is the number of received bytes discarded on a full queue.
func (p *Port) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// WriteByte buffers b until the next Flush.
func (p *Port) WriteByte(b byte) error {
	p.tx = append(p.tx, b)
	return nil
}

// Flush writes the buffered bytes to the port.
func (p *Port) Flush() error {
	defer func() { p.tx = p.tx[:0] }()

	for written := 0; written < len(p.tx); {
		n, err := p.port.Write(p.tx[written:])
		if err != nil {
			return fmt.Errorf("serial: write %s: %w", p.device, err)
		}
		if n == 0 {
			return fmt.Errorf("serial: write %s: %w", p.device, io.ErrShortWrite)
		}
		written += n
	}
	return nil
}

// SetDriverEnable records the transmit driver state. With RS485 enabled the
// kernel driver toggles RTS itself around each write.
func (p *Port) SetDriverEnable(on bool) error {
	p.mu.Lock()
	p.driver = on
	p.mu.Unlock()
	slog.Debug("RS485 driver", "device", p.device, "enabled", on)
	return nil
}

// DriverEnabled reports the last state passed to SetDriverEnable.
func (p *Port) DriverEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.driver
}

// Close closes the port and waits for the receive loop to end.
func (p *Port) Close() (err error) {
	p.closeOnce.Do(func() {
		close(p.closing)
		err = p.port.Close()
		<-p.done
	})
	return
}
