// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrFrameTruncated is returned with the retained prefix when more bytes
// arrived than the frame buffer holds.
var ErrFrameTruncated = errors.New("modbus: frame truncated")

// ByteSource is the receive side of the serial line.
type ByteSource interface {
	// Available reports whether a byte can be read without blocking.
	Available() bool
	io.ByteReader
}

// Framer assembles RTU frames from a byte source. The end of a frame is the
// first time no byte is available after waiting CharacterDelay.
type Framer struct {
	Source         ByteSource
	CharacterDelay time.Duration
	// Capacity is the number of bytes retained per frame, MaxSize if zero.
	Capacity int
	// Sleep waits between bytes, time.Sleep if nil.
	Sleep func(time.Duration)

	buf []byte
}

// NewFramer returns a Framer reading from src with the inter-character
// delay for baudRate.
func NewFramer(src ByteSource, baudRate int) *Framer {
	charDelay, _ := Timing(baudRate)
	return &Framer{
		Source:         src,
		CharacterDelay: charDelay,
		Capacity:       MaxSize,
	}
}

// ReadFrame polls the source. It returns an empty frame right away when
// nothing is pending. The returned slice is reused by the next call.
func (f *Framer) ReadFrame() ([]byte, error) {
	if !f.Source.Available() {
		return nil, nil
	}

	capacity := f.Capacity
	if capacity <= 0 {
		capacity = MaxSize
	}
	if cap(f.buf) < capacity {
		f.buf = make([]byte, 0, capacity)
	}
	buf := f.buf[:0]
	sleep := f.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	overflow := false
	for f.Source.Available() {
		b, err := f.Source.ReadByte()
		if err != nil {
			return buf, fmt.Errorf("modbus: read frame byte %d: %w", len(buf), err)
		}
		if len(buf) == capacity {
			// drain the rest of the frame
			overflow = true
		} else {
			buf = append(buf, b)
		}
		sleep(f.CharacterDelay)
	}

	if overflow {
		return buf, ErrFrameTruncated
	}
	return buf, nil
}
