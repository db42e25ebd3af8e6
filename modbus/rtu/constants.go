// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	// MinSize is address, function code and CRC.
	MinSize = 4
	// MaxSize is the frame buffer of the serial line, 128 bytes like the
	// UART ring buffer the slave was sized for.
	MaxSize = 128

	// MinRequestSize is the shortest request of functions 0x03 and 0x10.
	MinRequestSize = 8

	ExceptionSize = 5

	// BroadcastAddress reaches every slave on the line. Nobody answers it.
	BroadcastAddress = 0

	MinSlaveID = 1
	MaxSlaveID = 247
)

// Fixed timing above 19200 baud, in microseconds.
const (
	fastCharacterDelay = 750
	fastFrameDelay     = 1750
)
