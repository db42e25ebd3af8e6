// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package slave

import (
	"io"

	"github.com/ffutop/modbus-slave/modbus/rtu"
)

// Transport is the serial line the engine serves.
// Reads never block: Available reports whether ReadByte has a byte ready.
// Written bytes may be buffered until Flush.
type Transport interface {
	rtu.ByteSource
	io.ByteWriter
	Flush() error
}

// DriverEnabler controls the RS485 transmit driver. A Transport that also
// implements DriverEnabler has the driver asserted around every response.
type DriverEnabler interface {
	SetDriverEnable(on bool) error
}
