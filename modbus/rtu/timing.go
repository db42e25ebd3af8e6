// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import "time"

// Timing returns the inter-character (T1.5) and frame (T3.5) delays for a
// baud rate. These are approximations: one character is taken as 10 bits.
// See MODBUS over Serial Line - Specification and Implementation Guide (page 13).
func Timing(baudRate int) (characterDelay, frameDelay time.Duration) {
	var charUs, frameUs int

	if baudRate <= 0 || baudRate > 19200 {
		charUs = fastCharacterDelay
		frameUs = fastFrameDelay
	} else {
		charUs = 15000000 / baudRate
		frameUs = 35000000 / baudRate
	}
	return time.Duration(charUs) * time.Microsecond, time.Duration(frameUs) * time.Microsecond
}
