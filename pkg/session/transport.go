// ScanWedge
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of ScanWedge.
//
// ScanWedge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ScanWedge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ScanWedge.  If not, see <http://www.gnu.org/licenses/>.

package session

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceAcquisition is returned when a device path is invalid or busy.
	ErrDeviceAcquisition = errors.New("failed to open serial device")
	// ErrDeviceRemoved is reported after the open device disappears.
	ErrDeviceRemoved = errors.New("serial device was removed from system")
	// ErrTransport wraps asynchronous errors reported by the transport.
	ErrTransport = errors.New("serial transport error")
)

// Conn is an acquired serial device.
type Conn interface {
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	Close() error
}

// Callbacks are invoked by a transport from its own goroutine. Bytes may be
// called with chunks of any size; Removed and Error are terminal for the
// read side but the manager decides what happens to the session.
type Callbacks struct {
	Bytes   func(chunk []byte)
	Error   func(err error)
	Removed func()
}

// Transport acquires serial devices. Implementations must use 8 data bits,
// 1 stop bit, no parity and no flow control.
type Transport interface {
	Open(device string, baudRate int, cb Callbacks) (Conn, error)
}

// PostOpenHook runs against a freshly opened connection before the opened
// event is emitted. A failing hook is logged and the session stays open.
type PostOpenHook func(conn Conn) error

// AssertControlLines raises DTR and RTS. Many USB scanners stay silent until
// both are high.
func AssertControlLines(conn Conn) error {
	if err := conn.SetDTR(true); err != nil {
		return fmt.Errorf("failed to set DTR: %w", err)
	}
	if err := conn.SetRTS(true); err != nil {
		return fmt.Errorf("failed to set RTS: %w", err)
	}
	return nil
}
