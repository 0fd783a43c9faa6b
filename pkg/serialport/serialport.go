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

// Package serialport is the go.bug.st/serial transport behind the session
// manager. Each open device gets a read goroutine that forwards raw chunks
// and reports read failures or device removal through session.Callbacks.
package serialport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/scanwedge/pkg/session"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	readTimeout    = 100 * time.Millisecond
	readBufferSize = 1024
)

// Port is the subset of serial.Port the transport uses.
type Port interface {
	Read(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}

type PortFactory func(path string, mode *serial.Mode) (Port, error)

func DefaultPortFactory(path string, mode *serial.Mode) (Port, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Mode returns the fixed 8-N-1 framing used for scanners. go.bug.st/serial
// leaves hardware flow control off unless asked for.
func Mode(baudRate int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

type Transport struct {
	portFactory PortFactory
	exists      func(path string) bool
}

func NewTransport() *Transport {
	return &Transport{
		portFactory: DefaultPortFactory,
		exists:      deviceExists,
	}
}

// NewTransportWithFactory is used by tests and tools that provide their own
// ports.
func NewTransportWithFactory(factory PortFactory) *Transport {
	return &Transport{
		portFactory: factory,
		exists:      deviceExists,
	}
}

func deviceExists(path string) bool {
	if runtime.GOOS == "windows" {
		return true
	}
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func (t *Transport) Open(device string, baudRate int, cb session.Callbacks) (session.Conn, error) {
	if runtime.GOOS != "windows" {
		if _, err := os.Stat(device); err != nil {
			return nil, fmt.Errorf("failed to stat device path %s: %w", device, err)
		}
	}

	port, err := t.portFactory(device, Mode(baudRate))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	c := &Conn{
		port:   port,
		path:   device,
		exists: t.exists,
		done:   make(chan struct{}),
	}
	go c.readLoop(cb)

	return c, nil
}

// Conn is an open serial device. Close does not wait for the read goroutine,
// so it is safe to call from inside a callback.
type Conn struct {
	port      Port
	exists    func(path string) bool
	done      chan struct{}
	path      string
	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *Conn) SetDTR(dtr bool) error {
	if err := c.port.SetDTR(dtr); err != nil {
		return fmt.Errorf("failed to set DTR on %s: %w", c.path, err)
	}
	return nil
}

func (c *Conn) SetRTS(rts bool) error {
	if err := c.port.SetRTS(rts); err != nil {
		return fmt.Errorf("failed to set RTS on %s: %w", c.path, err)
	}
	return nil
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if closeErr := c.port.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close serial port: %w", closeErr)
		}
	})
	return err
}

// Done is closed when the read goroutine has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) readLoop(cb session.Callbacks) {
	defer close(c.done)

	buf := make([]byte, readBufferSize)
	for {
		if c.closed.Load() {
			return
		}

		n, err := c.port.Read(buf)

		// Process any bytes read, even if there's an error.
		if n > 0 && !c.closed.Load() {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			log.Debug().Msgf("received %d bytes from %s", n, c.path)
			cb.Bytes(chunk)
		}

		if err != nil {
			if c.closed.Load() || isPortClosed(err) {
				return
			}
			if !c.exists(c.path) {
				cb.Removed()
				return
			}
			cb.Error(fmt.Errorf("failed to read from serial port %s: %w", c.path, err))
			return
		}

		// Read timed out with no data. Some drivers keep returning empty
		// reads after the device is unplugged instead of failing.
		if n == 0 && !c.exists(c.path) {
			if !c.closed.Load() {
				cb.Removed()
			}
			return
		}
	}
}

func isPortClosed(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		return portErr.Code() == serial.PortClosed
	}
	return false
}
