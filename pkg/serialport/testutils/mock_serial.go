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

// Package testutils provides an in-memory serial port for transport tests.
package testutils

import (
	"errors"
	"time"

	"github.com/ZaparooProject/scanwedge/pkg/helpers/syncutil"
)

var ErrPortClosed = errors.New("port closed")

// MockSerialPort satisfies serialport.Port. Chunks passed to Feed are
// returned one per Read; an empty read simulates the read timeout.
type MockSerialPort struct {
	ReadError   error
	CloseError  error
	TimeoutErr  error
	ControlErr  error
	ReadFunc    func(p []byte) (n int, err error)
	chunks      chan []byte
	ReadTimeout time.Duration
	Closed      bool
	DTR         bool
	RTS         bool
	mu          syncutil.RWMutex // protects Closed, DTR, RTS, ReadTimeout
	readErrMu   syncutil.Mutex
	readErrDone bool
}

func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{
		chunks: make(chan []byte, 64),
	}
}

// Feed queues a chunk for the next Read.
func (m *MockSerialPort) Feed(chunk []byte) {
	m.chunks <- chunk
}

// FailNextRead makes the next Read return err once.
func (m *MockSerialPort) FailNextRead(err error) {
	m.readErrMu.Lock()
	defer m.readErrMu.Unlock()
	m.ReadError = err
	m.readErrDone = false
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	if m.IsClosed() {
		return 0, ErrPortClosed
	}

	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}

	m.readErrMu.Lock()
	if m.ReadError != nil && !m.readErrDone {
		m.readErrDone = true
		readErr := m.ReadError
		m.readErrMu.Unlock()
		return 0, readErr
	}
	m.readErrMu.Unlock()

	select {
	case chunk := <-m.chunks:
		return copy(p, chunk), nil
	case <-time.After(10 * time.Millisecond):
		return 0, nil
	}
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	m.Closed = true
	closeError := m.CloseError
	m.mu.Unlock()
	return closeError
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadTimeout = t
	return m.TimeoutErr
}

func (m *MockSerialPort) SetDTR(dtr bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ControlErr != nil {
		return m.ControlErr
	}
	m.DTR = dtr
	return nil
}

func (m *MockSerialPort) SetRTS(rts bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ControlErr != nil {
		return m.ControlErr
	}
	m.RTS = rts
	return nil
}

func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Closed
}

func (m *MockSerialPort) ControlLines() (dtr, rts bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.DTR, m.RTS
}
