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

// Package session owns the lifecycle of the single open scanner port. Raw
// chunks from the transport are buffered until the line has been quiet for
// IdleTimeout, then decoded, sanitized and emitted as one data event.
package session

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ZaparooProject/scanwedge/pkg/helpers/syncutil"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// IdleTimeout is the quiet interval that ends a frame.
	IdleTimeout = 200 * time.Millisecond
	// MaxBufferSize caps a single frame. A burst longer than this is dropped
	// whole once the line goes quiet.
	MaxBufferSize = 64 * 1024
)

type session struct {
	conn        Conn
	timer       clockwork.Timer
	id          string
	device      string
	buf         []byte
	// Transport callbacks that arrive before Open publishes the session.
	pendingErrs []error
	gen         uint64
	overflowed  bool
	closed      bool
	opening     bool
	lostEarly   bool
}

type Option func(*Manager)

// WithClock replaces the clock driving the idle timer.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithPostOpenHook replaces the default AssertControlLines hook. A nil hook
// disables it.
func WithPostOpenHook(hook PostOpenHook) Option {
	return func(m *Manager) {
		m.hook = hook
	}
}

// Manager holds at most one open session. Open always replaces the current
// session with a new one; a closed session is never revived.
type Manager struct {
	transport Transport
	clock     clockwork.Clock
	hook      PostOpenHook
	queue     *eventQueue
	current   *session
	opMu      syncutil.Mutex // serializes Open, Close and Shutdown
	mu        syncutil.Mutex // protects current and session fields
}

func NewManager(transport Transport, opts ...Option) *Manager {
	m := &Manager{
		transport: transport,
		clock:     clockwork.NewRealClock(),
		hook:      AssertControlLines,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.queue = newEventQueue()
	return m
}

// Events returns the channel all session events are delivered on, in the
// order they happened. It is closed by Shutdown.
func (m *Manager) Events() <-chan Event {
	return m.queue.out
}

// Open closes any current session and acquires device at baudRate. On
// failure an error event is emitted as well as returned, and the manager
// stays closed.
func (m *Manager) Open(device string, baudRate int) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.closeCurrent()

	log.Debug().Msgf("opening serial device: %s at %d baud", device, baudRate)

	s := &session{
		id:      uuid.New().String(),
		device:  device,
		opening: true,
	}

	var err error
	switch {
	case device == "":
		err = fmt.Errorf("%w: no device path", ErrDeviceAcquisition)
	case baudRate <= 0:
		err = fmt.Errorf("%w: invalid baud rate %d", ErrDeviceAcquisition, baudRate)
	default:
		s.conn, err = m.transport.Open(device, baudRate, m.callbacks(s))
		if err != nil {
			err = fmt.Errorf("%w %s: %w", ErrDeviceAcquisition, device, err)
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to open serial device")
		m.queue.push(Event{Type: EventError, Device: device, Err: err})
		return err
	}

	if m.hook != nil {
		if hookErr := m.hook(s.conn); hookErr != nil {
			log.Warn().Err(hookErr).Str("device", device).Msg("post-open hook failed")
		}
	}

	m.mu.Lock()
	s.opening = false
	m.current = s
	m.queue.push(Event{Type: EventOpened, Device: device})
	for _, pending := range s.pendingErrs {
		m.pushTransportError(s, pending)
	}
	s.pendingErrs = nil
	lost := s.lostEarly
	m.mu.Unlock()

	log.Info().Str("session", s.id).Msgf("opened serial device: %s", device)

	if lost {
		m.removed(s)
	}
	return nil
}

// Close cancels any pending frame and releases the device. It is safe to
// call when nothing is open.
func (m *Manager) Close() {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.closeCurrent()
}

// ReceiveBytes appends chunk to the current session's buffer and restarts
// the idle timer. Bytes arriving while closed are dropped.
func (m *Manager) ReceiveBytes(chunk []byte) {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()

	if s == nil {
		log.Debug().Msgf("dropping %d bytes, no open session", len(chunk))
		return
	}
	m.receive(s, chunk)
}

// DeviceRemoved closes the current session and reports the removal as an
// error. Device watchers call this when the open device disappears.
func (m *Manager) DeviceRemoved() {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()

	if s != nil {
		m.removed(s)
	}
}

func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Device returns the path of the open device, or an empty string.
func (m *Manager) Device() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.device
}

// Shutdown closes the current session and stops event delivery. The Events
// channel is closed once it returns.
func (m *Manager) Shutdown() {
	m.Close()
	m.queue.stop()
}

func (m *Manager) callbacks(s *session) Callbacks {
	return Callbacks{
		Bytes: func(chunk []byte) {
			m.receive(s, chunk)
		},
		Error: func(err error) {
			m.transportError(s, err)
		},
		Removed: func() {
			m.removed(s)
		},
	}
}

func (m *Manager) receive(s *session, chunk []byte) {
	if len(chunk) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s.closed {
		return
	}

	if !s.overflowed && len(s.buf)+len(chunk) > MaxBufferSize {
		log.Warn().Str("device", s.device).Msg("buffer overflow, discarding data until idle")
		s.buf = nil
		s.overflowed = true
	}
	if !s.overflowed {
		s.buf = append(s.buf, chunk...)
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = m.clock.AfterFunc(IdleTimeout, func() {
		m.flush(s, gen)
	})
}

// flush runs when the idle timer fires. A stale generation means more bytes
// arrived after this timer was armed.
func (m *Manager) flush(s *session, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.closed || s.gen != gen || m.current != s {
		return
	}

	buf := s.buf
	overflowed := s.overflowed
	s.buf = nil
	s.overflowed = false
	s.timer = nil

	if overflowed || len(buf) == 0 {
		return
	}

	log.Debug().Msgf("idle timeout reached, processing buffer (%d bytes)", len(buf))

	if !utf8.Valid(buf) {
		log.Debug().Str("device", s.device).Msg("failed to decode buffer as UTF-8, discarding")
		return
	}

	text := Sanitize(string(buf))
	if text == "" {
		log.Debug().Msg("buffer is empty after sanitizing")
		return
	}

	log.Debug().Str("session", s.id).Msgf("frame received: %q", text)
	m.queue.push(Event{Type: EventData, Device: s.device, Text: text})
}

func (m *Manager) transportError(s *session, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.opening {
		s.pendingErrs = append(s.pendingErrs, err)
		return
	}
	if s.closed || m.current != s {
		return
	}
	m.pushTransportError(s, err)
}

// pushTransportError must be called with mu held.
func (m *Manager) pushTransportError(s *session, err error) {
	if !errors.Is(err, ErrTransport) {
		err = fmt.Errorf("%w: %w", ErrTransport, err)
	}
	log.Error().Err(err).Str("device", s.device).Msg("serial port error")
	m.queue.push(Event{Type: EventError, Device: s.device, Err: err})
}

func (m *Manager) removed(s *session) {
	m.mu.Lock()
	if s.opening {
		s.lostEarly = true
		m.mu.Unlock()
		return
	}
	if s.closed || m.current != s {
		m.mu.Unlock()
		return
	}
	m.detach(s)
	log.Warn().Str("device", s.device).Msg("serial device removed from system")
	m.queue.push(Event{Type: EventClosed, Device: s.device})
	m.queue.push(Event{
		Type:   EventError,
		Device: s.device,
		Err:    fmt.Errorf("%w: %s", ErrDeviceRemoved, s.device),
	})
	m.mu.Unlock()

	m.release(s)
}

// closeCurrent must be called with opMu held.
func (m *Manager) closeCurrent() {
	m.mu.Lock()
	s := m.current
	if s == nil {
		m.mu.Unlock()
		return
	}
	m.detach(s)
	log.Info().Str("session", s.id).Msgf("closing serial device: %s", s.device)
	m.queue.push(Event{Type: EventClosed, Device: s.device})
	m.mu.Unlock()

	m.release(s)
}

// detach must be called with mu held.
func (m *Manager) detach(s *session) {
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.buf = nil
	if m.current == s {
		m.current = nil
	}
}

func (*Manager) release(s *session) {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		log.Debug().Err(err).Str("device", s.device).Msg("error closing serial device")
	}
}
