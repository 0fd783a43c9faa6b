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

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZaparooProject/scanwedge/pkg/config"
	"github.com/ZaparooProject/scanwedge/pkg/devices"
	"github.com/ZaparooProject/scanwedge/pkg/helpers/syncutil"
	"github.com/ZaparooProject/scanwedge/pkg/output"
	"github.com/ZaparooProject/scanwedge/pkg/publishers"
	"github.com/ZaparooProject/scanwedge/pkg/session"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openCall struct {
	device string
	baud   int
}

type fakeSessions struct {
	openErr  error
	events   chan session.Event
	device   string
	opens    []openCall
	closes   int
	removals int
	open     bool
	mu       syncutil.Mutex
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{events: make(chan session.Event, 16)}
}

func (s *fakeSessions) Events() <-chan session.Event {
	return s.events
}

func (s *fakeSessions) Open(device string, baud int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens = append(s.opens, openCall{device: device, baud: baud})
	if s.openErr != nil {
		return s.openErr
	}
	s.open = true
	s.device = device
	return nil
}

func (s *fakeSessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.open = false
}

func (s *fakeSessions) DeviceRemoved() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removals++
	s.open = false
}

func (s *fakeSessions) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *fakeSessions) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

func (s *fakeSessions) state() (opens []openCall, closes, removals int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]openCall(nil), s.opens...), s.closes, s.removals
}

type outputCall struct {
	text string
	cfg  output.Config
}

type fakeOutputter struct {
	calls []outputCall
	mu    syncutil.Mutex
}

func (o *fakeOutputter) Output(text string, cfg output.Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, outputCall{text: text, cfg: cfg})
}

func (o *fakeOutputter) recorded() []outputCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]outputCall(nil), o.calls...)
}

type fakeWatcher struct {
	runErr  error
	changes chan devices.Change
}

func (w *fakeWatcher) Run(ctx context.Context) error {
	if w.runErr != nil {
		return w.runErr
	}
	<-ctx.Done()
	return nil
}

func (w *fakeWatcher) Changes() <-chan devices.Change {
	return w.changes
}

func newTestConfig(t *testing.T) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfig(afero.NewMemMapFs(), "/config", config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

type rig struct {
	cfg      *config.Instance
	sessions *fakeSessions
	out      *fakeOutputter
	watcher  *fakeWatcher
	bridge   *Bridge
	scans    chan publishers.Scan
	ports    []string
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		cfg:      newTestConfig(t),
		sessions: newFakeSessions(),
		out:      &fakeOutputter{},
		watcher:  &fakeWatcher{changes: make(chan devices.Change, 4)},
		scans:    make(chan publishers.Scan, 4),
		ports:    []string{"/dev/cu.usbmodem1101", "/dev/cu.usbserial-1"},
	}
	r.bridge = NewBridge(Deps{
		Config:     r.cfg,
		Sessions:   r.sessions,
		Dispatcher: r.out,
		Watcher:    r.watcher,
		Scans:      r.scans,
		List: func() ([]string, error) {
			return r.ports, nil
		},
	})
	return r
}

// run starts the bridge and stops it when the test ends.
func (r *rig) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.bridge.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("bridge did not stop")
		}
	})
}

func TestBridge_DataDispatchedWithSnapshot(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	require.NoError(t, r.cfg.SetOutputMode(config.OutputModeType))
	require.NoError(t, r.cfg.SetSuffix(config.SuffixEnter))
	require.NoError(t, r.cfg.SetInterCharDelayMs(5))
	r.cfg.SetTrailingNewline(true)

	got := make(chan string, 1)
	r.bridge.AddListener(Listener{Data: func(text string) { got <- text }})
	r.run(t)

	r.sessions.events <- session.Event{Type: session.EventData, Device: "/dev/ttyACM0", Text: "ABC123"}

	select {
	case text := <-got:
		assert.Equal(t, "ABC123", text)
	case <-time.After(2 * time.Second):
		t.Fatal("no data callback")
	}

	calls := r.out.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "ABC123", calls[0].text)
	assert.Equal(t, output.Config{
		Mode:             output.ModeType,
		Suffix:           output.SuffixEnter,
		InterCharDelayMs: 5,
		TrailingNewline:  true,
	}, calls[0].cfg)

	select {
	case scan := <-r.scans:
		assert.Equal(t, "ABC123", scan.Text)
		assert.Equal(t, "/dev/ttyACM0", scan.Device)
		assert.Equal(t, r.cfg.DeviceID(), scan.DeviceID)
	default:
		t.Fatal("scan was not published")
	}
}

func TestBridge_ListenerOrder(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	seen := make(chan string, 8)
	r.bridge.AddListener(Listener{
		Opened: func(d string) { seen <- "opened " + d },
		Closed: func(d string) { seen <- "closed " + d },
		Error:  func(err error) { seen <- "error " + err.Error() },
	})
	r.run(t)

	r.sessions.events <- session.Event{Type: session.EventOpened, Device: "a"}
	r.sessions.events <- session.Event{Type: session.EventClosed, Device: "a"}
	r.sessions.events <- session.Event{Type: session.EventError, Device: "a", Err: session.ErrDeviceRemoved}

	for _, want := range []string{
		"opened a",
		"closed a",
		"error " + session.ErrDeviceRemoved.Error(),
	} {
		select {
		case got := <-seen:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("missing %q", want)
		}
	}
}

func TestBridge_AutoOpenFirstPort(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	r.bridge.AutoOpen()

	opens, _, _ := r.sessions.state()
	require.Len(t, opens, 1)
	assert.Equal(t, openCall{device: "/dev/cu.usbmodem1101", baud: 9600}, opens[0])
}

func TestBridge_AutoOpenConfiguredPort(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	r.cfg.SetSerialPort("/dev/ttyUSB3")
	require.NoError(t, r.cfg.SetBaudRate(115200))
	r.bridge.AutoOpen()

	opens, _, _ := r.sessions.state()
	require.Len(t, opens, 1)
	assert.Equal(t, openCall{device: "/dev/ttyUSB3", baud: 115200}, opens[0])
}

func TestBridge_AutoOpenDisabledOrEmpty(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	r.cfg.SetAutoOpen(false)
	r.bridge.AutoOpen()
	opens, _, _ := r.sessions.state()
	assert.Empty(t, opens)

	r2 := newRig(t)
	r2.ports = nil
	r2.bridge.AutoOpen()
	opens, _, _ = r2.sessions.state()
	assert.Empty(t, opens)
}

func TestBridge_AutoOpenFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	r.sessions.openErr = session.ErrDeviceAcquisition
	r.bridge.AutoOpen()

	opens, _, _ := r.sessions.state()
	assert.Len(t, opens, 1)
	assert.False(t, r.bridge.IsOpen())
}

func TestBridge_OpenPortSavesSelection(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	require.NoError(t, r.bridge.OpenPort("/dev/cu.usbserial-1"))
	assert.Equal(t, "/dev/cu.usbserial-1", r.cfg.SerialPort())
	assert.True(t, r.bridge.IsOpen())
	assert.Equal(t, "/dev/cu.usbserial-1", r.bridge.Device())

	r.sessions.openErr = errors.New("busy")
	err := r.bridge.OpenPort("/dev/cu.usbmodem1101")
	require.Error(t, err)
}

func TestBridge_TogglePort(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	require.NoError(t, r.bridge.TogglePort())
	assert.True(t, r.bridge.IsOpen())

	require.NoError(t, r.bridge.TogglePort())
	assert.False(t, r.bridge.IsOpen())

	_, closes, _ := r.sessions.state()
	assert.Equal(t, 1, closes)

	r.ports = nil
	require.ErrorIs(t, r.bridge.TogglePort(), ErrNoDevices)
}

func TestBridge_HotplugRemovalOfOpenDevice(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	require.NoError(t, r.bridge.OpenPort("/dev/ttyACM0"))

	changed := make(chan struct{}, 4)
	r.bridge.AddListener(Listener{DevicesChanged: func() { changed <- struct{}{} }})
	r.run(t)

	r.watcher.changes <- devices.Change{Type: devices.DeviceRemoved, Path: "/dev/ttyUSB9"}
	r.watcher.changes <- devices.Change{Type: devices.DeviceRemoved, Path: "/dev/ttyACM0"}

	for range 2 {
		select {
		case <-changed:
		case <-time.After(2 * time.Second):
			t.Fatal("no devices changed callback")
		}
	}

	_, _, removals := r.sessions.state()
	assert.Equal(t, 1, removals, "only the open device triggers removal")
}

func TestBridge_HotplugAddAutoOpens(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	changed := make(chan struct{}, 4)
	r.bridge.AddListener(Listener{DevicesChanged: func() { changed <- struct{}{} }})
	r.run(t)

	r.watcher.changes <- devices.Change{Type: devices.DeviceAdded, Path: "/dev/ttyACM1"}
	r.watcher.changes <- devices.Change{Type: devices.DeviceAdded, Path: "/dev/ttyACM2"}

	for range 2 {
		select {
		case <-changed:
		case <-time.After(2 * time.Second):
			t.Fatal("no devices changed callback")
		}
	}

	opens, _, _ := r.sessions.state()
	require.Len(t, opens, 1, "second device ignored while a session is open")
	assert.Equal(t, "/dev/ttyACM1", opens[0].device)
}

func TestBridge_HotplugAddWaitsForConfiguredPort(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	r.cfg.SetSerialPort("/dev/ttyACM2")
	changed := make(chan struct{}, 4)
	r.bridge.AddListener(Listener{DevicesChanged: func() { changed <- struct{}{} }})
	r.run(t)

	r.watcher.changes <- devices.Change{Type: devices.DeviceAdded, Path: "/dev/ttyACM1"}
	r.watcher.changes <- devices.Change{Type: devices.DeviceAdded, Path: "/dev/ttyACM2"}
	for range 2 {
		<-changed
	}

	opens, _, _ := r.sessions.state()
	require.Len(t, opens, 1)
	assert.Equal(t, "/dev/ttyACM2", opens[0].device)
}

func TestBridge_WatcherFailureKeepsLoopRunning(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	r.watcher.runErr = errors.New("no inotify")
	got := make(chan string, 1)
	r.bridge.AddListener(Listener{Data: func(text string) { got <- text }})
	r.run(t)

	r.sessions.events <- session.Event{Type: session.EventData, Text: "still here"}
	select {
	case text := <-got:
		assert.Equal(t, "still here", text)
	case <-time.After(2 * time.Second):
		t.Fatal("event loop stopped with the watcher")
	}
}

func TestBridge_EventsClosedEndsRun(t *testing.T) {
	t.Parallel()

	r := newRig(t)
	r.bridge.watcher = nil
	close(r.sessions.events)

	done := make(chan error, 1)
	go func() { done <- r.bridge.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after events closed")
	}
}

func TestOutputConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       config.Output
		expected output.Config
		wantErr  bool
	}{
		{
			name:     "defaults",
			in:       config.BaseDefaults.Output,
			expected: output.Config{Mode: output.ModePaste, Suffix: output.SuffixNone},
		},
		{
			name: "type with tab",
			in:   config.Output{Mode: "type", Suffix: "tab", InterCharDelayMs: 10},
			expected: output.Config{
				Mode:             output.ModeType,
				Suffix:           output.SuffixTab,
				InterCharDelayMs: 10,
			},
		},
		{
			name:     "invalid falls back",
			in:       config.Output{Mode: "shout", Suffix: "space", TrailingNewline: true},
			expected: output.Config{TrailingNewline: true},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := OutputConfig(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}
