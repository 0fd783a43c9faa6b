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
	"fmt"
	"time"

	"github.com/ZaparooProject/scanwedge/pkg/config"
	"github.com/ZaparooProject/scanwedge/pkg/devices"
	"github.com/ZaparooProject/scanwedge/pkg/helpers/syncutil"
	"github.com/ZaparooProject/scanwedge/pkg/output"
	"github.com/ZaparooProject/scanwedge/pkg/publishers"
	"github.com/ZaparooProject/scanwedge/pkg/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoDevices is returned when there is nothing to open.
var ErrNoDevices = errors.New("no serial devices found")

type Sessions interface {
	Events() <-chan session.Event
	Open(device string, baudRate int) error
	Close()
	DeviceRemoved()
	IsOpen() bool
	Device() string
}

type Outputter interface {
	Output(text string, cfg output.Config)
}

type DeviceWatcher interface {
	Run(ctx context.Context) error
	Changes() <-chan devices.Change
}

// Listener receives bridge notifications. Every callback runs on the bridge
// event loop, one at a time. Nil fields are skipped.
type Listener struct {
	Opened         func(device string)
	Closed         func(device string)
	Data           func(text string)
	Error          func(err error)
	DevicesChanged func()
}

type Deps struct {
	Config     *config.Instance
	Sessions   Sessions
	Dispatcher Outputter
	Watcher    DeviceWatcher
	List       func() ([]string, error)
	Scans      chan<- publishers.Scan
}

// Bridge connects the session manager to the output dispatcher and keeps
// the selected port open across hotplug.
type Bridge struct {
	cfg        *config.Instance
	sessions   Sessions
	dispatcher Outputter
	watcher    DeviceWatcher
	list       func() ([]string, error)
	scans      chan<- publishers.Scan
	listeners  []Listener
	mu         syncutil.RWMutex
}

func NewBridge(deps Deps) *Bridge {
	list := deps.List
	if list == nil {
		list = devices.List
	}
	return &Bridge{
		cfg:        deps.Config,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		watcher:    deps.Watcher,
		list:       list,
		scans:      deps.Scans,
	}
}

func (b *Bridge) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Bridge) each(fn func(l Listener)) {
	b.mu.RLock()
	ls := append([]Listener(nil), b.listeners...)
	b.mu.RUnlock()
	for _, l := range ls {
		fn(l)
	}
}

// Ports lists the devices a scanner could be attached to.
func (b *Bridge) Ports() ([]string, error) {
	ports, err := b.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial devices: %w", err)
	}
	return ports, nil
}

// OpenPort opens device at the configured baud rate and remembers it as the
// selected port.
func (b *Bridge) OpenPort(device string) error {
	b.cfg.SetSerialPort(device)
	if err := b.cfg.Save(); err != nil {
		log.Warn().Err(err).Msg("failed to save selected port")
	}
	if err := b.sessions.Open(device, b.cfg.BaudRate()); err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	return nil
}

func (b *Bridge) ClosePort() {
	b.sessions.Close()
}

func (b *Bridge) IsOpen() bool {
	return b.sessions.IsOpen()
}

func (b *Bridge) Device() string {
	return b.sessions.Device()
}

// TogglePort closes the open port, or opens the preferred one.
func (b *Bridge) TogglePort() error {
	if b.sessions.IsOpen() {
		b.sessions.Close()
		return nil
	}
	device, err := b.preferredPort()
	if err != nil {
		return err
	}
	if err := b.sessions.Open(device, b.cfg.BaudRate()); err != nil {
		return fmt.Errorf("failed to open port: %w", err)
	}
	return nil
}

// preferredPort is the configured port, or the first listed device when
// none is configured.
func (b *Bridge) preferredPort() (string, error) {
	if p := b.cfg.SerialPort(); p != "" {
		return p, nil
	}
	ports, err := b.Ports()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", ErrNoDevices
	}
	return ports[0], nil
}

// AutoOpen opens the preferred port if auto-open is enabled. Failures are
// logged and otherwise ignored.
func (b *Bridge) AutoOpen() {
	if !b.cfg.AutoOpen() {
		log.Debug().Msg("auto-open disabled")
		return
	}
	device, err := b.preferredPort()
	if err != nil {
		log.Info().Err(err).Msg("no port to auto-open")
		return
	}
	log.Info().Msgf("auto-opening %s at %d baud", device, b.cfg.BaudRate())
	if err := b.sessions.Open(device, b.cfg.BaudRate()); err != nil {
		log.Warn().Err(err).Msg("auto-open failed")
	}
}

// Run processes session events and hotplug changes until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	var changes <-chan devices.Change
	if b.watcher != nil {
		changes = b.watcher.Changes()
		g.Go(func() error {
			if err := b.watcher.Run(ctx); err != nil {
				log.Warn().Err(err).Msg("device watcher stopped, hotplug disabled")
			}
			return nil
		})
	}

	g.Go(func() error {
		return b.loop(ctx, changes)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bridge stopped: %w", err)
	}
	return nil
}

func (b *Bridge) loop(ctx context.Context, changes <-chan devices.Change) error {
	events := b.sessions.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			b.handleEvent(e)
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			b.handleChange(c)
		}
	}
}

func (b *Bridge) handleEvent(e session.Event) {
	switch e.Type {
	case session.EventOpened:
		log.Info().Msgf("port opened: %s", e.Device)
		b.each(func(l Listener) {
			if l.Opened != nil {
				l.Opened(e.Device)
			}
		})
	case session.EventClosed:
		log.Info().Msgf("port closed: %s", e.Device)
		b.each(func(l Listener) {
			if l.Closed != nil {
				l.Closed(e.Device)
			}
		})
	case session.EventData:
		b.handleData(e)
	case session.EventError:
		log.Error().Err(e.Err).Str("device", e.Device).Msg("session error")
		b.each(func(l Listener) {
			if l.Error != nil {
				l.Error(e.Err)
			}
		})
	}
}

func (b *Bridge) handleData(e session.Event) {
	cfg, err := OutputConfig(b.cfg.Output())
	if err != nil {
		log.Error().Err(err).Msg("invalid output settings, using defaults")
	}
	b.dispatcher.Output(e.Text, cfg)

	if b.scans != nil {
		scan := publishers.Scan{
			Time:     time.Now(),
			Text:     e.Text,
			Device:   e.Device,
			DeviceID: b.cfg.DeviceID(),
		}
		select {
		case b.scans <- scan:
		default:
			log.Warn().Msg("scan publish queue full, dropping scan")
		}
	}

	b.each(func(l Listener) {
		if l.Data != nil {
			l.Data(e.Text)
		}
	})
}

func (b *Bridge) handleChange(c devices.Change) {
	log.Debug().Msgf("device %s: %s", c.Type, c.Path)

	switch c.Type {
	case devices.DeviceRemoved:
		if b.sessions.IsOpen() && b.sessions.Device() == c.Path {
			b.sessions.DeviceRemoved()
		}
	case devices.DeviceAdded:
		if !b.sessions.IsOpen() && b.cfg.AutoOpen() {
			if want := b.cfg.SerialPort(); want == "" || want == c.Path {
				log.Info().Msgf("auto-opening new device %s", c.Path)
				if err := b.sessions.Open(c.Path, b.cfg.BaudRate()); err != nil {
					log.Warn().Err(err).Msg("auto-open failed")
				}
			}
		}
	}

	b.each(func(l Listener) {
		if l.DevicesChanged != nil {
			l.DevicesChanged()
		}
	})
}

// OutputConfig converts stored output settings to a dispatcher config.
// Unknown values fall back to paste mode with no suffix.
func OutputConfig(o config.Output) (output.Config, error) {
	mode, modeErr := output.ParseMode(o.Mode)
	suffix, suffixErr := output.ParseSuffix(o.Suffix)
	return output.Config{
		Mode:             mode,
		Suffix:           suffix,
		InterCharDelayMs: o.InterCharDelayMs,
		TrailingNewline:  o.TrailingNewline,
	}, errors.Join(modeErr, suffixErr)
}
