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

//go:build linux

package output

import (
	"fmt"
	"time"

	"github.com/ZaparooProject/scanwedge/pkg/helpers/syncutil"
	"github.com/bendahl/uinput"
	"golang.org/x/sys/unix"
)

const (
	DeviceName = "ScanWedge"
	uinputDev  = "/dev/uinput"
	// Gap between the key events of one chord.
	pressDelay = 5 * time.Millisecond
)

type keyDevice interface {
	KeyDown(key int) error
	KeyUp(key int) error
	Close() error
}

// SystemSynthesizer types through a uinput virtual keyboard. The device is
// created on first use so the app can start before access to /dev/uinput
// has been granted.
type SystemSynthesizer struct {
	kbd    keyDevice
	create func() (keyDevice, error)
	access func() bool
	mu     syncutil.Mutex
}

func NewSystemSynthesizer() (*SystemSynthesizer, error) {
	return &SystemSynthesizer{
		create: func() (keyDevice, error) {
			kbd, err := uinput.CreateKeyboard(uinputDev, []byte(DeviceName))
			if err != nil {
				return nil, fmt.Errorf("failed to create keyboard device: %w", err)
			}
			return kbd, nil
		},
		access: func() bool {
			return unix.Access(uinputDev, unix.W_OK) == nil
		},
	}, nil
}

func (s *SystemSynthesizer) HasInputAuthorization() bool {
	return s.access()
}

func (s *SystemSynthesizer) device() (keyDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kbd != nil {
		return s.kbd, nil
	}
	kbd, err := s.create()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}
	s.kbd = kbd
	return kbd, nil
}

func (s *SystemSynthesizer) combo(keys ...int) error {
	kbd, err := s.device()
	if err != nil {
		return err
	}
	send := func(key int, down bool) error {
		if down {
			if err := kbd.KeyDown(key); err != nil {
				return fmt.Errorf("%w: failed to press key %d: %w", ErrSynthesis, key, err)
			}
			return nil
		}
		if err := kbd.KeyUp(key); err != nil {
			return fmt.Errorf("%w: failed to release key %d: %w", ErrSynthesis, key, err)
		}
		return nil
	}
	return pressChord(keys, send, func() { time.Sleep(pressDelay) })
}

func (s *SystemSynthesizer) KeyTap(key Key, mod Modifier) error {
	var code int
	switch key {
	case KeyReturn:
		code = evKeyEnter
	case KeyTab:
		code = evKeyTab
	case KeyV:
		code = evKeyV
	default:
		return fmt.Errorf("%w: unknown key %d", ErrSynthesis, key)
	}

	if mod == ModPrimary {
		return s.combo(evKeyLeftCtrl, code)
	}
	return s.combo(code)
}

func (s *SystemSynthesizer) UnicodeTap(r rune) error {
	stroke, ok := strokeFor(r)
	if !ok {
		return fmt.Errorf("%w: no key for %q", ErrSynthesis, r)
	}
	if stroke.shift {
		return s.combo(evKeyLeftShift, stroke.code)
	}
	return s.combo(stroke.code)
}

func (s *SystemSynthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kbd == nil {
		return nil
	}
	err := s.kbd.Close()
	s.kbd = nil
	if err != nil {
		return fmt.Errorf("failed to close keyboard device: %w", err)
	}
	return nil
}
