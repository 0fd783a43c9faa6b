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

// Package output delivers finished scans to the focused application, either
// through the clipboard and a paste shortcut or as individual keystrokes.
package output

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// ClipboardSettle is the pause between writing the clipboard and
	// sending the paste shortcut.
	ClipboardSettle = 10 * time.Millisecond
	// SuffixSettle is the pause before the suffix key.
	SuffixSettle = 50 * time.Millisecond
)

// ErrSynthesis wraps any failure to post a synthetic key event.
var ErrSynthesis = errors.New("failed to synthesize input")

type Mode int

const (
	ModePaste Mode = iota
	ModeType
)

func (m Mode) String() string {
	switch m {
	case ModePaste:
		return "paste"
	case ModeType:
		return "type"
	default:
		return "unknown"
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "paste", "":
		return ModePaste, nil
	case "type":
		return ModeType, nil
	default:
		return ModePaste, fmt.Errorf("unknown output mode: %s", s)
	}
}

type Suffix int

const (
	SuffixNone Suffix = iota
	SuffixTab
	SuffixEnter
)

func (s Suffix) String() string {
	switch s {
	case SuffixNone:
		return "none"
	case SuffixTab:
		return "tab"
	case SuffixEnter:
		return "enter"
	default:
		return "unknown"
	}
}

func ParseSuffix(s string) (Suffix, error) {
	switch s {
	case "none", "":
		return SuffixNone, nil
	case "tab":
		return SuffixTab, nil
	case "enter":
		return SuffixEnter, nil
	default:
		return SuffixNone, fmt.Errorf("unknown suffix: %s", s)
	}
}

// Config is a snapshot of the output settings for one dispatch.
type Config struct {
	Mode             Mode
	Suffix           Suffix
	InterCharDelayMs int
	TrailingNewline  bool
}

func (c Config) interCharDelay() time.Duration {
	return time.Duration(c.InterCharDelayMs) * time.Millisecond
}

type Key int

const (
	KeyReturn Key = iota
	KeyTab
	KeyV
)

func (k Key) String() string {
	switch k {
	case KeyReturn:
		return "return"
	case KeyTab:
		return "tab"
	case KeyV:
		return "v"
	default:
		return "unknown"
	}
}

type Modifier int

const (
	ModNone Modifier = iota
	// ModPrimary is Command on macOS and Control elsewhere.
	ModPrimary
)

// Synthesizer posts keyboard events to whatever application has focus.
type Synthesizer interface {
	// KeyTap presses and releases key, holding mod around it.
	KeyTap(key Key, mod Modifier) error
	// UnicodeTap types a single character independent of keyboard layout.
	UnicodeTap(r rune) error
	// HasInputAuthorization reports whether the OS will accept synthetic
	// input from this process.
	HasInputAuthorization() bool
}

type Clipboard interface {
	WriteText(text string) error
}

// Warner tells the user that input authorization is missing.
type Warner interface {
	AccessibilityWarning()
}

type WarnerFunc func()

func (f WarnerFunc) AccessibilityWarning() {
	f()
}

type Option func(*Dispatcher)

func WithClock(clock clockwork.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

func WithWarner(w Warner) Option {
	return func(d *Dispatcher) {
		d.warner = w
	}
}

// Dispatcher turns frames into clipboard writes and key events. Output is
// meant to be called from a single goroutine; it blocks for the duration of
// any settle or inter-character delays.
type Dispatcher struct {
	synth     Synthesizer
	clipboard Clipboard
	warner    Warner
	clock     clockwork.Clock
	warnOnce  sync.Once
}

func NewDispatcher(synth Synthesizer, clipboard Clipboard, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		synth:     synth,
		clipboard: clipboard,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Output(text string, cfg Config) {
	if cfg.TrailingNewline {
		text += "\n"
	}

	log.Debug().
		Int("length", len(text)).
		Stringer("mode", cfg.Mode).
		Stringer("suffix", cfg.Suffix).
		Int("delay_ms", cfg.InterCharDelayMs).
		Msg("dispatching frame")

	authorized := d.synth.HasInputAuthorization()
	if !authorized {
		log.Warn().Msg("input authorization not granted")
		if cfg.Mode == ModeType {
			log.Error().Msg("type mode requires input authorization, dropping frame")
			return
		}
	}

	switch cfg.Mode {
	case ModeType:
		d.typeText(text, cfg.interCharDelay())
	default:
		d.paste(text, authorized)
	}

	if cfg.Suffix == SuffixNone || !authorized {
		return
	}

	d.clock.Sleep(SuffixSettle)
	key := KeyTab
	if cfg.Suffix == SuffixEnter {
		key = KeyReturn
	}
	d.tap(key, ModNone)
}

func (d *Dispatcher) paste(text string, authorized bool) {
	if err := d.clipboard.WriteText(text); err != nil {
		log.Error().Err(err).Msg("failed to write clipboard")
		return
	}

	if !authorized {
		log.Warn().Msg("text is on the clipboard but cannot be pasted automatically")
		d.warnOnce.Do(func() {
			if d.warner != nil {
				d.warner.AccessibilityWarning()
			}
		})
		return
	}

	d.clock.Sleep(ClipboardSettle)
	d.tap(KeyV, ModPrimary)
}

func (d *Dispatcher) typeText(text string, delay time.Duration) {
	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '\n':
			d.tap(KeyReturn, ModNone)
		case '\t':
			d.tap(KeyTab, ModNone)
		default:
			if err := d.synth.UnicodeTap(r); err != nil {
				log.Error().Err(err).Msgf("failed to type character %q", r)
			}
		}

		if delay > 0 && i < len(runes)-1 {
			d.clock.Sleep(delay)
		}
	}
}

func (d *Dispatcher) tap(key Key, mod Modifier) {
	if err := d.synth.KeyTap(key, mod); err != nil {
		log.Error().Err(err).Msgf("failed to tap %s", key)
	}
}
