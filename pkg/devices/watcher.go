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

package devices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce coalesces the burst of events a single plug produces.
const DefaultDebounce = 100 * time.Millisecond

type ChangeType int

const (
	DeviceAdded ChangeType = iota
	DeviceRemoved
)

func (c ChangeType) String() string {
	switch c {
	case DeviceAdded:
		return "added"
	case DeviceRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

type Change struct {
	Path string
	Type ChangeType
}

type WatcherOption func(*Watcher)

func WithDir(dir string) WatcherOption {
	return func(w *Watcher) {
		w.dir = dir
	}
}

func WithMatch(match func(name string) bool) WatcherOption {
	return func(w *Watcher) {
		w.match = match
	}
}

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

func WithWatcherClock(clock clockwork.Clock) WatcherOption {
	return func(w *Watcher) {
		w.clock = clock
	}
}

// Watcher reports scanner device nodes appearing and disappearing in a
// directory. Devices present when Run starts are treated as known and are
// not reported as added.
type Watcher struct {
	clock    clockwork.Clock
	match    func(name string) bool
	changes  chan Change
	dir      string
	debounce time.Duration
}

func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		clock:    clockwork.NewRealClock(),
		match:    Candidate,
		changes:  make(chan Change, 10),
		dir:      DevDir,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Changes is closed when Run returns.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.changes)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close device watcher")
		}
	}()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	known := make(map[string]bool)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if w.match(e.Name()) {
			known[filepath.Join(w.dir, e.Name())] = true
		}
	}

	log.Debug().Msgf("watching %s for serial devices", w.dir)

	var (
		timer   clockwork.Timer
		timerC  <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Dir(event.Name) != filepath.Clean(w.dir) {
				continue
			}
			if !w.match(filepath.Base(event.Name)) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) {
				continue
			}
			pending[event.Name] = true
			if timer == nil {
				timer = w.clock.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.Chan()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("fsnotify error")

		case <-timerC:
			for path := range pending {
				change, ok := w.check(path, known)
				if !ok {
					continue
				}
				select {
				case w.changes <- change:
				case <-ctx.Done():
					return nil
				}
			}
			pending = make(map[string]bool)
		}
	}
}

// check compares the current state of path against known and updates it.
func (*Watcher) check(path string, known map[string]bool) (Change, bool) {
	_, err := os.Stat(path)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Debug().Err(err).Str("path", path).Msg("failed to stat device")
		return Change{}, false
	}

	switch {
	case exists && !known[path]:
		known[path] = true
		log.Info().Str("path", path).Msg("serial device added")
		return Change{Path: path, Type: DeviceAdded}, true
	case !exists && known[path]:
		delete(known, path)
		log.Info().Str("path", path).Msg("serial device removed")
		return Change{Path: path, Type: DeviceRemoved}, true
	default:
		return Change{}, false
	}
}
