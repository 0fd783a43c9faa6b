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

//go:build deadlock

// Package syncutil wraps the sync mutexes so the whole module can switch to
// go-deadlock with -tags=deadlock. Session, config and dispatcher state all
// lock through these types.
package syncutil

import (
	"sync"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled reports whether lock-order checking is compiled in.
const DeadlockEnabled = true

// Type mode frames block the event loop for seconds at most, so anything
// holding a lock past this is a real bug.
const lockTimeout = 10 * time.Second

func init() {
	deadlock.Opts.DeadlockTimeout = lockTimeout
}

// Mutex is a go-deadlock mutex in deadlock builds.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a go-deadlock reader/writer mutex in deadlock builds.
type RWMutex struct {
	deadlock.RWMutex
}

var (
	_ sync.Locker = (*Mutex)(nil)
	_ sync.Locker = (*RWMutex)(nil)
)
