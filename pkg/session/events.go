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
	"sync"

	"github.com/ZaparooProject/scanwedge/pkg/helpers/syncutil"
)

type EventType int

const (
	EventOpened EventType = iota
	EventClosed
	EventData
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventClosed:
		return "closed"
	case EventData:
		return "data"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted by the Manager. Text is set for EventData, Err for
// EventError; Device is the device path the event relates to.
type Event struct {
	Err    error
	Device string
	Text   string
	Type   EventType
}

// eventQueue is an unbounded FIFO in front of the Events channel. Pushing
// never blocks, so events can be queued while the manager lock is held and
// a slow consumer can't stall the transport or timer goroutines.
type eventQueue struct {
	out      chan Event
	notify   chan struct{}
	done     chan struct{}
	stopped  chan struct{}
	pending  []Event
	stopOnce sync.Once
	mu       syncutil.Mutex
}

func newEventQueue() *eventQueue {
	q := &eventQueue{
		out:     make(chan Event),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *eventQueue) run() {
	defer close(q.stopped)
	defer close(q.out)

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			select {
			case <-q.notify:
				continue
			case <-q.done:
				return
			}
		}
		e := q.pending[0]
		q.pending[0] = Event{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		select {
		case q.out <- e:
		case <-q.done:
			return
		}
	}
}

// stop ends delivery and closes the out channel. Undelivered events are
// dropped.
func (q *eventQueue) stop() {
	q.stopOnce.Do(func() {
		close(q.done)
	})
	<-q.stopped
}
