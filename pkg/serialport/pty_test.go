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

package serialport

import (
	"testing"
	"time"

	"github.com/ZaparooProject/scanwedge/pkg/session"
	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openPty returns the master side and the slave path. Tests are skipped where
// the serial library cannot put a pty into raw mode.
func openPty(t *testing.T) (master interface{ Write([]byte) (int, error) }, slavePath string) {
	t.Helper()
	m, s, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = m.Close()
		_ = s.Close()
	})
	return m, s.Name()
}

func TestPty_TransportReadsBytes(t *testing.T) {
	t.Parallel()

	master, slave := openPty(t)
	rec := &recorder{}

	conn, err := NewTransport().Open(slave, 9600, rec.callbacks())
	if err != nil {
		t.Skipf("serial open on pty not supported: %v", err)
	}

	_, err = master.Write([]byte("4006381333931\r\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return rec.joined() == "4006381333931\r\n"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	waitDone(t, conn)
}

func TestPty_ManagerEmitsFrame(t *testing.T) {
	t.Parallel()

	master, slave := openPty(t)

	m := session.NewManager(NewTransport(), session.WithPostOpenHook(nil))
	defer m.Shutdown()

	if err := m.Open(slave, 9600); err != nil {
		t.Skipf("serial open on pty not supported: %v", err)
	}

	next := func() session.Event {
		select {
		case e := <-m.Events():
			return e
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for session event")
			return session.Event{}
		}
	}

	opened := next()
	require.Equal(t, session.EventOpened, opened.Type)
	assert.Equal(t, slave, opened.Device)

	for _, chunk := range []string{"ABC", "123", "\r\n"} {
		_, err := master.Write([]byte(chunk))
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}

	data := next()
	require.Equal(t, session.EventData, data.Type)
	assert.Equal(t, "ABC123", data.Text)

	m.Close()
	closed := next()
	assert.Equal(t, session.EventClosed, closed.Type)
}
