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

package systray

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "None", delayLabel(0))
	assert.Equal(t, "5 ms", delayLabel(5))
	assert.Equal(t, "10 ms", delayLabel(10))
}

func TestPortLabel(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		assert.Equal(t, "COM3", portLabel("COM3"))
		return
	}
	assert.Equal(t, "cu.usbmodem1101", portLabel("/dev/cu.usbmodem1101"))
	assert.Equal(t, "ttyACM0", portLabel("/dev/ttyACM0"))
	assert.Equal(t, "/tmp/ttyV0", portLabel("/tmp/ttyV0"))
}

func TestAccessibilityMessage(t *testing.T) {
	t.Parallel()

	assert.Contains(t, accessibilityMessage("darwin"), "Accessibility")
	assert.Contains(t, accessibilityMessage("darwin"), "Cmd+V")
	assert.Contains(t, accessibilityMessage("linux"), "/dev/uinput")
	assert.Contains(t, accessibilityMessage("windows"), "clipboard")
}

//nolint:paralleltest // swaps the package dialog func
func TestAccessibilityWarning_DoesNotBlock(t *testing.T) {
	shown := make(chan struct{})
	release := make(chan struct{})
	orig := showAccessibilityDialog
	showAccessibilityDialog = func() {
		close(shown)
		<-release
	}
	t.Cleanup(func() {
		close(release)
		showAccessibilityDialog = orig
	})

	returned := make(chan struct{})
	go func() {
		AccessibilityWarning()
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("AccessibilityWarning waited for the dialog")
	}

	select {
	case <-shown:
	case <-time.After(2 * time.Second):
		t.Fatal("dialog was never shown")
	}
}

func TestTrayIconEmbedded(t *testing.T) {
	t.Parallel()

	assert.Greater(t, len(trayIcon), 8)
	assert.Equal(t, []byte("\x89PNG"), trayIcon[:4])
}
