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
	"os/exec"
	"runtime"

	"github.com/ZaparooProject/scanwedge/pkg/config"
	"github.com/nixinwang/dialog"
	"github.com/rs/zerolog/log"
)

const accessibilitySettingsURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_Accessibility"

func accessibilityMessage(goos string) string {
	switch goos {
	case "darwin":
		return "Automatic paste needs the Accessibility permission.\n\n" +
			"The scan has been copied to the clipboard. Press Cmd+V to paste it, " +
			"or allow " + config.AppTitle + " in System Settings > Privacy & Security > Accessibility.\n\n" +
			"Open System Settings now?"
	case "linux":
		return "Automatic paste needs write access to /dev/uinput.\n\n" +
			"The scan has been copied to the clipboard. Press Ctrl+V to paste it, " +
			"or add your user to the group that owns /dev/uinput."
	default:
		return "Automatic paste is not supported on this system.\n\n" +
			"The scan has been copied to the clipboard."
	}
}

// showAccessibilityDialog blocks until the user dismisses the dialog.
var showAccessibilityDialog = accessibilityDialog

// AccessibilityWarning shows the missing input permission dialog and, on
// macOS, offers to open the Accessibility settings pane. It returns without
// waiting for the dialog.
func AccessibilityWarning() {
	go showAccessibilityDialog()
}

func accessibilityDialog() {
	msg := accessibilityMessage(runtime.GOOS)
	title := config.AppTitle + ": Permission Required"

	if runtime.GOOS != "darwin" {
		dialog.Message("%s", msg).Title(title).Info()
		return
	}

	if !dialog.Message("%s", msg).Title(title).YesNo() {
		return
	}
	if err := exec.Command("open", accessibilitySettingsURL).Start(); err != nil {
		log.Error().Err(err).Msg("failed to open accessibility settings")
	}
}
