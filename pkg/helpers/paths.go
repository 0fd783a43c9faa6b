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

package helpers

import (
	"path/filepath"

	"github.com/ZaparooProject/scanwedge/pkg/config"
	"github.com/adrg/xdg"
)

// ConfigDir is where config.toml lives.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

// DataDir holds runtime data owned by the app.
func DataDir() string {
	return filepath.Join(xdg.DataHome, config.AppName)
}

// LogDir holds the rotating log file.
func LogDir() string {
	return filepath.Join(DataDir(), config.LogsDir)
}

// LogPath is the full path of the active log file.
func LogPath() string {
	return filepath.Join(LogDir(), config.LogFile)
}
