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

package output

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// SystemClipboard writes plain text to the OS clipboard.
type SystemClipboard struct {
	initErr  error
	initOnce sync.Once
}

func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

func (c *SystemClipboard) WriteText(text string) error {
	c.initOnce.Do(func() {
		c.initErr = clipboard.Init()
	})
	if c.initErr != nil {
		return fmt.Errorf("failed to initialize clipboard: %w", c.initErr)
	}
	// Write returns a channel that fires when another app takes ownership.
	_ = clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
