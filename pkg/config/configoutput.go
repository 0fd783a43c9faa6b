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

package config

import "fmt"

const (
	OutputModePaste = "paste"
	OutputModeType  = "type"
	SuffixNone      = "none"
	SuffixTab       = "tab"
	SuffixEnter     = "enter"
)

// InterCharDelays lists the accepted inter-character delays in milliseconds.
var InterCharDelays = []int{0, 5, 10}

type Output struct {
	Mode             string `toml:"mode" validate:"oneof=paste type"`
	Suffix           string `toml:"suffix" validate:"oneof=none tab enter"`
	InterCharDelayMs int    `toml:"inter_char_delay_ms" validate:"oneof=0 5 10"`
	TrailingNewline  bool   `toml:"trailing_newline"`
}

// Output returns a copy of the output settings. The dispatcher reads one
// snapshot per frame so menu changes never apply halfway through a scan.
func (c *Instance) Output() Output {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Output
}

func (c *Instance) SetOutputMode(mode string) error {
	if err := validate.Var(mode, "oneof=paste type"); err != nil {
		return fmt.Errorf("invalid output mode %q: %w", mode, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Output.Mode = mode
	return nil
}

func (c *Instance) SetSuffix(suffix string) error {
	if err := validate.Var(suffix, "oneof=none tab enter"); err != nil {
		return fmt.Errorf("invalid suffix %q: %w", suffix, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Output.Suffix = suffix
	return nil
}

func (c *Instance) SetInterCharDelayMs(ms int) error {
	if err := validate.Var(ms, "oneof=0 5 10"); err != nil {
		return fmt.Errorf("invalid inter-char delay %d: %w", ms, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Output.InterCharDelayMs = ms
	return nil
}

func (c *Instance) SetTrailingNewline(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Output.TrailingNewline = enabled
}
