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

const DefaultBaudRate = 9600

type Serial struct {
	Port               string `toml:"port,omitempty"`
	BaudRate           int    `toml:"baud_rate" validate:"min=50,max=4000000"`
	AutoOpen           bool   `toml:"auto_open"`
	AssertControlLines bool   `toml:"assert_control_lines"`
}

// SerialPort returns the configured device path. An empty string means the
// first discovered device should be used.
func (c *Instance) SerialPort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.Port
}

func (c *Instance) SetSerialPort(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.Port = path
}

func (c *Instance) BaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Serial.BaudRate <= 0 {
		return DefaultBaudRate
	}
	return c.vals.Serial.BaudRate
}

func (c *Instance) SetBaudRate(baud int) error {
	if err := validate.Var(baud, "min=50,max=4000000"); err != nil {
		return fmt.Errorf("invalid baud rate %d: %w", baud, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.BaudRate = baud
	return nil
}

func (c *Instance) AutoOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.AutoOpen
}

func (c *Instance) SetAutoOpen(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.AutoOpen = enabled
}

func (c *Instance) AssertControlLines() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.AssertControlLines
}

func (c *Instance) SetAssertControlLines(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.AssertControlLines = enabled
}
