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

const DefaultMQTTTopic = "scanwedge/scans"

type Publish struct {
	MQTTBroker string `toml:"mqtt_broker,omitempty" validate:"omitempty,hostname_port"`
	MQTTTopic  string `toml:"mqtt_topic,omitempty"`
}

type Telemetry struct {
	SentryDSN      string `toml:"sentry_dsn,omitempty" validate:"omitempty,url"`
	ErrorReporting bool   `toml:"error_reporting"`
}

// MQTTPublish returns the broker address and topic for publishing scans. An
// empty broker disables publishing.
func (c *Instance) MQTTPublish() (broker, topic string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topic = c.vals.Publish.MQTTTopic
	if topic == "" {
		topic = DefaultMQTTTopic
	}
	return c.vals.Publish.MQTTBroker, topic
}

func (c *Instance) ErrorReporting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.ErrorReporting && c.vals.Telemetry.SentryDSN != ""
}

func (c *Instance) SentryDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.SentryDSN
}

func (c *Instance) SetErrorReporting(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Telemetry.ErrorReporting = enabled
}
