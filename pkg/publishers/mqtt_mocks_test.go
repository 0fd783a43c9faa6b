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

package publishers

import (
	"time"

	"github.com/ZaparooProject/scanwedge/pkg/helpers/syncutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeClient records publishes instead of talking to a broker.
type fakeClient struct {
	connectErr  error
	publishErr  error
	messages    []publishedMessage
	disconnects int
	connected   bool
	mu          syncutil.Mutex
}

func (c *fakeClient) published() []publishedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishedMessage(nil), c.messages...)
}

func (c *fakeClient) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool {
	return c.IsConnected()
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return &fakeToken{err: c.connectErr}
	}
	c.connected = true
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(_ uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnects++
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return &fakeToken{err: c.publishErr}
	}
	data, _ := payload.([]byte)
	c.messages = append(c.messages, publishedMessage{
		topic:    topic,
		payload:  data,
		qos:      qos,
		retained: retained,
	})
	return &fakeToken{}
}

func (*fakeClient) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (*fakeClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (*fakeClient) Unsubscribe(_ ...string) mqtt.Token {
	return &fakeToken{}
}

func (*fakeClient) AddRoute(_ string, _ mqtt.MessageHandler) {}

func (*fakeClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

type fakeToken struct {
	err error
}

func (*fakeToken) Wait() bool {
	return true
}

func (*fakeToken) WaitTimeout(_ time.Duration) bool {
	return true
}

func (*fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *fakeToken) Error() error {
	return t.err
}
