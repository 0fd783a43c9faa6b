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

// Package publishers forwards finished scans to external systems.
package publishers

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Scan is the JSON payload published for every frame.
type Scan struct {
	Time     time.Time `json:"time"`
	Text     string    `json:"text"`
	Device   string    `json:"device"`
	DeviceID string    `json:"deviceId,omitempty"`
}

// MQTTPublisher publishes scans to an MQTT broker.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(opts *mqtt.ClientOptions) mqtt.Client
	stopCh    chan struct{}
	broker    string
	topic     string
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

func NewMQTTPublisher(broker, topic string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    broker,
		topic:     topic,
		newClient: mqtt.NewClient,
		stopCh:    make(chan struct{}),
	}
}

// Start connects to the broker and publishes every scan received on scans
// until Stop is called or scans is closed.
func (p *MQTTPublisher) Start(scans <-chan Scan) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", p.broker))
	opts.SetClientID("scanwedge-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Msgf("mqtt publisher: publishing scans to %s (topic: %s)", p.broker, p.topic)

	p.wg.Add(1)
	go p.publishScans(scans)

	return nil
}

// Stop disconnects from the broker and waits for the publish loop to exit.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()

		if p.client != nil && p.client.IsConnected() {
			log.Debug().Msg("mqtt publisher: disconnecting")
			p.client.Disconnect(250)
		}
	})
}

func (p *MQTTPublisher) publishScans(scans <-chan Scan) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("mqtt publisher: stopping scan publisher")
			return
		case scan, ok := <-scans:
			if !ok {
				log.Debug().Msg("mqtt publisher: scan channel closed")
				return
			}
			p.publish(scan)
		}
	}
}

func (p *MQTTPublisher) publish(scan Scan) {
	payload, err := json.Marshal(scan)
	if err != nil {
		log.Error().Err(err).Msg("mqtt publisher: failed to marshal scan")
		return
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Msg("mqtt publisher: failed to publish scan")
		return
	}

	log.Debug().Msgf("mqtt publisher: published scan from %s", scan.Device)
}
