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

// Package service wires the serial session, output dispatcher, hotplug
// watcher and publishers into a running bridge.
package service

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ZaparooProject/scanwedge/pkg/config"
	"github.com/ZaparooProject/scanwedge/pkg/devices"
	"github.com/ZaparooProject/scanwedge/pkg/output"
	"github.com/ZaparooProject/scanwedge/pkg/publishers"
	"github.com/ZaparooProject/scanwedge/pkg/serialport"
	"github.com/ZaparooProject/scanwedge/pkg/session"
	"github.com/rs/zerolog/log"
)

const scanQueueSize = 16

type options struct {
	warner output.Warner
}

type Option func(*options)

// WithWarner sets what is shown when paste mode runs without input
// authorization.
func WithWarner(w output.Warner) Option {
	return func(o *options) {
		o.warner = w
	}
}

// Service is a running bridge and everything it owns.
type Service struct {
	Bridge    *Bridge
	sessions  *session.Manager
	synth     *output.SystemSynthesizer
	publisher *publishers.MQTTPublisher
	cancel    context.CancelFunc
	done      chan struct{}
}

// Start builds the bridge from cfg, starts its event loop and auto-opens a
// port when enabled.
func Start(cfg *config.Instance, opts ...Option) (*Service, error) {
	o := options{
		warner: output.WarnerFunc(func() {
			log.Warn().Msg("grant input permission to enable automatic paste")
		}),
	}
	for _, opt := range opts {
		opt(&o)
	}

	log.Info().Msgf("version: %s", config.AppVersion)

	var hook session.PostOpenHook
	if cfg.AssertControlLines() {
		hook = session.AssertControlLines
	}
	sessions := session.NewManager(serialport.NewTransport(), session.WithPostOpenHook(hook))

	synth, err := output.NewSystemSynthesizer()
	if err != nil {
		sessions.Shutdown()
		return nil, fmt.Errorf("failed to create input synthesizer: %w", err)
	}
	if !synth.HasInputAuthorization() {
		log.Warn().Msg("input authorization not granted, type mode and auto paste are unavailable")
	}
	dispatcher := output.NewDispatcher(synth, output.NewSystemClipboard(), output.WithWarner(o.warner))

	deps := Deps{
		Config:     cfg,
		Sessions:   sessions,
		Dispatcher: dispatcher,
	}
	if runtime.GOOS != "windows" {
		deps.Watcher = devices.NewWatcher()
	}

	var publisher *publishers.MQTTPublisher
	if broker, topic := cfg.MQTTPublish(); broker != "" {
		scans := make(chan publishers.Scan, scanQueueSize)
		publisher = publishers.NewMQTTPublisher(broker, topic)
		if err := publisher.Start(scans); err != nil {
			log.Error().Err(err).Msg("failed to start mqtt publisher")
			publisher.Stop()
			publisher = nil
		} else {
			deps.Scans = scans
		}
	}

	bridge := NewBridge(deps)

	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		Bridge:    bridge,
		sessions:  sessions,
		synth:     synth,
		publisher: publisher,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(svc.done)
		if err := bridge.Run(ctx); err != nil {
			log.Error().Err(err).Msg("bridge exited")
		}
	}()

	bridge.AutoOpen()

	return svc, nil
}

// Done is closed when the bridge event loop has exited.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Stop closes the port and shuts everything down.
func (s *Service) Stop() error {
	log.Info().Msg("stopping service")
	s.sessions.Close()
	s.cancel()
	<-s.done
	s.sessions.Shutdown()

	if s.publisher != nil {
		s.publisher.Stop()
	}

	if err := s.synth.Close(); err != nil {
		return fmt.Errorf("failed to close input synthesizer: %w", err)
	}
	return nil
}
