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

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/scanwedge/internal/telemetry"
	"github.com/ZaparooProject/scanwedge/pkg/cli"
	"github.com/ZaparooProject/scanwedge/pkg/config"
	"github.com/ZaparooProject/scanwedge/pkg/output"
	"github.com/ZaparooProject/scanwedge/pkg/service"
	"github.com/ZaparooProject/scanwedge/pkg/ui/systray"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(pflag.CommandLine)
	exit, err := flags.Pre(os.Args[1:], os.Stdout)
	if err != nil {
		return err
	}
	if exit {
		return nil
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	}

	cfg := cli.Setup(config.BaseDefaults, logWriters)
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	if err := flags.Post(cfg); err != nil {
		return err
	}

	var opts []service.Option
	if !*flags.Daemon {
		opts = append(opts, service.WithWarner(output.WarnerFunc(systray.AccessibilityWarning)))
	}

	svc, err := service.Start(cfg, opts...)
	if err != nil {
		log.Error().Err(err).Msg("error starting service")
		return fmt.Errorf("error starting service: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	if *flags.Daemon {
		log.Info().Msg("started in daemon mode")
		select {
		case <-sigs:
		case <-svc.Done():
		}
	} else {
		go func() {
			<-sigs
			systray.Quit()
		}()
		// The tray must own the main thread on macOS.
		systray.Run(cfg, svc.Bridge, func() {})
	}

	if err := svc.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping service")
		return fmt.Errorf("error stopping service: %w", err)
	}
	return nil
}
