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

// Package cli holds the command line flags and process setup shared by the
// ScanWedge binaries.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/scanwedge/internal/telemetry"
	"github.com/ZaparooProject/scanwedge/pkg/config"
	"github.com/ZaparooProject/scanwedge/pkg/devices"
	"github.com/ZaparooProject/scanwedge/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

type Flags struct {
	set     *pflag.FlagSet
	list    func() ([]string, error)
	Daemon  *bool
	List    *bool
	Version *bool
	Port    *string
	Baud    *int
}

// SetupFlags defines the common flags on fs.
func SetupFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		set:  fs,
		list: devices.List,
		Daemon: fs.BoolP(
			"daemon",
			"d",
			false,
			"run in the foreground with no tray UI",
		),
		List: fs.BoolP(
			"list",
			"l",
			false,
			"list serial devices and exit",
		),
		Version: fs.BoolP(
			"version",
			"v",
			false,
			"print version and exit",
		),
		Port: fs.StringP(
			"port",
			"p",
			"",
			"serial device to open, overrides the config file",
		),
		Baud: fs.IntP(
			"baud",
			"b",
			0,
			"baud rate, overrides the config file",
		),
	}
}

// Pre parses args and handles flags that need no config. It reports true
// when the process should exit.
func (f *Flags) Pre(args []string, out io.Writer) (bool, error) {
	if err := f.set.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	if *f.Version {
		_, _ = fmt.Fprintf(out, "%s v%s\n", config.AppTitle, config.AppVersion)
		return true, nil
	}

	if *f.List {
		ports, err := f.list()
		if err != nil {
			return true, fmt.Errorf("failed to list serial devices: %w", err)
		}
		if len(ports) == 0 {
			_, _ = fmt.Fprintln(out, "no serial devices found")
		}
		for _, p := range ports {
			_, _ = fmt.Fprintln(out, p)
		}
		return true, nil
	}

	return false, nil
}

// Post applies flag overrides to cfg. They are not written to disk here.
func (f *Flags) Post(cfg *config.Instance) error {
	if f.set.Changed("port") {
		cfg.SetSerialPort(*f.Port)
	}
	if f.set.Changed("baud") {
		if err := cfg.SetBaudRate(*f.Baud); err != nil {
			return fmt.Errorf("invalid baud flag: %w", err)
		}
	}
	return nil
}

// Setup initializes logging, config and error reporting. Any failure here is
// fatal to the process.
func Setup(defaultConfig config.Values, writers []io.Writer) *config.Instance {
	err := helpers.InitLogging(nil, helpers.LogDir(), writers)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.NewConfig(afero.NewOsFs(), helpers.ConfigDir(), defaultConfig)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := telemetry.Init(telemetry.Options{
		Enabled:    cfg.ErrorReporting(),
		DSN:        cfg.SentryDSN(),
		DeviceID:   cfg.DeviceID(),
		AppVersion: config.AppVersion,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg
}
