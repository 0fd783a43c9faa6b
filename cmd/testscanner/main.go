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

// testscanner writes barcode payloads to a serial port the way a hardware
// scanner would, for exercising scanwedge against a virtual port pair.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"go.bug.st/serial"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func chunks(payload string, size int) []string {
	if size <= 0 || len(payload) <= size {
		return []string{payload}
	}
	out := make([]string, 0, len(payload)/size+1)
	for len(payload) > size {
		out = append(out, payload[:size])
		payload = payload[size:]
	}
	return append(out, payload)
}

func run(args []string) error {
	fs := pflag.NewFlagSet("testscanner", pflag.ContinueOnError)
	port := fs.StringP("port", "p", "", "serial device to write to")
	baud := fs.IntP("baud", "b", 9600, "baud rate")
	chunk := fs.IntP("chunk", "c", 0, "split each scan into writes of this many bytes")
	gap := fs.DurationP("gap", "g", 20*time.Millisecond, "pause between chunks")
	pause := fs.Duration("pause", time.Second, "pause between scans")
	suffix := fs.String("suffix", "\r", "bytes appended to each scan")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if *port == "" || fs.NArg() == 0 {
		return errors.New("usage: testscanner --port <device> <text>...")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	p, err := serial.Open(*port, &serial.Mode{
		BaudRate: *baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", *port, err)
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close port")
		}
	}()

	for i, text := range fs.Args() {
		if i > 0 {
			time.Sleep(*pause)
		}
		payload := text + strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\t`, "\t").Replace(*suffix)
		for j, c := range chunks(payload, *chunk) {
			if j > 0 {
				time.Sleep(*gap)
			}
			if _, err := p.Write([]byte(c)); err != nil {
				return fmt.Errorf("failed to write to %s: %w", *port, err)
			}
		}
		log.Info().Str("port", *port).Str("text", text).Msg("sent scan")
	}
	return nil
}
