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

// Package devices finds serial ports that look like barcode scanners and
// watches for them coming and going.
package devices

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const DevDir = "/dev"

type usbID struct {
	Vid string
	Pid string
}

// Serial adapters that are never scanners but show up as ttyACM.
var ignoreDevices = []usbID{
	// Sinden Lightgun
	{Vid: "16c0", Pid: "0f38"},
	{Vid: "16c0", Pid: "0f39"},
	{Vid: "16c0", Pid: "0f01"},
	{Vid: "16c0", Pid: "0f02"},
	{Vid: "16d0", Pid: "0f38"},
	{Vid: "16d0", Pid: "0f39"},
	{Vid: "16d0", Pid: "0f01"},
	{Vid: "16d0", Pid: "0f02"},
}

// namePrefixes returns the device node prefixes scanners appear under on
// goos. Windows ports are matched on their COM name instead.
func namePrefixes(goos string) []string {
	switch goos {
	case "darwin":
		return []string{"cu.usbmodem", "cu.usbserial"}
	case "linux":
		return []string{"ttyUSB", "ttyACM"}
	case "windows":
		return []string{"COM"}
	default:
		return nil
	}
}

// Candidate reports whether a base device name looks like a USB serial
// scanner on this platform.
func Candidate(name string) bool {
	return matchesPrefix(name, namePrefixes(runtime.GOOS))
}

func matchesPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// List returns the serial devices a scanner could be attached to, sorted.
func List() ([]string, error) {
	switch runtime.GOOS {
	case "linux":
		return listDir(DevDir, namePrefixes("linux"), ignoreSerialDevice)
	case "darwin":
		return listDir(DevDir, namePrefixes("darwin"), nil)
	case "windows":
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list on windows: %w", err)
		}
		return filterPorts(ports, namePrefixes("windows")), nil
	default:
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list: %w", err)
		}
		slices.Sort(ports)
		return ports, nil
	}
}

func filterPorts(ports, prefixes []string) []string {
	devices := make([]string, 0, len(ports))
	for _, p := range ports {
		if matchesPrefix(filepath.Base(p), prefixes) {
			devices = append(devices, p)
		}
	}
	slices.Sort(devices)
	return devices
}

func listDir(dir string, prefixes []string, ignore func(path string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read %s directory: %w", dir, err)
	}

	devices := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !matchesPrefix(e.Name(), prefixes) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if ignore != nil && ignore(path) {
			continue
		}
		devices = append(devices, path)
	}
	slices.Sort(devices)

	return devices, nil
}

func ignoreSerialDevice(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return true
	}

	if _, err := os.Stat("/usr/bin/udevadm"); err != nil {
		log.Debug().Msgf("udevadm not found, skipping ignore list check")
		return false
	}

	if !strings.HasPrefix(path, "/dev/") {
		log.Error().Str("path", path).Msg("invalid device path")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:gosec // Safe: path validated to start with /dev/, udevadm uses absolute path
	out, err := exec.CommandContext(ctx, "/usr/bin/udevadm", "info", "--name="+path).Output()
	if err != nil {
		log.Error().Err(err).Msg("udevadm failed")
		return false
	}

	return ignoredByUdev(string(out))
}

// ignoredByUdev checks udevadm info output against the ignore list.
func ignoredByUdev(info string) bool {
	vid := ""
	pid := ""
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(line, "E: ID_VENDOR_ID="); ok {
			vid = strings.ToLower(strings.TrimSpace(v))
		} else if p, ok := strings.CutPrefix(line, "E: ID_MODEL_ID="); ok {
			pid = strings.ToLower(strings.TrimSpace(p))
		}
	}

	if vid == "" || pid == "" {
		return false
	}

	return slices.Contains(ignoreDevices, usbID{Vid: vid, Pid: pid})
}
