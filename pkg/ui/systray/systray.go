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

// Package systray is the menu bar UI: port selection, output settings and
// status.
package systray

import (
	_ "embed"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/systray"
	"github.com/ZaparooProject/scanwedge/pkg/config"
	"github.com/ZaparooProject/scanwedge/pkg/helpers"
	"github.com/ZaparooProject/scanwedge/pkg/helpers/syncutil"
	"github.com/ZaparooProject/scanwedge/pkg/service"
	"github.com/nixinwang/dialog"
	"github.com/rs/zerolog/log"
)

//go:embed assets/trayicon.png
var trayIcon []byte

const maxPortSlots = 8

func openCommand() string {
	switch runtime.GOOS {
	case "windows":
		return "explorer"
	case "darwin":
		return "open"
	default:
		return "xdg-open"
	}
}

// portLabel shortens a device path for the menu.
func portLabel(path string) string {
	if runtime.GOOS == "windows" {
		return path
	}
	return strings.TrimPrefix(path, "/dev/")
}

func delayLabel(ms int) string {
	if ms == 0 {
		return "None"
	}
	return fmt.Sprintf("%d ms", ms)
}

type menu struct {
	cfg       *config.Instance
	bridge    *service.Bridge
	status    *systray.MenuItem
	toggle    *systray.MenuItem
	delayMenu *systray.MenuItem
	trailing  *systray.MenuItem
	modes     map[string]*systray.MenuItem
	suffixes  map[string]*systray.MenuItem
	delays    map[int]*systray.MenuItem
	slots     []*systray.MenuItem
	slotPaths []string
	mu        syncutil.Mutex // protects slotPaths
}

func (m *menu) save() {
	if err := m.cfg.Save(); err != nil {
		log.Error().Err(err).Msg("failed to save config")
	}
}

func (m *menu) refreshStatus() {
	if m.bridge.IsOpen() {
		m.status.SetTitle("Connected: " + portLabel(m.bridge.Device()))
		m.toggle.SetTitle("Close Port")
	} else {
		m.status.SetTitle("Not connected")
		m.toggle.SetTitle("Open Port")
	}
}

func (m *menu) refreshPorts() {
	ports, err := m.bridge.Ports()
	if err != nil {
		log.Error().Err(err).Msg("failed to list ports")
	}
	if len(ports) > maxPortSlots {
		ports = ports[:maxPortSlots]
	}

	current := m.cfg.SerialPort()
	if m.bridge.IsOpen() {
		current = m.bridge.Device()
	}

	m.mu.Lock()
	m.slotPaths = ports
	m.mu.Unlock()

	for i, slot := range m.slots {
		if i >= len(ports) {
			slot.Hide()
			continue
		}
		slot.SetTitle(portLabel(ports[i]))
		if ports[i] == current {
			slot.Check()
		} else {
			slot.Uncheck()
		}
		slot.Show()
	}
}

func (m *menu) slotPath(i int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i >= len(m.slotPaths) {
		return "", false
	}
	return m.slotPaths[i], true
}

func (m *menu) refreshOutput() {
	out := m.cfg.Output()
	for mode, item := range m.modes {
		if mode == out.Mode {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	for suffix, item := range m.suffixes {
		if suffix == out.Suffix {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	for ms, item := range m.delays {
		if ms == out.InterCharDelayMs {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	// Inter-character delay only applies when typing.
	if out.Mode == config.OutputModeType {
		m.delayMenu.Enable()
	} else {
		m.delayMenu.Disable()
	}
	if out.TrailingNewline {
		m.trailing.Check()
	} else {
		m.trailing.Uncheck()
	}
}

func (m *menu) watchSlot(i int, item *systray.MenuItem) {
	for range item.ClickedCh {
		path, ok := m.slotPath(i)
		if !ok {
			continue
		}
		if err := m.bridge.OpenPort(path); err != nil {
			log.Error().Err(err).Msgf("failed to open %s", path)
		}
		m.refreshPorts()
	}
}

func onReady(cfg *config.Instance, bridge *service.Bridge) func() {
	return func() {
		openCmd := openCommand()

		if runtime.GOOS == "darwin" {
			systray.SetTemplateIcon(trayIcon, trayIcon)
		} else {
			systray.SetIcon(trayIcon)
			systray.SetTitle(config.AppTitle)
		}
		systray.SetTooltip(config.AppTitle)

		m := &menu{
			cfg:      cfg,
			bridge:   bridge,
			modes:    make(map[string]*systray.MenuItem),
			suffixes: make(map[string]*systray.MenuItem),
			delays:   make(map[int]*systray.MenuItem),
		}

		m.status = systray.AddMenuItem("Not connected", "")
		m.status.Disable()
		m.toggle = systray.AddMenuItem("Open Port", "Open or close the selected serial port")

		mPorts := systray.AddMenuItem("Serial Port", "Select the scanner serial port")
		for range maxPortSlots {
			slot := mPorts.AddSubMenuItemCheckbox("", "", false)
			slot.Hide()
			m.slots = append(m.slots, slot)
		}
		mRefresh := mPorts.AddSubMenuItem("Refresh", "Rescan serial ports")
		systray.AddSeparator()

		mMode := systray.AddMenuItem("Output Mode", "")
		m.modes[config.OutputModePaste] = mMode.AddSubMenuItemCheckbox("Paste", "Copy to clipboard and paste", false)
		m.modes[config.OutputModeType] = mMode.AddSubMenuItemCheckbox("Type", "Type each character", false)

		mSuffix := systray.AddMenuItem("Suffix", "")
		m.suffixes[config.SuffixNone] = mSuffix.AddSubMenuItemCheckbox("None", "", false)
		m.suffixes[config.SuffixTab] = mSuffix.AddSubMenuItemCheckbox("Tab", "", false)
		m.suffixes[config.SuffixEnter] = mSuffix.AddSubMenuItemCheckbox("Enter", "", false)

		m.delayMenu = systray.AddMenuItem("Inter-character Delay", "Delay between typed characters")
		for _, ms := range config.InterCharDelays {
			m.delays[ms] = m.delayMenu.AddSubMenuItemCheckbox(delayLabel(ms), "", false)
		}

		m.trailing = systray.AddMenuItemCheckbox("Trailing Newline", "Append a newline to each scan", false)
		systray.AddSeparator()

		mEditConfig := systray.AddMenuItem("Edit Config", "Edit config file")
		mOpenLog := systray.AddMenuItem("View Log", "View log file")
		systray.AddSeparator()
		mVersion := systray.AddMenuItem("Version "+config.AppVersion, "")
		mVersion.Disable()
		mAbout := systray.AddMenuItem("About "+config.AppTitle, "")
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Close the port and quit")

		m.refreshStatus()
		m.refreshPorts()
		m.refreshOutput()

		bridge.AddListener(service.Listener{
			Opened:         func(string) { m.refreshStatus(); m.refreshPorts() },
			Closed:         func(string) { m.refreshStatus() },
			DevicesChanged: m.refreshPorts,
		})

		for i, slot := range m.slots {
			go m.watchSlot(i, slot)
		}

		for mode, item := range m.modes {
			go func() {
				for range item.ClickedCh {
					if err := cfg.SetOutputMode(mode); err != nil {
						log.Error().Err(err).Msg("failed to set output mode")
						continue
					}
					m.save()
					m.refreshOutput()
				}
			}()
		}

		for suffix, item := range m.suffixes {
			go func() {
				for range item.ClickedCh {
					if err := cfg.SetSuffix(suffix); err != nil {
						log.Error().Err(err).Msg("failed to set suffix")
						continue
					}
					m.save()
					m.refreshOutput()
				}
			}()
		}

		for ms, item := range m.delays {
			go func() {
				for range item.ClickedCh {
					if err := cfg.SetInterCharDelayMs(ms); err != nil {
						log.Error().Err(err).Msg("failed to set inter-character delay")
						continue
					}
					m.save()
					m.refreshOutput()
				}
			}()
		}

		go func() {
			for {
				select {
				case <-m.toggle.ClickedCh:
					if err := bridge.TogglePort(); err != nil {
						log.Error().Err(err).Msg("failed to toggle port")
						dialog.Message("Could not open the serial port:\n\n%s", err).
							Title(config.AppTitle).Error()
					}
				case <-mRefresh.ClickedCh:
					m.refreshPorts()
				case <-m.trailing.ClickedCh:
					cfg.SetTrailingNewline(!cfg.Output().TrailingNewline)
					m.save()
					m.refreshOutput()
				case <-mEditConfig.ClickedCh:
					err := exec.Command(openCmd, cfg.Path()).Start()
					if err != nil {
						log.Error().Err(err).Msg("failed to open config file")
					}
				case <-mOpenLog.ClickedCh:
					err := exec.Command(openCmd, filepath.Clean(helpers.LogPath())).Start()
					if err != nil {
						log.Error().Err(err).Msg("failed to open log file")
					}
				case <-mAbout.ClickedCh:
					msg := config.AppTitle + "\n" +
						"Version v%s\n\n" +
						"Serial barcode scanner to keyboard bridge\n\n" +
						"© %d Zaparoo Contributors\n" +
						"License: GPLv3"
					dialog.Message(msg, config.AppVersion, time.Now().Year()).
						Title("About " + config.AppTitle).Info()
				case <-mQuit.ClickedCh:
					systray.Quit()
					return
				}
			}
		}()
	}
}

// Run blocks on the tray event loop. exit runs after Quit.
func Run(cfg *config.Instance, bridge *service.Bridge, exit func()) {
	systray.Run(onReady(cfg, bridge), exit)
}

// Quit ends the tray event loop started by Run.
func Quit() {
	systray.Quit()
}
