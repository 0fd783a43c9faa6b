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

//go:build !darwin && !linux

package output

import (
	"fmt"
	"runtime"
)

// SystemSynthesizer has no input backend on this platform. Paste mode still
// fills the clipboard.
type SystemSynthesizer struct{}

func NewSystemSynthesizer() (*SystemSynthesizer, error) {
	return &SystemSynthesizer{}, nil
}

func (*SystemSynthesizer) HasInputAuthorization() bool {
	return false
}

func (*SystemSynthesizer) KeyTap(key Key, _ Modifier) error {
	return fmt.Errorf("%w: %s key on %s", ErrSynthesis, key, runtime.GOOS)
}

func (*SystemSynthesizer) UnicodeTap(r rune) error {
	return fmt.Errorf("%w: %q on %s", ErrSynthesis, r, runtime.GOOS)
}

func (*SystemSynthesizer) Close() error {
	return nil
}
