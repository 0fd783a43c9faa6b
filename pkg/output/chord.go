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

package output

import "errors"

// pressChord presses keys in order and releases them in reverse. Every key
// that went down is released even when a later press or release fails, so a
// failed chord never leaves a modifier held. pause runs between events.
func pressChord(keys []int, send func(key int, down bool) error, pause func()) error {
	var err error
	pressed := 0
	for i, key := range keys {
		if i > 0 {
			pause()
		}
		if err = send(key, true); err != nil {
			break
		}
		pressed++
	}
	for i := pressed - 1; i >= 0; i-- {
		pause()
		if upErr := send(keys[i], false); upErr != nil {
			err = errors.Join(err, upErr)
		}
	}
	return err
}
