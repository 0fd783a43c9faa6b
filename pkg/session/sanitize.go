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

package session

import "strings"

// Sanitize turns a decoded scan buffer into output text. Tab, LF, printable
// ASCII and every scalar above 127 are kept, CR becomes LF, and all other
// control characters (including DEL) are dropped. The result is trimmed of
// surrounding whitespace; an empty result means there is no frame.
func Sanitize(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))

	// afterCR is set while the last kept scalar was a CR, so the LF of a
	// CRLF pair is not written twice. Dropped control bytes do not clear it.
	afterCR := false
	for _, r := range raw {
		switch {
		case r == '\n':
			if !afterCR {
				sb.WriteByte('\n')
			}
			afterCR = false
		case r == '\r':
			sb.WriteByte('\n')
			afterCR = true
		case r == '\t' || (r >= 32 && r <= 126) || r > 127:
			sb.WriteRune(r)
			afterCR = false
		}
	}

	// CRLF and lone CR always end up as LF.
	result := strings.ReplaceAll(sb.String(), "\r\n", "\n")
	result = strings.ReplaceAll(result, "\r", "\n")

	return strings.TrimSpace(result)
}
