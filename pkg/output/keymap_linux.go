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

//go:build linux

package output

// Linux evdev key codes for a US layout.
const (
	evKey1          = 2
	evKey0          = 11
	evKeyMinus      = 12
	evKeyEqual      = 13
	evKeyTab        = 15
	evKeyLeftBrace  = 26
	evKeyRightBrace = 27
	evKeyEnter      = 28
	evKeyLeftCtrl   = 29
	evKeySemicolon  = 39
	evKeyApostrophe = 40
	evKeyGrave      = 41
	evKeyLeftShift  = 42
	evKeyBackslash  = 43
	evKeyComma      = 51
	evKeyDot        = 52
	evKeySlash      = 53
	evKeySpace      = 57
	evKeyV          = 47
)

type keyStroke struct {
	code  int
	shift bool
}

var letterCodes = map[rune]int{
	'q': 16, 'w': 17, 'e': 18, 'r': 19, 't': 20, 'y': 21, 'u': 22, 'i': 23, 'o': 24, 'p': 25,
	'a': 30, 's': 31, 'd': 32, 'f': 33, 'g': 34, 'h': 35, 'j': 36, 'k': 37, 'l': 38,
	'z': 44, 'x': 45, 'c': 46, 'v': 47, 'b': 48, 'n': 49, 'm': 50,
}

var symbolStrokes = map[rune]keyStroke{
	' ':  {code: evKeySpace},
	'-':  {code: evKeyMinus},
	'_':  {code: evKeyMinus, shift: true},
	'=':  {code: evKeyEqual},
	'+':  {code: evKeyEqual, shift: true},
	'[':  {code: evKeyLeftBrace},
	'{':  {code: evKeyLeftBrace, shift: true},
	']':  {code: evKeyRightBrace},
	'}':  {code: evKeyRightBrace, shift: true},
	';':  {code: evKeySemicolon},
	':':  {code: evKeySemicolon, shift: true},
	'\'': {code: evKeyApostrophe},
	'"':  {code: evKeyApostrophe, shift: true},
	'`':  {code: evKeyGrave},
	'~':  {code: evKeyGrave, shift: true},
	'\\': {code: evKeyBackslash},
	'|':  {code: evKeyBackslash, shift: true},
	',':  {code: evKeyComma},
	'<':  {code: evKeyComma, shift: true},
	'.':  {code: evKeyDot},
	'>':  {code: evKeyDot, shift: true},
	'/':  {code: evKeySlash},
	'?':  {code: evKeySlash, shift: true},
	'!':  {code: evKey1, shift: true},
	'@':  {code: evKey1 + 1, shift: true},
	'#':  {code: evKey1 + 2, shift: true},
	'$':  {code: evKey1 + 3, shift: true},
	'%':  {code: evKey1 + 4, shift: true},
	'^':  {code: evKey1 + 5, shift: true},
	'&':  {code: evKey1 + 6, shift: true},
	'*':  {code: evKey1 + 7, shift: true},
	'(':  {code: evKey1 + 8, shift: true},
	')':  {code: evKey0, shift: true},
}

// strokeFor maps a printable ASCII rune to a key stroke. Anything outside
// printable ASCII cannot be typed through a virtual keyboard.
func strokeFor(r rune) (keyStroke, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return keyStroke{code: letterCodes[r]}, true
	case r >= 'A' && r <= 'Z':
		return keyStroke{code: letterCodes[r-'A'+'a'], shift: true}, true
	case r == '0':
		return keyStroke{code: evKey0}, true
	case r >= '1' && r <= '9':
		return keyStroke{code: evKey1 + int(r-'1')}, true
	}
	s, ok := symbolStrokes[r]
	return s, ok
}
