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

//go:build darwin

package output

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <stdbool.h>
#include <ApplicationServices/ApplicationServices.h>

// postKey posts a single key transition. Returns non-zero on failure.
static int postKey(CGKeyCode code, bool down, CGEventFlags flags) {
    CGEventSourceRef src = CGEventSourceCreate(kCGEventSourceStateCombinedSessionState);
    if (!src) {
        return 1;
    }
    CGEventRef ev = CGEventCreateKeyboardEvent(src, code, down);
    if (!ev) {
        CFRelease(src);
        return 2;
    }
    CGEventSetFlags(ev, flags);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
    CFRelease(src);
    return 0;
}

// postUnicode posts a down/up pair carrying a UTF-16 string so the character
// arrives regardless of the active keyboard layout.
static int postUnicode(UniChar *chars, int length) {
    CGEventSourceRef src = CGEventSourceCreate(kCGEventSourceStateCombinedSessionState);
    if (!src) {
        return 1;
    }
    for (int i = 0; i < 2; i++) {
        CGEventRef ev = CGEventCreateKeyboardEvent(src, 0, i == 0);
        if (!ev) {
            CFRelease(src);
            return 2;
        }
        CGEventKeyboardSetUnicodeString(ev, length, chars);
        CGEventPost(kCGHIDEventTap, ev);
        CFRelease(ev);
    }
    CFRelease(src);
    return 0;
}

static bool isTrusted(void) {
    return AXIsProcessTrusted();
}
*/
import "C"

import (
	"fmt"
	"time"
	"unicode/utf16"
	"unsafe"
)

const (
	vkReturn  = 0x24
	vkTab     = 0x30
	vkV       = 0x09
	vkCommand = 0x37

	// Gap between the individual transitions of a modified key press.
	comboGap = 10 * time.Millisecond
)

// SystemSynthesizer posts CoreGraphics keyboard events. The process needs
// the Accessibility permission for macOS to deliver them.
type SystemSynthesizer struct{}

func NewSystemSynthesizer() (*SystemSynthesizer, error) {
	return &SystemSynthesizer{}, nil
}

func (*SystemSynthesizer) HasInputAuthorization() bool {
	return bool(C.isTrusted())
}

func virtualKey(key Key) (C.CGKeyCode, error) {
	switch key {
	case KeyReturn:
		return vkReturn, nil
	case KeyTab:
		return vkTab, nil
	case KeyV:
		return vkV, nil
	default:
		return 0, fmt.Errorf("%w: unknown key %d", ErrSynthesis, key)
	}
}

func post(code C.CGKeyCode, down bool, flags C.CGEventFlags) error {
	if rc := C.postKey(code, C.bool(down), flags); rc != 0 {
		return fmt.Errorf("%w: CGEvent post failed for key 0x%02x (%d)", ErrSynthesis, code, rc)
	}
	return nil
}

func (*SystemSynthesizer) KeyTap(key Key, mod Modifier) error {
	code, err := virtualKey(key)
	if err != nil {
		return err
	}

	if mod == ModNone {
		if err := post(code, true, 0); err != nil {
			return err
		}
		return post(code, false, 0)
	}

	flags := C.CGEventFlags(C.kCGEventFlagMaskCommand)
	send := func(key int, down bool) error {
		vk := C.CGKeyCode(key)
		if vk == vkCommand && !down {
			return post(vk, false, 0)
		}
		return post(vk, down, flags)
	}
	return pressChord(
		[]int{int(vkCommand), int(code)},
		send,
		func() { time.Sleep(comboGap) },
	)
}

func (*SystemSynthesizer) UnicodeTap(r rune) error {
	units := utf16.Encode([]rune{r})
	if len(units) == 0 {
		return fmt.Errorf("%w: cannot encode %q", ErrSynthesis, r)
	}
	if rc := C.postUnicode((*C.UniChar)(unsafe.Pointer(&units[0])), C.int(len(units))); rc != 0 {
		return fmt.Errorf("%w: CGEvent post failed for %q (%d)", ErrSynthesis, r, rc)
	}
	return nil
}

func (*SystemSynthesizer) Close() error {
	return nil
}
