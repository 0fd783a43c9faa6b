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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chordStep struct {
	key  int
	down bool
}

type chordRecorder struct {
	failDown map[int]bool
	failUp   map[int]bool
	steps    []chordStep
	pauses   int
}

func (r *chordRecorder) send(key int, down bool) error {
	r.steps = append(r.steps, chordStep{key: key, down: down})
	if down && r.failDown[key] {
		return errors.New("post failed")
	}
	if !down && r.failUp[key] {
		return errors.New("post failed")
	}
	return nil
}

func (r *chordRecorder) pause() {
	r.pauses++
}

func TestPressChord(t *testing.T) {
	t.Parallel()

	const mod, key = 1, 2

	tests := []struct {
		failDown map[int]bool
		failUp   map[int]bool
		name     string
		want     []chordStep
		wantErr  bool
	}{
		{
			name: "full chord",
			want: []chordStep{{mod, true}, {key, true}, {key, false}, {mod, false}},
		},
		{
			name:     "key down fails",
			failDown: map[int]bool{key: true},
			want:     []chordStep{{mod, true}, {key, true}, {mod, false}},
			wantErr:  true,
		},
		{
			name:    "key up fails",
			failUp:  map[int]bool{key: true},
			want:    []chordStep{{mod, true}, {key, true}, {key, false}, {mod, false}},
			wantErr: true,
		},
		{
			name:     "modifier down fails",
			failDown: map[int]bool{mod: true},
			want:     []chordStep{{mod, true}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := &chordRecorder{failDown: tt.failDown, failUp: tt.failUp}
			err := pressChord([]int{mod, key}, r.send, r.pause)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, r.steps)
			assert.Equal(t, len(tt.want)-1, r.pauses)
		})
	}
}

func TestPressChord_SingleKey(t *testing.T) {
	t.Parallel()

	r := &chordRecorder{}
	require.NoError(t, pressChord([]int{7}, r.send, r.pause))
	assert.Equal(t, []chordStep{{7, true}, {7, false}}, r.steps)
	assert.Equal(t, 1, r.pauses)
}

func TestPressChord_KeepsErrorKind(t *testing.T) {
	t.Parallel()

	send := func(int, bool) error { return ErrSynthesis }
	err := pressChord([]int{1, 2}, send, func() {})
	require.ErrorIs(t, err, ErrSynthesis)
}
