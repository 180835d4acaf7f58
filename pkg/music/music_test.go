// Zaparoo Dashsim
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Dashsim.
//
// Zaparoo Dashsim is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Dashsim is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Dashsim.  If not, see <http://www.gnu.org/licenses/>.

package music

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewPlaylist_Empty(t *testing.T) {
	t.Parallel()

	p, err := NewPlaylist(nil)

	require.ErrorIs(t, err, ErrNoTracks)
	assert.Nil(t, p)
}

func TestNewPlaylist_CopiesTracks(t *testing.T) {
	t.Parallel()

	tracks := []string{"a", "b"}
	p, err := NewPlaylist(tracks)
	require.NoError(t, err)

	tracks[0] = "changed"

	assert.Equal(t, "a", p.Current())
	assert.Equal(t, 2, p.Len())
}

func TestShift(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		want      string
		dirs      []Direction
		wantIndex int
	}{
		{name: "next once", dirs: []Direction{Next}, want: "Adagio - Tron", wantIndex: 1},
		{name: "prev from start wraps to end", dirs: []Direction{Prev}, want: "Recognizer", wantIndex: 4},
		{name: "next past end wraps to start", dirs: []Direction{Prev, Next}, want: "Solar Sailer", wantIndex: 0},
		{name: "back and forth", dirs: []Direction{Next, Next, Prev}, want: "Adagio - Tron", wantIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := NewPlaylist(DefaultTracks)
			require.NoError(t, err)

			var got string
			for _, d := range tt.dirs {
				got = p.Shift(d)
			}

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantIndex, p.Index())
			assert.Equal(t, got, p.Current())
		})
	}
}

func TestShift_FullWrap(t *testing.T) {
	t.Parallel()

	p, err := NewPlaylist(DefaultTracks)
	require.NoError(t, err)

	for range p.Len() {
		p.Shift(Next)
	}

	assert.Equal(t, 0, p.Index())
}

// TestPropertyShiftStaysInRange verifies the cursor never escapes the
// playlist and that a forward step is undone by a backward step.
func TestPropertyShiftStaysInRange(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 10).Draw(t, "n")
		tracks := make([]string, n)
		for i := range tracks {
			tracks[i] = rapid.StringN(1, 8, -1).Draw(t, "track")
		}
		p, err := NewPlaylist(tracks)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		moves := rapid.SliceOf(rapid.Bool()).Draw(t, "moves")
		for _, forward := range moves {
			before := p.Index()
			dir := Prev
			if forward {
				dir = Next
			}
			p.Shift(dir)
			if p.Index() < 0 || p.Index() >= n {
				t.Fatalf("index %d out of range", p.Index())
			}
			p.Shift(-dir)
			if p.Index() != before {
				t.Fatalf("shift not reversible: %d != %d", p.Index(), before)
			}
			p.Shift(dir)
		}
	})
}
