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

// Package music tracks the currently selected track on the simulated head
// unit.
package music

import "errors"

// Direction moves the selection forward or backward through the playlist.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

var DefaultTracks = []string{
	"Solar Sailer",
	"Adagio - Tron",
	"Armory",
	"The Grid",
	"Recognizer",
}

var ErrNoTracks = errors.New("playlist has no tracks")

// Playlist is a fixed, ordered list of track names with a wrapping cursor.
type Playlist struct {
	tracks []string
	index  int
}

func NewPlaylist(tracks []string) (*Playlist, error) {
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}
	copied := make([]string, len(tracks))
	copy(copied, tracks)
	return &Playlist{tracks: copied}, nil
}

// Shift moves the cursor one step in dir, wrapping at both ends, and returns
// the newly selected track name.
func (p *Playlist) Shift(dir Direction) string {
	n := len(p.tracks)
	p.index = ((p.index+int(dir))%n + n) % n
	return p.tracks[p.index]
}

func (p *Playlist) Index() int {
	return p.index
}

func (p *Playlist) Current() string {
	return p.tracks[p.index]
}

func (p *Playlist) Len() int {
	return len(p.tracks)
}
