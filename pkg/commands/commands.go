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

// Package commands reassembles newline-delimited input from the display
// controller and classifies each complete line into a Command.
package commands

import (
	"bytes"
	"errors"
	"strings"
)

// Command is an action requested by the display controller.
type Command int

const (
	SetAccelerating Command = iota
	SetIdle
	TrackNext
	TrackPrev
)

func (c Command) String() string {
	switch c {
	case SetAccelerating:
		return "accel"
	case SetIdle:
		return "idle"
	case TrackNext:
		return "next"
	case TrackPrev:
		return "prev"
	default:
		return "unknown"
	}
}

// MinBufferSize is the smallest partial-line capacity a Parser accepts.
const MinBufferSize = 512

// ErrBufferOverflow is returned when a line grows past the buffer capacity
// before its terminator arrives. The partial line is dropped and parsing
// resumes after the next terminator.
var ErrBufferOverflow = errors.New("command buffer overflow")

// keywords are matched in order; the first one contained in a line wins.
var keywords = []struct {
	word string
	cmd  Command
}{
	{"ACCEL", SetAccelerating},
	{"IDLE", SetIdle},
	{"NEXT", TrackNext},
	{"PREV", TrackPrev},
}

// Classify maps a single line to a command. Matching is by case-sensitive
// substring; lines with no known keyword return false.
func Classify(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false
	}
	for _, k := range keywords {
		if strings.Contains(line, k.word) {
			return k.cmd, true
		}
	}
	return 0, false
}

// Parser holds bytes of a line whose terminator has not arrived yet.
type Parser struct {
	buf        []byte
	capacity   int
	discarding bool
}

// NewParser returns a parser whose pending line may hold up to capacity
// bytes. Values below MinBufferSize are raised to it.
func NewParser(capacity int) *Parser {
	if capacity < MinBufferSize {
		capacity = MinBufferSize
	}
	return &Parser{
		buf:      make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Ingest appends data to the pending buffer and returns the commands of
// every line completed by it, in arrival order. Unrecognised lines are
// skipped. On overflow the commands parsed so far are still returned
// together with ErrBufferOverflow.
func (p *Parser) Ingest(data []byte) ([]Command, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		data = bytes.ReplaceAll(data, []byte{0}, nil)
	}

	var cmds []Command
	var overflow bool

	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			if p.discarding {
				break
			}
			if len(p.buf)+len(data) > p.capacity {
				overflow = true
				p.buf = p.buf[:0]
				p.discarding = true
				break
			}
			p.buf = append(p.buf, data...)
			break
		}

		segment := data[:i]
		data = data[i+1:]

		if p.discarding {
			// tail of a line that already overflowed
			p.discarding = false
			continue
		}

		if len(p.buf)+len(segment) > p.capacity {
			overflow = true
			p.buf = p.buf[:0]
			continue
		}

		p.buf = append(p.buf, segment...)
		if cmd, ok := Classify(string(p.buf)); ok {
			cmds = append(cmds, cmd)
		}
		p.buf = p.buf[:0]
	}

	if overflow {
		return cmds, ErrBufferOverflow
	}
	return cmds, nil
}

// Pending returns the buffered bytes of the incomplete line.
func (p *Parser) Pending() string {
	return string(p.buf)
}

// Reset drops any pending partial line.
func (p *Parser) Reset() {
	p.buf = p.buf[:0]
	p.discarding = false
}
