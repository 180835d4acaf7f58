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

// Package protocol renders dashboard state into the line-oriented
// KIND|VALUE messages understood by the display controller.
package protocol

import (
	"strconv"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/vehicle"
)

// Kind identifies the display field a message updates.
type Kind string

const (
	KindSpeed    Kind = "SPEED"
	KindDistance Kind = "DIST"
	KindGear     Kind = "GEAR"
	KindTime     Kind = "TIME"
	KindMusic    Kind = "MUSIC"
	KindBeep     Kind = "BEEP"
)

const (
	Separator  = "|"
	Terminator = "\n"
	TimeLayout = "15:04:05"
)

// Message is a single outbound dashboard update.
type Message struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Line renders the message without the trailing terminator.
func (m Message) Line() string {
	return Encode(m.Kind, m.Value)
}

func (m Message) String() string {
	return m.Line()
}

// Encode joins kind and payload into one protocol line. Line breaks in the
// payload are replaced by spaces so a message never spans two lines.
func Encode(kind Kind, payload string) string {
	if strings.ContainsAny(payload, "\r\n") {
		payload = strings.NewReplacer("\r", " ", "\n", " ").Replace(payload)
	}
	return string(kind) + Separator + payload
}

func Speed(kmh int) Message {
	return Message{Kind: KindSpeed, Value: strconv.Itoa(kmh)}
}

func Distance(km float64) Message {
	return Message{Kind: KindDistance, Value: strconv.FormatFloat(km, 'f', 1, 64)}
}

func Gear(g vehicle.Gear) Message {
	return Message{Kind: KindGear, Value: g.String()}
}

// Time formats t in its own location; pass t.Local() for wall-clock time.
func Time(t time.Time) Message {
	return Message{Kind: KindTime, Value: t.Format(TimeLayout)}
}

func Music(track string) Message {
	return Message{Kind: KindMusic, Value: track}
}

func Beep() Message {
	return Message{Kind: KindBeep, Value: "1"}
}
