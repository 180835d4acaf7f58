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

// Package vehicle models the simulated car: speed, distance travelled and the
// gear derived from speed, advanced from a single accelerate/idle input.
package vehicle

import (
	"strconv"
	"time"
)

// Control is the single binary input driving the simulation.
type Control int

const (
	Idle Control = iota
	Accelerating
)

func (c Control) String() string {
	if c == Accelerating {
		return "accelerating"
	}
	return "idle"
}

// Gear is the gearbox position. Neutral is 0, forward gears are 1 to 6.
type Gear int

const (
	Neutral Gear = 0
	TopGear Gear = 6
)

// String renders the gear the way the dashboard displays it.
func (g Gear) String() string {
	if g == Neutral {
		return "N"
	}
	return strconv.Itoa(int(g))
}

// Params holds the physics constants. Rates are in km/h per second.
type Params struct {
	Acceleration float64
	Deceleration float64
	MaxSpeed     float64
}

var DefaultParams = Params{
	Acceleration: 25.0,
	Deceleration: 15.0,
	MaxSpeed:     180.0,
}

// gearBreakpoints are upper speed bounds (exclusive) for gears 1 to 5.
// Anything at or above the last bound is top gear.
var gearBreakpoints = [...]float64{20, 40, 65, 95, 130}

// GearFor returns the gear for a speed in km/h. A speed of exactly zero is
// always Neutral, even though it is also below the first breakpoint.
func GearFor(speed float64) Gear {
	if speed == 0 {
		return Neutral
	}
	for i, limit := range gearBreakpoints {
		if speed < limit {
			return Gear(i + 1)
		}
	}
	return TopGear
}

// State is the mutable vehicle state owned by the control loop.
type State struct {
	params   Params
	Speed    float64 // km/h
	Distance float64 // km travelled since start
	Gear     Gear
}

func New(params Params) *State {
	return &State{
		params: params,
		Gear:   Neutral,
	}
}

func (s *State) Params() Params {
	return s.params
}

// Advance moves the simulation forward by dt under the given control input
// and reports whether the gear differs from the one before the step.
// Negative durations are treated as zero.
func (s *State) Advance(dt time.Duration, control Control) bool {
	secs := dt.Seconds()
	if secs < 0 {
		secs = 0
	}

	if control == Accelerating {
		s.Speed += s.params.Acceleration * secs
	} else {
		s.Speed -= s.params.Deceleration * secs
	}

	if s.Speed < 0 {
		s.Speed = 0
	}
	if s.Speed > s.params.MaxSpeed {
		s.Speed = s.params.MaxSpeed
	}

	s.Distance += (s.Speed / 3600.0) * secs

	previous := s.Gear
	s.Gear = GearFor(s.Speed)
	return s.Gear != previous
}

// Odometer is the reading shown on the dashboard: a fixed baseline plus the
// distance covered during this run.
func (s *State) Odometer(baseline float64) float64 {
	return baseline + s.Distance
}
