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

// Package scheduler decides, per data category, when the control loop should
// refresh a dashboard field.
package scheduler

import "time"

// Timer accumulates elapsed time and fires once Interval has been reached,
// restarting from zero. Time beyond the interval is not carried over.
type Timer struct {
	Interval time.Duration
	elapsed  time.Duration
}

func (t *Timer) Tick(dt time.Duration) bool {
	if dt > 0 {
		t.elapsed += dt
	}
	if t.elapsed >= t.Interval {
		t.elapsed = 0
		return true
	}
	return false
}

func (t *Timer) Elapsed() time.Duration {
	return t.elapsed
}

func (t *Timer) Reset() {
	t.elapsed = 0
}

// Intervals are the firing thresholds of the three cadences.
type Intervals struct {
	Fast   time.Duration // speed
	Medium time.Duration // clock
	Slow   time.Duration // odometer
}

var DefaultIntervals = Intervals{
	Fast:   50 * time.Millisecond,
	Medium: 1 * time.Second,
	Slow:   3 * time.Second,
}

// Fired reports which categories are due on a tick.
type Fired struct {
	Speed    bool
	Time     bool
	Distance bool
}

func (f Fired) Any() bool {
	return f.Speed || f.Time || f.Distance
}

// noSpeed is the dedup cache value before any speed has been sent.
const noSpeed = -1

// Schedule owns the three timers and the last speed value sent.
type Schedule struct {
	fast      Timer
	medium    Timer
	slow      Timer
	lastSpeed int
}

func New(intervals Intervals) *Schedule {
	return &Schedule{
		fast:      Timer{Interval: intervals.Fast},
		medium:    Timer{Interval: intervals.Medium},
		slow:      Timer{Interval: intervals.Slow},
		lastSpeed: noSpeed,
	}
}

// Tick advances every timer by dt.
func (s *Schedule) Tick(dt time.Duration) Fired {
	return Fired{
		Speed:    s.fast.Tick(dt),
		Time:     s.medium.Tick(dt),
		Distance: s.slow.Tick(dt),
	}
}

// ShouldSendSpeed reports whether speed differs from the last value accepted
// and, if so, records it as sent.
func (s *Schedule) ShouldSendSpeed(speed int) bool {
	if speed == s.lastSpeed {
		return false
	}
	s.lastSpeed = speed
	return true
}

// LastSpeed returns the last accepted speed and whether one exists.
func (s *Schedule) LastSpeed() (int, bool) {
	return s.lastSpeed, s.lastSpeed != noSpeed
}

// ForgetSpeed clears the dedup cache so the next speed fire emits even if
// the value is unchanged. Used when a speed update failed to reach the device.
func (s *Schedule) ForgetSpeed() {
	s.lastSpeed = noSpeed
}

// Reset restarts all timers and clears the dedup cache.
func (s *Schedule) Reset() {
	s.fast.Reset()
	s.medium.Reset()
	s.slow.Reset()
	s.ForgetSpeed()
}
