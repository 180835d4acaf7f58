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

package cli

import (
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/config"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/protocol"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/scheduler"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/service"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/transport"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/vehicle"
)

func ServiceOptions(cfg *config.Instance) service.Options {
	fast, medium, slow := cfg.Intervals()
	v := cfg.Vehicle()

	return service.Options{
		Tracks: cfg.Tracks(),
		Intervals: scheduler.Intervals{
			Fast:   fast,
			Medium: medium,
			Slow:   slow,
		},
		Vehicle: vehicle.Params{
			Acceleration: v.Acceleration,
			Deceleration: v.Deceleration,
			MaxSpeed:     v.MaxSpeed,
		},
		OdometerBaseline: v.Odometer,
		BufferSize:       cfg.BufferSize(),
		TickInterval:     cfg.TickInterval(),
		SettleDelay:      cfg.SettleDelay(),
	}
}

func TransportOptions(cfg *config.Instance) transport.Options {
	return transport.Options{
		BaudRate:     cfg.BaudRate(),
		WriteTimeout: cfg.WriteTimeout(),
	}
}

// MQTTKinds converts the configured filter to message kinds. An empty
// result means every kind.
func MQTTKinds(cfg *config.Instance) []protocol.Kind {
	filter := cfg.MQTT().Filter
	kinds := make([]protocol.Kind, 0, len(filter))
	for _, f := range filter {
		kinds = append(kinds, protocol.Kind(f))
	}
	return kinds
}
