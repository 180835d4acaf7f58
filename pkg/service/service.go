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

// Package service runs the dashboard control loop: it reads commands from the
// display controller, advances the vehicle simulation and sends each field
// update on its own cadence.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/commands"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/music"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/protocol"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/scheduler"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/transport"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/vehicle"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultTickInterval     = 16 * time.Millisecond
	DefaultSettleDelay      = 2 * time.Second
	DefaultOdometerBaseline = 12345.6

	// at most errLogBurst warnings, then one per errLogEvery
	errLogEvery = time.Second
	errLogBurst = 5
)

// ErrDeviceDisconnected ends the loop when the display controller goes away.
var ErrDeviceDisconnected = errors.New("display device disconnected")

// Transport is the link to the display controller.
type Transport interface {
	// ReadAvailable must not block; an empty result means no data yet.
	ReadAvailable() ([]byte, error)
	WriteLine(ctx context.Context, line string) error
}

type Options struct {
	Tracks           []string
	Intervals        scheduler.Intervals
	Vehicle          vehicle.Params
	OdometerBaseline float64
	BufferSize       int
	TickInterval     time.Duration
	SettleDelay      time.Duration
}

var DefaultOptions = Options{
	Tracks:           music.DefaultTracks,
	Intervals:        scheduler.DefaultIntervals,
	Vehicle:          vehicle.DefaultParams,
	OdometerBaseline: DefaultOdometerBaseline,
	BufferSize:       commands.MinBufferSize,
	TickInterval:     DefaultTickInterval,
	SettleDelay:      DefaultSettleDelay,
}

// Status is a point-in-time copy of the simulation for observers outside
// the loop.
type Status struct {
	Track     string
	Speed     float64
	Odometer  float64
	Control   vehicle.Control
	Gear      vehicle.Gear
	Ticks     uint64
	Sent      uint64
	Failed    uint64
	Overflows uint64
}

// Service owns all simulation state. Every mutation happens under mu, so
// Step and Snapshot may be called from different goroutines.
type Service struct {
	transport  Transport
	clock      clockwork.Clock
	out        chan<- protocol.Message
	car        *vehicle.State
	schedule   *scheduler.Schedule
	playlist   *music.Playlist
	parser     *commands.Parser
	errLimiter *rate.Limiter
	opts       Options
	control    vehicle.Control
	ticks      uint64
	sent       uint64
	failed     uint64
	overflows  uint64
	mu         syncutil.Mutex
}

// New creates a service talking over t. A nil clock uses the real clock.
// Every successfully sent message is also offered to out without blocking;
// out may be nil.
//
//nolint:gocritic // options struct copied so callers can't mutate it later
func New(t Transport, opts Options, clock clockwork.Clock, out chan<- protocol.Message) (*Service, error) {
	if t == nil {
		return nil, errors.New("transport is required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}

	playlist, err := music.NewPlaylist(opts.Tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	return &Service{
		transport:  t,
		clock:      clock,
		out:        out,
		car:        vehicle.New(opts.Vehicle),
		schedule:   scheduler.New(opts.Intervals),
		playlist:   playlist,
		parser:     commands.NewParser(opts.BufferSize),
		errLimiter: rate.NewLimiter(rate.Every(errLogEvery), errLogBurst),
		opts:       opts,
		control:    vehicle.Idle,
	}, nil
}

// Run waits for the display to settle, announces the starting gear and then
// ticks until ctx is cancelled (returning nil) or the device disconnects.
func (s *Service) Run(ctx context.Context) error {
	log.Info().
		Dur("settle_delay", s.opts.SettleDelay).
		Dur("tick_interval", s.opts.TickInterval).
		Msg("waiting for display to settle")

	select {
	case <-ctx.Done():
		return nil
	case <-s.clock.After(s.opts.SettleDelay):
	}

	if now := s.clock.Now(); !helpers.IsClockReliable(now) {
		log.Warn().Time("now", now).Msg("system clock looks unset, TIME updates will be wrong")
	}

	if err := s.announceGear(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ticker := s.clock.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	last := s.clock.Now()
	log.Info().Msg("control loop started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("control loop stopped")
			return nil
		case <-ticker.Chan():
			now := s.clock.Now()
			dt := now.Sub(last)
			last = now

			if err := s.Step(ctx, dt); err != nil {
				if ctx.Err() != nil {
					log.Info().Msg("control loop stopped")
					return nil
				}
				log.Error().Err(err).Msg("control loop aborted")
				return err
			}
		}
	}
}

func (s *Service) announceGear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(ctx, protocol.Gear(s.car.Gear))
}

// Step runs a single tick covering dt of elapsed time. It returns an error
// only when the loop cannot continue.
func (s *Service) Step(ctx context.Context, dt time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++

	if err := s.handleInput(ctx); err != nil {
		return err
	}

	if s.car.Advance(dt, s.control) {
		log.Debug().
			Stringer("gear", s.car.Gear).
			Float64("speed", s.car.Speed).
			Msg("gear changed")
		if err := s.send(ctx, protocol.Beep()); err != nil {
			return err
		}
		if err := s.send(ctx, protocol.Gear(s.car.Gear)); err != nil {
			return err
		}
	}

	fired := s.schedule.Tick(dt)

	if fired.Speed {
		speed := int(s.car.Speed)
		if s.schedule.ShouldSendSpeed(speed) {
			if err := s.send(ctx, protocol.Speed(speed)); err != nil {
				return err
			}
		}
	}

	if fired.Time {
		if err := s.send(ctx, protocol.Time(s.clock.Now().Local())); err != nil {
			return err
		}
	}

	if fired.Distance {
		if err := s.send(ctx, protocol.Distance(s.car.Odometer(s.opts.OdometerBaseline))); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) handleInput(ctx context.Context) error {
	data, err := s.transport.ReadAvailable()
	if err != nil {
		if errors.Is(err, transport.ErrDisconnected) {
			return fmt.Errorf("%w: %w", ErrDeviceDisconnected, err)
		}
		s.warn(err, "failed to read from device")
		return nil
	}

	cmds, err := s.parser.Ingest(data)
	if err != nil {
		s.overflows++
		log.Warn().Err(err).Msg("dropped oversized input line")
	}

	for _, cmd := range cmds {
		if err := s.apply(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) apply(ctx context.Context, cmd commands.Command) error {
	log.Debug().Stringer("command", cmd).Msg("received command")

	switch cmd {
	case commands.SetAccelerating:
		s.control = vehicle.Accelerating
	case commands.SetIdle:
		s.control = vehicle.Idle
	case commands.TrackNext:
		return s.send(ctx, protocol.Music(s.playlist.Shift(music.Next)))
	case commands.TrackPrev:
		return s.send(ctx, protocol.Music(s.playlist.Shift(music.Prev)))
	}
	return nil
}

// send writes msg to the device. Failures that leave the device usable are
// logged and swallowed; only disconnection or cancellation is returned.
func (s *Service) send(ctx context.Context, msg protocol.Message) error {
	err := s.transport.WriteLine(ctx, msg.Line())
	if err == nil {
		s.sent++
		s.publish(msg)
		return nil
	}

	if errors.Is(err, transport.ErrDisconnected) {
		return fmt.Errorf("%w: %w", ErrDeviceDisconnected, err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("send interrupted: %w", ctx.Err())
	}

	s.failed++
	if msg.Kind == protocol.KindSpeed {
		s.schedule.ForgetSpeed()
	}
	s.warn(err, "failed to send "+string(msg.Kind)+" update, skipping")
	return nil
}

func (s *Service) publish(msg protocol.Message) {
	if s.out == nil {
		return
	}
	select {
	case s.out <- msg:
	default:
		log.Debug().Str("line", msg.Line()).Msg("message channel full, not published")
	}
}

func (s *Service) warn(err error, msg string) {
	if s.errLimiter.Allow() {
		log.Warn().Err(err).Msg(msg)
	}
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Track:     s.playlist.Current(),
		Speed:     s.car.Speed,
		Odometer:  s.car.Odometer(s.opts.OdometerBaseline),
		Control:   s.control,
		Gear:      s.car.Gear,
		Ticks:     s.ticks,
		Sent:      s.sent,
		Failed:    s.failed,
		Overflows: s.overflows,
	}
}
