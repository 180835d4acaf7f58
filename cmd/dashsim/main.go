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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/cli"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/config"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/protocol"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/service"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/service/broker"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/service/publishers"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const messageBuffer = 64

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()

	exit, err := flags.Pre(os.Args[1:], os.Stdout, helpers.ListSerialDevices)
	if exit || err != nil {
		return err
	}

	cfg, err := flags.Setup(afero.NewOsFs(), config.BaseDefaults, []io.Writer{helpers.ConsoleWriter()})
	if err != nil {
		return err
	}

	path := cfg.SerialPath()
	if path == "" {
		return errors.New("no serial device configured, use -port or set serial.path (see -list)")
	}

	port, err := transport.Open(path, cli.TransportOptions(cfg), transport.DefaultSerialPortFactory)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to open display device")
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	defer func() {
		if err := port.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing serial port")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status, err := runDashboard(ctx, cfg, port)
	log.Info().
		Uint64("ticks", status.Ticks).
		Uint64("sent", status.Sent).
		Uint64("failed", status.Failed).
		Uint64("overflows", status.Overflows).
		Float64("odometer", status.Odometer).
		Msg("dashsim stopped")
	return err
}

// runDashboard runs the control loop over t alongside the message broker and,
// if configured, the MQTT mirror. It returns when ctx is cancelled or the
// loop fails.
func runDashboard(ctx context.Context, cfg *config.Instance, t service.Transport) (service.Status, error) {
	msgs := make(chan protocol.Message, messageBuffer)
	b := broker.New(msgs)

	svc, err := service.New(t, cli.ServiceOptions(cfg), nil, msgs)
	if err != nil {
		return service.Status{}, fmt.Errorf("failed to create service: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(gctx)
	})

	if m := cfg.MQTT(); m.Broker != "" {
		pub := publishers.NewMQTTPublisher(m.Broker, m.Topic, cfg.DeviceID())
		if err := pub.Connect(); err != nil {
			log.Warn().Err(err).Msg("mqtt publisher disabled")
		} else {
			sub, _ := b.Subscribe(messageBuffer, cli.MQTTKinds(cfg)...)
			g.Go(func() error {
				return pub.Run(gctx, sub)
			})
		}
	}

	g.Go(func() error {
		return svc.Run(gctx)
	})

	err = g.Wait()
	return svc.Snapshot(), err
}
