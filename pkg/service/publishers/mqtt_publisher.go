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

// Package publishers mirrors dashboard traffic to external systems.
package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/protocol"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 2 * time.Second
	disconnectQuiesce = 250
)

var ErrNotConnected = errors.New("mqtt publisher not connected")

// Payload is the JSON body published for every dashboard message.
type Payload struct {
	Time     time.Time     `json:"time"`
	Kind     protocol.Kind `json:"kind"`
	Value    string        `json:"value"`
	DeviceID string        `json:"device_id,omitempty"`
}

// MQTTPublisher publishes each dashboard message to <topic>/<kind>. Field
// values are retained so late subscribers see the current dashboard; BEEP
// is an event and is not.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	clock     clockwork.Clock
	broker    string
	topic     string
	deviceID  string
}

func NewMQTTPublisher(broker, topic, deviceID string) *MQTTPublisher {
	return &MQTTPublisher{
		newClient: mqtt.NewClient,
		clock:     clockwork.NewRealClock(),
		broker:    broker,
		topic:     strings.TrimSuffix(topic, "/"),
		deviceID:  deviceID,
	}
}

func (p *MQTTPublisher) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID("dashsim-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}
	return opts
}

// Connect starts the client. If the broker isn't reachable within the
// connect timeout the client keeps retrying in the background and messages
// published meanwhile are dropped.
func (p *MQTTPublisher) Connect() error {
	p.client = p.newClient(p.clientOptions())

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn().Msgf("mqtt publisher: %s not reachable yet, retrying in background", p.broker)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Run publishes messages until ctx is cancelled or msgs is closed, then
// disconnects.
func (p *MQTTPublisher) Run(ctx context.Context, msgs <-chan protocol.Message) error {
	if p.client == nil {
		return ErrNotConnected
	}
	defer p.disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				log.Debug().Msg("mqtt publisher: message channel closed")
				return nil
			}
			if err := p.Publish(msg); err != nil {
				log.Error().Err(err).Msg("mqtt publisher: failed to publish message")
			}
		}
	}
}

func (p *MQTTPublisher) Topic(kind protocol.Kind) string {
	return p.topic + "/" + strings.ToLower(string(kind))
}

func (p *MQTTPublisher) Publish(msg protocol.Message) error {
	if p.client == nil {
		return ErrNotConnected
	}

	payload, err := json.Marshal(Payload{
		Time:     p.clock.Now().UTC(),
		Kind:     msg.Kind,
		Value:    msg.Value,
		DeviceID: p.deviceID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	retained := msg.Kind != protocol.KindBeep
	token := p.client.Publish(p.Topic(msg.Kind), 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s timed out", msg.Kind)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Kind, err)
	}

	log.Debug().Msgf("mqtt publisher: published %s", msg.Kind)
	return nil
}

func (p *MQTTPublisher) disconnect() {
	if p.client != nil && p.client.IsConnected() {
		log.Debug().Msg("mqtt publisher: disconnecting")
		p.client.Disconnect(disconnectQuiesce)
	}
}
