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

// Package broker fans dashboard messages out from the control loop to any
// number of in-process observers. A slow observer only loses its own
// messages; it never stalls the loop or other observers.
package broker

import (
	"context"
	"slices"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/protocol"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ch      chan protocol.Message
	kinds   []protocol.Kind
	dropped uint64
}

func (s *subscriber) wants(kind protocol.Kind) bool {
	return len(s.kinds) == 0 || slices.Contains(s.kinds, kind)
}

type Broker struct {
	source      <-chan protocol.Message
	subscribers map[int]*subscriber
	mu          syncutil.RWMutex
	nextID      int
}

func New(source <-chan protocol.Message) *Broker {
	return &Broker{
		source:      source,
		subscribers: make(map[int]*subscriber),
	}
}

// Run forwards messages until ctx is cancelled or the source is closed, then
// closes every subscriber channel.
func (b *Broker) Run(ctx context.Context) error {
	defer b.closeAll()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("broker: context cancelled")
			return nil
		case msg, ok := <-b.source:
			if !ok {
				log.Debug().Msg("broker: source closed")
				return nil
			}
			b.broadcast(msg)
		}
	}
}

func (b *Broker) broadcast(msg protocol.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		if !sub.wants(msg.Kind) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			sub.dropped++
			log.Warn().
				Int("subscriber_id", id).
				Str("kind", string(msg.Kind)).
				Uint64("dropped", sub.dropped).
				Msg("subscriber channel full, dropping message")
		}
	}
}

// Subscribe registers an observer. With no kinds every message is delivered.
func (b *Broker) Subscribe(bufferSize int, kinds ...protocol.Kind) (msgs <-chan protocol.Message, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan protocol.Message, bufferSize)
	b.subscribers[id] = &subscriber{ch: ch, kinds: slices.Clone(kinds)}

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Int("kinds", len(kinds)).
		Msg("new subscriber registered")

	return ch, id
}

// Unsubscribe closes the subscriber's channel. Unknown ids are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

// Dropped returns how many messages a subscriber has lost to a full buffer.
func (b *Broker) Dropped(id int) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if sub, ok := b.subscribers[id]; ok {
		return sub.dropped
	}
	return 0
}

func (b *Broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		close(sub.ch)
	}
	b.subscribers = make(map[int]*subscriber)
}
