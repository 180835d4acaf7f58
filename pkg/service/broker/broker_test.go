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

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startBroker(t *testing.T, source chan protocol.Message) *Broker {
	t.Helper()
	b := New(source)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b
}

func receive(t *testing.T, ch <-chan protocol.Message) protocol.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return protocol.Message{}
	}
}

func TestSubscribe_AssignsIDs(t *testing.T) {
	t.Parallel()

	b := New(make(chan protocol.Message))

	_, id1 := b.Subscribe(1)
	_, id2 := b.Subscribe(1)

	assert.Equal(t, 0, id1)
	assert.Equal(t, 1, id2)
	assert.Len(t, b.subscribers, 2)
}

func TestUnsubscribe(t *testing.T) {
	t.Parallel()

	b := New(make(chan protocol.Message))
	ch, id := b.Subscribe(1)

	b.Unsubscribe(id)
	b.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Empty(t, b.subscribers)
}

func TestBroadcast_AllSubscribers(t *testing.T) {
	t.Parallel()

	source := make(chan protocol.Message)
	b := startBroker(t, source)
	sub1, _ := b.Subscribe(4)
	sub2, _ := b.Subscribe(4)

	source <- protocol.Gear(3)

	assert.Equal(t, protocol.Gear(3), receive(t, sub1))
	assert.Equal(t, protocol.Gear(3), receive(t, sub2))
}

func TestBroadcast_KindFilter(t *testing.T) {
	t.Parallel()

	source := make(chan protocol.Message)
	b := startBroker(t, source)
	music, _ := b.Subscribe(4, protocol.KindMusic)

	source <- protocol.Speed(40)
	source <- protocol.Music("Armory")

	assert.Equal(t, protocol.Music("Armory"), receive(t, music))
	assert.Empty(t, music)
}

func TestBroadcast_SlowSubscriberDropsOnlyItsOwn(t *testing.T) {
	t.Parallel()

	source := make(chan protocol.Message)
	b := startBroker(t, source)
	fast, _ := b.Subscribe(20)
	_, slowID := b.Subscribe(2)

	for i := range 10 {
		source <- protocol.Speed(i)
	}

	for i := range 10 {
		assert.Equal(t, protocol.Speed(i), receive(t, fast))
	}
	require.Eventually(t, func() bool {
		return b.Dropped(slowID) == 8
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, b.Dropped(99))
}

func TestRun_ClosesSubscribersOnCancel(t *testing.T) {
	t.Parallel()

	b := New(make(chan protocol.Message))
	ch, _ := b.Subscribe(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, b.Run(ctx))

	_, ok := <-ch
	assert.False(t, ok)
}

func TestRun_SourceClosed(t *testing.T) {
	t.Parallel()

	source := make(chan protocol.Message)
	b := New(source)
	ch, _ := b.Subscribe(1)

	close(source)
	require.NoError(t, b.Run(context.Background()))

	_, ok := <-ch
	assert.False(t, ok)
}
