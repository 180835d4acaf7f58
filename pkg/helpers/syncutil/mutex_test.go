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

package syncutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestMutexSerialisesWriters(t *testing.T) {
	t.Parallel()

	var mu Mutex
	var g errgroup.Group
	count := 0
	for range 50 {
		g.Go(func() error {
			mu.Lock()
			defer mu.Unlock()
			count++
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, 50, count)
}

func TestRWMutexSharedReaders(t *testing.T) {
	t.Parallel()

	var rw RWMutex
	rw.RLock()
	rw.RLock()
	rw.RUnlock()
	rw.RUnlock()

	rw.Lock()
	rw.Unlock() //nolint:staticcheck // empty critical section
}
