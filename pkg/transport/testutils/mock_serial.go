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

// Package testutils provides a scriptable serial port for transport and
// service tests.
package testutils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/helpers/syncutil"
)

// MockSerialPort is a mock implementation of a serial port. Reads return
// queued chunks one at a time; writes are recorded.
type MockSerialPort struct {
	ReadError    error
	WriteError   error
	DrainError   error
	CloseError   error
	TimeoutErr   error
	ResetErr     error
	ReadFunc     func(p []byte) (n int, err error)
	WriteFunc    func(p []byte) (n int, err error)
	readChunks   [][]byte
	written      []byte
	ReadTimeout  time.Duration
	InputResets  int
	OutputResets int
	Drains       int
	Closed       bool
	mu           syncutil.RWMutex
}

// NewMockSerialPort creates a new mock serial port for testing.
func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{ReadTimeout: -1}
}

// QueueRead schedules data to be returned by a later Read call.
func (m *MockSerialPort) QueueRead(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readChunks = append(m.readChunks, []byte(data))
}

func (m *MockSerialPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	closed := m.Closed
	readFunc := m.ReadFunc
	readErr := m.ReadError
	m.mu.Unlock()

	if closed {
		return 0, errors.New("port closed")
	}
	if readFunc != nil {
		return readFunc(p)
	}
	if readErr != nil {
		return 0, readErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.readChunks) == 0 {
		return 0, nil
	}
	n := copy(p, m.readChunks[0])
	if n < len(m.readChunks[0]) {
		m.readChunks[0] = m.readChunks[0][n:]
	} else {
		m.readChunks = m.readChunks[1:]
	}
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	writeFunc := m.WriteFunc
	writeErr := m.WriteError
	m.mu.Unlock()

	if writeFunc != nil {
		return writeFunc(p)
	}
	if writeErr != nil {
		return 0, writeErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *MockSerialPort) Drain() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Drains++
	return m.DrainError
}

func (m *MockSerialPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InputResets++
	m.readChunks = nil
	return m.ResetErr
}

func (m *MockSerialPort) ResetOutputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OutputResets++
	return m.ResetErr
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TimeoutErr != nil {
		return m.TimeoutErr
	}
	m.ReadTimeout = t
	return nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

// IsClosed returns true if the port has been closed (thread-safe).
func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Closed
}

// Written returns everything written so far.
func (m *MockSerialPort) Written() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return string(m.written)
}

// Lines returns the written data split into terminated lines.
func (m *MockSerialPort) Lines() []string {
	out := strings.TrimSuffix(m.Written(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// CreateTempDevicePath creates a placeholder file standing in for a device
// node so path checks pass.
func CreateTempDevicePath(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ttyUSB0")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("failed to create temp device: %v", err)
	}
	return path
}
