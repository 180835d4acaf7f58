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

// Package transport is the serial link to the dashboard display controller.
// It exposes line writes and non-blocking reads to the control loop.
package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/protocol"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	DefaultBaudRate     = 9600
	DefaultWriteTimeout = 100 * time.Millisecond
	readChunkSize       = 256
)

var (
	// ErrOpen wraps any failure to open or configure the device.
	ErrOpen = errors.New("failed to open serial device")
	// ErrDisconnected marks errors meaning the device has gone away.
	ErrDisconnected = errors.New("serial device disconnected")
	// ErrWriteTimeout is returned when a write does not complete in time.
	ErrWriteTimeout = errors.New("serial write timed out")
	ErrPortClosed   = errors.New("port not open")
)

// SerialPort is the subset of serial.Port used here (for mocking in tests).
type SerialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Drain() error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// SerialPortFactory creates a serial port connection.
type SerialPortFactory func(path string, mode *serial.Mode) (SerialPort, error)

// DefaultSerialPortFactory opens real serial ports.
func DefaultSerialPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

type Options struct {
	BaudRate     int
	WriteTimeout time.Duration
}

// Port is an open link to the display controller.
type Port struct {
	port         SerialPort
	path         string
	// one slot: held from the start of a write until the device accepts
	// it, even after the caller has given up waiting
	inFlight     chan struct{}
	writeTimeout time.Duration
	mu           syncutil.RWMutex
	closed       bool
}

// Open opens path as 8N1 raw serial with non-blocking reads and discards
// anything left over in the device buffers. A nil factory uses
// DefaultSerialPortFactory.
func Open(path string, opts Options, factory SerialPortFactory) (*Port, error) {
	if factory == nil {
		factory = DefaultSerialPortFactory
	}
	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	if runtime.GOOS != "windows" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: failed to stat device path %s: %w", ErrOpen, path, err)
		}
	}

	port, err := factory(path, &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}

	// zero timeout: Read returns immediately with whatever is buffered
	if err := port.SetReadTimeout(0); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("%w: failed to set read timeout: %w", ErrOpen, err)
	}

	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("%w: failed to flush input: %w", ErrOpen, err)
	}
	if err := port.ResetOutputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("%w: failed to flush output: %w", ErrOpen, err)
	}

	log.Info().
		Str("device", path).
		Int("baud_rate", opts.BaudRate).
		Msg("serial device opened")

	return &Port{
		port:         port,
		path:         path,
		writeTimeout: opts.WriteTimeout,
		inFlight:     make(chan struct{}, 1),
	}, nil
}

func (p *Port) Path() string {
	return p.path
}

// ReadAvailable returns whatever bytes are waiting. An empty result with a
// nil error means nothing has arrived yet.
func (p *Port) ReadAvailable() ([]byte, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPortClosed
	}

	buf := make([]byte, readChunkSize)
	n, err := p.port.Read(buf)
	if err != nil {
		if IsDisconnectionError(err) {
			return nil, fmt.Errorf("%w: read: %w", ErrDisconnected, err)
		}
		return nil, fmt.Errorf("failed to read from port: %w", err)
	}
	return buf[:n], nil
}

// WriteLine sends line followed by the protocol terminator and waits for
// the output to drain. The call gives up after the configured write timeout
// or when ctx ends; the underlying write may still complete later. While
// such a write is outstanding, further lines are dropped with
// ErrWriteTimeout instead of queueing behind it.
func (p *Port) WriteLine(ctx context.Context, line string) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPortClosed
	}

	select {
	case p.inFlight <- struct{}{}:
	default:
		return fmt.Errorf("%w: previous write still pending, dropped %q", ErrWriteTimeout, line)
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	data := []byte(line + protocol.Terminator)
	resultCh := make(chan error, 1)

	go func() {
		err := p.write(data)
		<-p.inFlight
		resultCh <- err
	}()

	select {
	case err := <-resultCh:
		if err == nil {
			log.Trace().Str("line", line).Msg("sent line")
			return nil
		}
		if IsDisconnectionError(err) {
			log.Info().Str("device", p.path).Err(err).Msg("device disconnected - write error")
			return fmt.Errorf("%w: write: %w", ErrDisconnected, err)
		}
		return fmt.Errorf("failed to write to port: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %q", ErrWriteTimeout, p.writeTimeout, line)
		}
		return fmt.Errorf("write cancelled: %w", ctx.Err())
	}
}

func (p *Port) write(data []byte) error {
	n, err := p.port.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}
	return p.port.Drain()
}

func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	log.Info().Str("device", p.path).Msg("serial device closed")
	return nil
}

// IsDisconnectionError reports whether err means the device is gone rather
// than a transient or configuration problem.
func IsDisconnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDisconnected) {
		return true
	}

	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
			return true
		case serial.PortBusy, serial.PermissionDenied, serial.InvalidSpeed,
			serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits,
			serial.InvalidTimeoutValue, serial.ErrorEnumeratingPorts, serial.FunctionNotImplemented:
			return false
		default:
			return false
		}
	}

	// OS-level errors that the serial library does not wrap
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "device not configured") ||
		strings.Contains(errStr, "input/output error") ||
		strings.Contains(errStr, "no such device") ||
		strings.Contains(errStr, "device not found") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "bad file descriptor") ||
		strings.Contains(errStr, "device disconnected")
}
