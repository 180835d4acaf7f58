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

package helpers

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDevDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	for _, name := range []string{"ttyUSB0", "ttyACM1", "ttyS0", "null", "tty1"} {
		require.NoError(t, afero.WriteFile(fs, "/dev/"+name, nil, 0o600))
	}
	require.NoError(t, fs.MkdirAll("/dev/ttyUSBdir", 0o750))

	devices, err := listDevDir(fs, "/dev", linuxPrefixes)

	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyACM1", "/dev/ttyUSB0"}, devices)
}

func TestListDevDir_Missing(t *testing.T) {
	t.Parallel()

	devices, err := listDevDir(afero.NewMemMapFs(), "/dev", linuxPrefixes)

	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestListLinuxDevices(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dev/pts", 0o750))
	for _, path := range []string{"/dev/ttyUSB0", "/dev/ttyS0", "/dev/pts/3", "/dev/pts/0", "/dev/pts/ptmx"} {
		require.NoError(t, afero.WriteFile(fs, path, nil, 0o600))
	}

	devices, err := listLinuxDevices(fs)

	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/pts/0", "/dev/pts/3"}, devices)
}

func TestListLinuxDevices_NoPts(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/dev/ttyACM0", nil, 0o600))

	devices, err := listLinuxDevices(fs)

	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyACM0"}, devices)
}

func TestFilterPorts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		listErr  error
		name     string
		ports    []string
		prefixes []string
		want     []string
		wantErr  bool
	}{
		{
			name:     "windows com ports",
			ports:    []string{"COM4", "LPT1", "COM3"},
			prefixes: []string{"COM"},
			want:     []string{"COM3", "COM4"},
		},
		{
			name:     "darwin usb serial",
			ports:    []string{"/dev/tty.Bluetooth", "/dev/tty.usbmodem1101", "/dev/tty.usbserial-A1"},
			prefixes: []string{"/dev/tty.usbserial", "/dev/tty.usbmodem"},
			want:     []string{"/dev/tty.usbmodem1101", "/dev/tty.usbserial-A1"},
		},
		{
			name:     "none",
			ports:    nil,
			prefixes: []string{"COM"},
			want:     []string{},
		},
		{
			name:    "list error",
			listErr: assert.AnError,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			list := func() ([]string, error) { return tt.ports, tt.listErr }
			got, err := filterPorts(list, tt.prefixes...)

			if tt.wantErr {
				require.ErrorIs(t, err, assert.AnError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
