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
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.bug.st/serial"
)

// linuxPrefixes are the /dev entries USB display controllers enumerate as.
var linuxPrefixes = []string{"ttyUSB", "ttyACM"}

// ptsDir holds the pseudo-terminals an emulated display is reached through.
const ptsDir = "/dev/pts"

// ListSerialDevices returns candidate display controller ports for the
// current OS.
func ListSerialDevices() ([]string, error) {
	switch runtime.GOOS {
	case "linux":
		return listLinuxDevices(afero.NewOsFs())
	case "darwin":
		return filterPorts(serial.GetPortsList, "/dev/tty.usbserial", "/dev/tty.usbmodem")
	case "windows":
		return filterPorts(serial.GetPortsList, "COM")
	default:
		ports, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to get serial ports list: %w", err)
		}
		return ports, nil
	}
}

// listLinuxDevices returns USB serial devices followed by pseudo-terminals.
func listLinuxDevices(fs afero.Fs) ([]string, error) {
	devices, err := listDevDir(fs, "/dev", linuxPrefixes)
	if err != nil {
		return nil, err
	}
	ptys, err := listDevDir(fs, ptsDir, nil)
	if err != nil {
		return nil, err
	}
	for _, p := range ptys {
		if filepath.Base(p) != "ptmx" {
			devices = append(devices, p)
		}
	}
	return devices, nil
}

// listDevDir returns the files in dir matching prefixes, or every file when
// prefixes is empty.
func listDevDir(fs afero.Fs, dir string, prefixes []string) ([]string, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !exists {
		return []string{}, nil
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	devices := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || (len(prefixes) > 0 && !hasAnyPrefix(e.Name(), prefixes)) {
			continue
		}
		devices = append(devices, filepath.Join(dir, e.Name()))
	}
	return devices, nil
}

func filterPorts(list func() ([]string, error), prefixes ...string) ([]string, error) {
	ports, err := list()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list on %s: %w", runtime.GOOS, err)
	}

	devices := make([]string, 0, len(ports))
	for _, p := range ports {
		if hasAnyPrefix(p, prefixes) {
			devices = append(devices, p)
		}
	}
	sort.Strings(devices)
	return devices, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
