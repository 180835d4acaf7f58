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

// Package cli holds the command line flags shared by the dashsim binaries
// and the setup steps that turn them into a loaded config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/config"
	"github.com/ZaparooProject/zaparoo-dashsim/pkg/helpers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

type Flags struct {
	set       *flag.FlagSet
	ConfigDir *string
	Port      *string
	Debug     *bool
	Version   *bool
	List      *bool
}

// SetupFlags defines the common flags on the process-wide flag set.
func SetupFlags() *Flags {
	return newFlags(flag.CommandLine)
}

func newFlags(set *flag.FlagSet) *Flags {
	return &Flags{
		set: set,
		ConfigDir: set.String(
			"config-dir",
			DefaultConfigDir(),
			"directory holding "+config.CfgFile+" and logs",
		),
		Port: set.String(
			"port",
			"",
			"serial device of the display controller (overrides config)",
		),
		Debug: set.Bool(
			"debug",
			false,
			"enable debug logging (overrides config)",
		),
		Version: set.Bool(
			"version",
			false,
			"print version and exit",
		),
		List: set.Bool(
			"list",
			false,
			"list candidate serial devices (USB serial and /dev/pts pseudo-terminals) and exit",
		),
	}
}

// DefaultConfigDir is the per-user config directory, or the working
// directory when the OS doesn't define one.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, config.AppName)
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.set.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles flags that need no config or logging. It
// returns true when the process should exit without running.
func (f *Flags) Pre(args []string, out io.Writer, listDevices func() ([]string, error)) (bool, error) {
	if err := f.set.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}

	switch {
	case *f.Version:
		_, _ = fmt.Fprintf(out, "Zaparoo Dashsim v%s\n", config.AppVersion)
		return true, nil
	case *f.List:
		devices, err := listDevices()
		if err != nil {
			return true, fmt.Errorf("failed to list serial devices: %w", err)
		}
		if len(devices) == 0 {
			_, _ = fmt.Fprintln(out, "no serial devices found")
		}
		for _, d := range devices {
			_, _ = fmt.Fprintln(out, d)
		}
		return true, nil
	}
	return false, nil
}

// Setup initializes logging and loads the config from the config dir.
func (f *Flags) Setup(fs afero.Fs, defaults config.Values, writers []io.Writer) (*config.Instance, error) { //nolint:gocritic // config struct copied for immutability
	err := helpers.InitLogging(filepath.Join(*f.ConfigDir, "logs"), *f.Debug, writers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	cfg, err := config.NewConfig(fs, *f.ConfigDir, defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	f.Post(cfg)

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().
		Str("version", config.AppVersion).
		Str("config", cfg.Path()).
		Msg("dashsim starting")

	return cfg, nil
}

// Post applies flag overrides to the loaded config. Overrides are not saved.
func (f *Flags) Post(cfg *config.Instance) {
	if f.isFlagPassed("port") && *f.Port != "" {
		cfg.SetSerialPath(*f.Port)
	}
	if *f.Debug {
		cfg.SetDebugLogging(true)
	}
}
