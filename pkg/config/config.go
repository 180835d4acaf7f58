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

// Package config loads and saves the dashsim TOML settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZaparooProject/zaparoo-dashsim/pkg/helpers/syncutil"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	CfgEnv        = "DASHSIM_CFG"
)

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Serial       Serial  `toml:"serial"`
	Loop         Loop    `toml:"loop"`
	MQTT         MQTT    `toml:"mqtt,omitempty"`
	DeviceID     string  `toml:"device_id"`
	Music        Music   `toml:"music"`
	Vehicle      Vehicle `toml:"vehicle"`
	ConfigSchema int     `toml:"config_schema"`
	DebugLogging bool    `toml:"debug_logging"`
}

type Serial struct {
	Path         string `toml:"path"`
	SettleDelay  string `toml:"settle_delay" validate:"duration"`
	WriteTimeout string `toml:"write_timeout" validate:"duration"`
	BaudRate     int    `toml:"baud_rate" validate:"gte=0"`
	BufferSize   int    `toml:"buffer_size" validate:"omitempty,gte=512"`
}

type Loop struct {
	TickInterval   string `toml:"tick_interval" validate:"duration"`
	FastInterval   string `toml:"fast_interval" validate:"duration"`
	MediumInterval string `toml:"medium_interval" validate:"duration"`
	SlowInterval   string `toml:"slow_interval" validate:"duration"`
}

type Vehicle struct {
	Acceleration float64 `toml:"acceleration" validate:"gt=0"`
	Deceleration float64 `toml:"deceleration" validate:"gt=0"`
	MaxSpeed     float64 `toml:"max_speed" validate:"gt=0"`
	Odometer     float64 `toml:"odometer" validate:"gte=0"`
}

type Music struct {
	Tracks []string `toml:"tracks,multiline" validate:"min=1,dive,required"`
}

// MQTT mirroring is off while Broker is empty.
type MQTT struct {
	Broker string   `toml:"broker,omitempty" validate:"omitempty,url"`
	Topic  string   `toml:"topic,omitempty" validate:"required_with=Broker"`
	Filter []string `toml:"filter,omitempty" validate:"dive,oneof=SPEED DIST GEAR TIME MUSIC BEEP"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Serial: Serial{
		BaudRate:     9600,
		SettleDelay:  "2s",
		WriteTimeout: "100ms",
		BufferSize:   512,
	},
	Loop: Loop{
		TickInterval:   "16ms",
		FastInterval:   "50ms",
		MediumInterval: "1s",
		SlowInterval:   "3s",
	},
	Vehicle: Vehicle{
		Acceleration: 25,
		Deceleration: 15,
		MaxSpeed:     180,
		Odometer:     12345.6,
	},
	Music: Music{
		Tracks: []string{
			"Solar Sailer",
			"Adagio - Tron",
			"Armory",
			"The Grid",
			"Recognizer",
		},
	},
}

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from configDir, or the path in CfgEnv,
// writing defaults first if it doesn't exist yet.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	exists, err := afero.Exists(fs, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !exists {
		log.Info().Str("path", cfgPath).Msg("saving new default config to disk")

		if err := fs.MkdirAll(filepath.Dir(cfgPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, err
		}
	}

	if err := cfg.Load(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Load replaces the current values with the file contents layered over the
// defaults. On any error the current values are kept.
func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	newVals := c.defaults
	newVals.Music.Tracks = nil
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if newVals.Music.Tracks == nil {
		newVals.Music.Tracks = c.defaults.Music.Tracks
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := DefaultValidator.Validate(&newVals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.vals = newVals
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	if c.vals.DeviceID == "" {
		c.vals.DeviceID = uuid.New().String()
		log.Info().Msgf("generated new device id: %s", c.vals.DeviceID)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	return c.cfgPath
}

func (c *Instance) DeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DeviceID
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}

func (c *Instance) SerialPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.Path
}

func (c *Instance) SetSerialPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Serial.Path = path
}

func (c *Instance) BaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.BaudRate
}

func (c *Instance) BufferSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Serial.BufferSize
}

func (c *Instance) SettleDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Serial.SettleDelay, c.defaults.Serial.SettleDelay)
}

func (c *Instance) WriteTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Serial.WriteTimeout, c.defaults.Serial.WriteTimeout)
}

func (c *Instance) TickInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Loop.TickInterval, c.defaults.Loop.TickInterval)
}

// Intervals returns the fast, medium and slow refresh intervals.
func (c *Instance) Intervals() (fast, medium, slow time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Loop.FastInterval, c.defaults.Loop.FastInterval),
		parseDuration(c.vals.Loop.MediumInterval, c.defaults.Loop.MediumInterval),
		parseDuration(c.vals.Loop.SlowInterval, c.defaults.Loop.SlowInterval)
}

func (c *Instance) Vehicle() Vehicle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Vehicle
}

func (c *Instance) Tracks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tracks := make([]string, len(c.vals.Music.Tracks))
	copy(tracks, c.vals.Music.Tracks)
	return tracks
}

func (c *Instance) MQTT() MQTT {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := c.vals.MQTT
	m.Filter = append([]string(nil), m.Filter...)
	return m
}

// parseDuration falls back to def for empty or invalid values. Load rejects
// invalid values, so the fallback only covers unset fields.
func parseDuration(val, def string) time.Duration {
	if val == "" {
		val = def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
