// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffutop/modbus-slave/internal/register"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	fs := pflag.NewFlagSet("modbus-slave", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs, v))
	require.NoError(t, fs.Parse(args))
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Slave.ID)
	assert.Equal(t, 128, cfg.Slave.FrameCapacity)
	assert.Equal(t, time.Millisecond, cfg.Slave.PollInterval)
	assert.Equal(t, register.Sizes{HoldingRegisters: 16}, cfg.Slave.Registers)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, "N", cfg.Serial.Parity)
	assert.Equal(t, 10*time.Millisecond, cfg.Serial.Timeout)
	assert.Equal(t, "memory", cfg.Persistence.Type)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := load(t, "--slave-id", "3", "-H", "4", "--parity", "e", "-v", "debug")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Slave.ID)
	assert.Equal(t, 4, cfg.Slave.Registers.HoldingRegisters)
	assert.Equal(t, "E", cfg.Serial.Parity)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("MODBUS_SLAVE_SLAVE_ID", "9")
	t.Setenv("MODBUS_SLAVE_SERIAL_BAUD_RATE", "19200")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Slave.ID)
	assert.Equal(t, 19200, cfg.Serial.BaudRate)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
slave:
  id: 17
  registers:
    holding_registers: 64
    input_registers: 8
serial:
  device: /dev/ttyUSB1
  baud_rate: 38400
  rs485: true
  delay_rts_after_send: 2ms
persistence:
  type: mmap
  path: /var/lib/modbus-slave/registers.bin
log:
  level: warn
`), 0644))

	cfg, err := load(t, "-c", path, "--slave-id", "18")
	require.NoError(t, err)

	assert.Equal(t, 18, cfg.Slave.ID, "flags override the file")
	assert.Equal(t, register.Sizes{HoldingRegisters: 64, InputRegisters: 8}, cfg.Slave.Registers)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Device)
	assert.Equal(t, 38400, cfg.Serial.BaudRate)
	assert.True(t, cfg.Serial.RS485)
	assert.Equal(t, 2*time.Millisecond, cfg.Serial.DelayRtsAfterSend)
	assert.Equal(t, "mmap", cfg.Persistence.Type)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := load(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Slave:       SlaveConfig{ID: 1, FrameCapacity: 128, Registers: register.Sizes{HoldingRegisters: 4}},
			Serial:      SerialConfig{BaudRate: 9600, Parity: "N"},
			Persistence: PersistenceConfig{Type: "memory"},
			Log:         LogConfig{Level: "info"},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"slave id zero", func(c *Config) { c.Slave.ID = 0 }},
		{"slave id too large", func(c *Config) { c.Slave.ID = 248 }},
		{"capacity too small", func(c *Config) { c.Slave.FrameCapacity = 8 }},
		{"capacity too large", func(c *Config) { c.Slave.FrameCapacity = 129 }},
		{"negative poll interval", func(c *Config) { c.Slave.PollInterval = -time.Second }},
		{"too many registers", func(c *Config) { c.Slave.Registers.HoldingRegisters = register.MaxSize + 1 }},
		{"baud rate", func(c *Config) { c.Serial.BaudRate = 0 }},
		{"parity", func(c *Config) { c.Serial.Parity = "X" }},
		{"storage type", func(c *Config) { c.Persistence.Type = "sql" }},
		{"storage path", func(c *Config) { c.Persistence.Type = "file" }},
		{"log level", func(c *Config) { c.Log.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
