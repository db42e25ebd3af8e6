// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ffutop/modbus-slave/internal/register"
	"github.com/ffutop/modbus-slave/internal/register/persistence"
	"github.com/ffutop/modbus-slave/modbus/rtu"
)

// EnvPrefix prefixes environment overrides, e.g. MODBUS_SLAVE_SLAVE_ID.
const EnvPrefix = "MODBUS_SLAVE"

// Config defines the global configuration structure
type Config struct {
	Slave       SlaveConfig       `mapstructure:"slave"`
	Serial      SerialConfig      `mapstructure:"serial"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Log         LogConfig         `mapstructure:"log"`
}

// SlaveConfig defines the slave identity and register map
type SlaveConfig struct {
	ID            int            `mapstructure:"id"`             // 1-247
	FrameCapacity int            `mapstructure:"frame_capacity"` // Receive buffer size in bytes
	PollInterval  time.Duration  `mapstructure:"poll_interval"`  // Pause between idle polls
	Registers     register.Sizes `mapstructure:"registers"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// PersistenceConfig defines data storage settings
type PersistenceConfig struct {
	Type string `mapstructure:"type"` // "memory", "file", "mmap"
	Path string `mapstructure:"path"` // File path for "file/mmap" type
}

// SerialConfig defines RTU settings
type SerialConfig struct {
	Device   string        `mapstructure:"device"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	Parity   string        `mapstructure:"parity"`
	StopBits int           `mapstructure:"stop_bits"`
	Timeout  time.Duration `mapstructure:"timeout"` // Read timeout of the receive loop

	// RS485 specific
	RS485              bool          `mapstructure:"rs485"`
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("slave.id", 1)
	v.SetDefault("slave.frame_capacity", rtu.MaxSize)
	v.SetDefault("slave.poll_interval", time.Millisecond)
	v.SetDefault("slave.registers.coils", 0)
	v.SetDefault("slave.registers.discrete_inputs", 0)
	v.SetDefault("slave.registers.input_registers", 0)
	v.SetDefault("slave.registers.holding_registers", 16)

	v.SetDefault("serial.device", "/dev/ttyS0")
	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.parity", "N")
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.timeout", 10*time.Millisecond)
	v.SetDefault("serial.rs485", false)
	v.SetDefault("serial.delay_rts_before_send", time.Duration(0))
	v.SetDefault("serial.delay_rts_after_send", time.Duration(0))
	v.SetDefault("serial.rts_high_during_send", false)
	v.SetDefault("serial.rts_high_after_send", false)
	v.SetDefault("serial.rx_during_tx", false)

	v.SetDefault("persistence.type", persistence.TypeMemory)
	v.SetDefault("persistence.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "") // stdout
}

// flags maps command line flags to configuration keys.
var flags = []struct {
	name, short, key, usage string
}{
	{"slave-id", "i", "slave.id", "Modbus slave address (1-247)."},
	{"holding-registers", "H", "slave.registers.holding_registers", "Number of holding registers."},
	{"device", "p", "serial.device", "Serial port device name."},
	{"baud-rate", "s", "serial.baud_rate", "Serial port speed."},
	{"parity", "", "serial.parity", "Serial parity (N, E, O)."},
	{"persistence", "", "persistence.type", "Register storage (memory, file, mmap)."},
	{"persistence-path", "", "persistence.path", "Register image path for file and mmap storage."},
	{"log-level", "v", "log.level", "Log verbosity level (debug, info, warn, error)."},
	{"log-file", "L", "log.file", "Log file name ('-' for logging to STDOUT only)."},
}

// BindFlags defines the command line flags on fs and binds them to v.
// Defaults must already be set on v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.StringP("config", "c", "", "Configuration file path.")
	if err := v.BindPFlag("config", fs.Lookup("config")); err != nil {
		return fmt.Errorf("failed to bind flag config: %w", err)
	}

	for _, f := range flags {
		switch def := v.Get(f.key).(type) {
		case int:
			fs.IntP(f.name, f.short, def, f.usage)
		default:
			fs.StringP(f.name, f.short, v.GetString(f.key), f.usage)
		}
		if err := v.BindPFlag(f.key, fs.Lookup(f.name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", f.name, err)
		}
	}
	return nil
}

// Load reads the configuration file, if any, and environment overrides into
// a validated Config. The file is taken from the "config" key or searched
// for in the usual locations.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbus-slave/")
		v.AddConfigPath("$HOME/.modbus-slave")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// settings may come from flags and environment alone
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixupSerial(&config.Serial)
	config.Persistence.Type = strings.ToLower(config.Persistence.Type)
	config.Log.Level = strings.ToLower(config.Log.Level)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func fixupSerial(s *SerialConfig) {
	s.Parity = strings.ToUpper(s.Parity)
	if s.Timeout == 0 {
		s.Timeout = 10 * time.Millisecond
	}
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	if c.Slave.ID < rtu.MinSlaveID || c.Slave.ID > rtu.MaxSlaveID {
		return fmt.Errorf("config: slave.id %d out of range [%d, %d]", c.Slave.ID, rtu.MinSlaveID, rtu.MaxSlaveID)
	}
	if c.Slave.FrameCapacity <= rtu.MinRequestSize || c.Slave.FrameCapacity > rtu.MaxSize {
		return fmt.Errorf("config: slave.frame_capacity %d out of range (%d, %d]", c.Slave.FrameCapacity, rtu.MinRequestSize, rtu.MaxSize)
	}
	if c.Slave.PollInterval < 0 {
		return fmt.Errorf("config: slave.poll_interval must not be negative")
	}
	if err := c.Slave.Registers.Validate(); err != nil {
		return fmt.Errorf("config: slave.registers: %w", err)
	}

	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("config: serial.baud_rate %d must be positive", c.Serial.BaudRate)
	}
	switch c.Serial.Parity {
	case "N", "E", "O":
	default:
		return fmt.Errorf("config: serial.parity %q must be one of N, E, O", c.Serial.Parity)
	}

	switch c.Persistence.Type {
	case persistence.TypeMemory:
	case persistence.TypeFile, persistence.TypeMmap:
		if c.Persistence.Path == "" {
			return fmt.Errorf("config: persistence.path is required for %s storage", c.Persistence.Type)
		}
	default:
		return fmt.Errorf("config: unknown persistence.type %q", c.Persistence.Type)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	return nil
}
