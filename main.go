// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ffutop/modbus-slave/internal/config"
	"github.com/ffutop/modbus-slave/internal/register"
	"github.com/ffutop/modbus-slave/internal/register/persistence"
	"github.com/ffutop/modbus-slave/internal/slave"
	"github.com/ffutop/modbus-slave/modbus"
	"github.com/ffutop/modbus-slave/modbus/rtu"
	"github.com/ffutop/modbus-slave/transport/serial"
)

func main() {
	v := viper.New()
	config.SetDefaults(v)
	if err := config.BindFlags(pflag.CommandLine, v); err != nil {
		fmt.Printf("Failed to parse flags: %v\n", err)
		os.Exit(1)
	}
	pflag.Parse()

	// Load Configuration
	cfg, err := config.Load(v)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	slog.Info("Starting Modbus RTU slave...", "id", cfg.Slave.ID, "device", cfg.Serial.Device)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Slave stopped with error", "err", err)
		os.Exit(1)
	}
	slog.Info("Goodbye.")
}

func run(ctx context.Context, cfg *config.Config) error {
	storage, err := persistence.New(cfg.Persistence.Type, cfg.Persistence.Path)
	if err != nil {
		return err
	}
	store, err := storage.Load(cfg.Slave.Registers)
	if err != nil {
		return fmt.Errorf("failed to load registers: %w", err)
	}
	slog.Info("Registers loaded", "storage", cfg.Persistence.Type, "path", cfg.Persistence.Path, "holding", len(store.HoldingRegisters))
	defer func() {
		if err := storage.Save(store); err != nil {
			slog.Error("Failed to save registers", "err", err)
		}
		if err := storage.Close(); err != nil {
			slog.Error("Failed to close storage", "err", err)
		}
	}()

	port, err := serial.Open(cfg.Serial)
	if err != nil {
		return err
	}
	defer port.Close()

	engine, err := newEngine(cfg.Slave, cfg.Serial.BaudRate, port, store, storage)
	if err != nil {
		return err
	}

	return serve(ctx, engine, cfg.Slave.PollInterval)
}

// newEngine creates the slave engine and hooks accepted writes up to storage.
func newEngine(cfg config.SlaveConfig, baudRate int, t slave.Transport, store *register.Store, storage persistence.Storage) (*slave.Engine, error) {
	engine, err := slave.New(slave.Config{
		SlaveID:  byte(cfg.ID),
		BaudRate: baudRate,
		Capacity: cfg.FrameCapacity,
	}, t, store, nil)
	if err != nil {
		return nil, err
	}

	err = engine.AddCallback(modbus.FuncCodeWriteMultipleRegisters, func(req *rtu.ApplicationDataUnit, _ *register.Store) {
		address := binary.BigEndian.Uint16(req.Pdu.Data[0:2])
		quantity := binary.BigEndian.Uint16(req.Pdu.Data[2:4])
		storage.OnWrite(register.TableHoldingRegisters, address, quantity)
	})
	if err != nil {
		return nil, err
	}
	return engine, nil
}

// serve polls the engine until ctx is done. It sleeps only while the bus is
// idle so back to back requests are served without delay.
func serve(ctx context.Context, engine *slave.Engine, interval time.Duration) error {
	var lastErrors uint64
	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down...", "errors", engine.Errors())
			return nil
		default:
		}

		outcome, err := engine.Poll()
		if err != nil {
			slog.Error("Poll failed", "outcome", outcome, "err", err)
		}
		if n := engine.Errors(); n != lastErrors {
			slog.Warn("Request rejected", "outcome", outcome, "errors", n)
			lastErrors = n
		}
		if outcome == slave.OutcomeIdle && interval > 0 {
			time.Sleep(interval)
		}
	}
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
