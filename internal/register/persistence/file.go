// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ffutop/modbus-slave/internal/register"
)

// FileStorage keeps the store in memory and writes the whole image back to
// a file on every change.
//
// Layout: coils, discrete inputs, holding registers, input registers,
// two bytes per word in host byte order. A file whose size does not match
// the configured tables is resized.
type FileStorage struct {
	path string
	file *os.File
	data []byte
}

// NewFileStorage creates a new FileStorage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

// Load reads the file into a store backed by the read buffer.
func (fs *FileStorage) Load(sizes register.Sizes) (*register.Store, error) {
	f, err := os.OpenFile(fs.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	size := int64(layoutSize(sizes))
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() != size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize file: %w", err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	fs.file = f
	fs.data = data

	return mapBytesToStore(data, sizes), nil
}

// Save writes the image to disk.
func (fs *FileStorage) Save(store *register.Store) error {
	return fs.sync()
}

// OnWrite syncs the image so a write survives a crash.
func (fs *FileStorage) OnWrite(table register.Table, address, quantity uint16) {
	if err := fs.sync(); err != nil {
		slog.Error("Failed to sync file", "table", table, "address", address, "quantity", quantity, "err", err)
	}
}

func (fs *FileStorage) sync() error {
	if fs.data == nil || fs.file == nil {
		return nil
	}
	if _, err := fs.file.WriteAt(fs.data, 0); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := fs.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file to disk: %w", err)
	}
	return nil
}

// Close closes the file.
func (fs *FileStorage) Close() error {
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	fs.data = nil
	return err
}
