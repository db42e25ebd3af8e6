// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import "github.com/ffutop/modbus-slave/internal/register"

// MemoryStorage is a no-op storage (non-persistent).
type MemoryStorage struct{}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load(sizes register.Sizes) (*register.Store, error) {
	return register.NewStore(sizes), nil
}

func (ms *MemoryStorage) Save(store *register.Store) error {
	return nil
}

func (ms *MemoryStorage) OnWrite(table register.Table, address, quantity uint16) {
	// No-op
}

func (ms *MemoryStorage) Close() error {
	return nil
}
