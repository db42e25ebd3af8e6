// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"

	"github.com/ffutop/modbus-slave/internal/register"
)

// Storage persists the slave's register store.
type Storage interface {
	// Load returns a store with the given table sizes. Content saved by a
	// previous run with the same sizes is restored.
	Load(sizes register.Sizes) (*register.Store, error)

	// Save writes the current store to storage.
	Save(store *register.Store) error

	// OnWrite is a hook called after registers were modified by a request.
	OnWrite(table register.Table, address, quantity uint16)

	// Close releases the backing resources. The store returned by Load
	// must not be used afterwards.
	Close() error
}

// Storage types accepted by New.
const (
	TypeMemory = "memory"
	TypeFile   = "file"
	TypeMmap   = "mmap"
)

// New creates the storage named by typ. File backed types need a path.
func New(typ, path string) (Storage, error) {
	switch typ {
	case "", TypeMemory:
		return NewMemoryStorage(), nil
	case TypeFile, TypeMmap:
		if path == "" {
			return nil, fmt.Errorf("persistence: %s storage requires a path", typ)
		}
		if typ == TypeFile {
			return NewFileStorage(path), nil
		}
		return NewMmapStorage(path), nil
	}
	return nil, fmt.Errorf("persistence: unknown storage type %q", typ)
}
