// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"path/filepath"
	"testing"

	"github.com/ffutop/modbus-slave/internal/register"
)

var benchSizes = register.Sizes{HoldingRegisters: 1024, InputRegisters: 1024}

// BenchmarkMemoryStorage_OnWrite benchmarks the OnWrite hook for MemoryStorage.
func BenchmarkMemoryStorage_OnWrite(b *testing.B) {
	ms := NewMemoryStorage()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ms.OnWrite(register.TableHoldingRegisters, 10, 1)
	}
}

func BenchmarkFileStorage_OnWrite(b *testing.B) {
	fs := NewFileStorage(filepath.Join(b.TempDir(), "bench_file.bin"))
	store, err := fs.Load(benchSizes)
	if err != nil {
		b.Fatalf("Failed to load file storage: %v", err)
	}
	defer fs.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.HoldingRegisters[10] = uint16(i)
		fs.OnWrite(register.TableHoldingRegisters, 10, 1)
	}
}

// BenchmarkMmapStorage_OnWrite benchmarks the OnWrite hook for MmapStorage (msync).
func BenchmarkMmapStorage_OnWrite(b *testing.B) {
	ms := NewMmapStorage(filepath.Join(b.TempDir(), "bench_mmap.bin"))
	store, err := ms.Load(benchSizes)
	if err != nil {
		b.Fatalf("Failed to load mmap storage: %v", err)
	}
	defer ms.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// dirty the page again
		store.HoldingRegisters[10] = uint16(i)
		ms.OnWrite(register.TableHoldingRegisters, 10, 1)
	}
}

// BenchmarkMmapStorage_Load includes open, fstat and mmap system calls.
func BenchmarkMmapStorage_Load(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench_mmap_load.bin")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ms := NewMmapStorage(path)
		if _, err := ms.Load(benchSizes); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
		ms.Close()
	}
}

// BenchmarkStore_Write is the in-memory baseline.
func BenchmarkStore_Write(b *testing.B) {
	store := register.NewStore(benchSizes)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.HoldingRegisters[10] = uint16(i)
	}
}
