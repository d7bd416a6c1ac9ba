// Copyright 2024 The VIL Authors
// This file is part of VIL.
//
// VIL is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package storage defines VectorIO, the blob-store capability the VIL
// interpreter is bound to, plus an in-memory reference implementation
// grounded on the teacher's test_utils.TestVectorIO (the hand-rolled
// in-memory store used by the original VM's own test suite).
package storage

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"
	"github.com/vectorlang/vil/vil/container"
)

// ErrNotFound is returned by a VectorIO implementation when an id is absent.
var ErrNotFound = errors.New("storage: id not found")

// VectorIO is the external capability the VM delegates all persistent state
// to. The VM treats it as opaque: ids are plain 128-bit integers and the
// same id space may be reused across labels, vectors, and code at the
// caller's own risk (spec.md §4.3) — load-time tag confusion surfaces as
// InvalidOperand from the VM, not from VectorIO itself.
type VectorIO interface {
	LoadLabels(id uint256.Int) (container.Labels, error)
	LoadVector(id uint256.Int) (container.Vector, error)
	LoadCode(id uint256.Int) ([]byte, error)
	StoreLabels(id uint256.Int, v container.Labels) error
	StoreVector(id uint256.Int, v container.Vector) error
}

// MemStore is an in-memory VectorIO backed by three plain maps, one per
// blob kind. It is safe for concurrent use; the VM itself never needs that,
// but tests that share a store across goroutines do.
type MemStore struct {
	mu     sync.RWMutex
	labels map[uint256.Int]container.Labels
	vecs   map[uint256.Int]container.Vector
	code   map[uint256.Int][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		labels: make(map[uint256.Int]container.Labels),
		vecs:   make(map[uint256.Int]container.Vector),
		code:   make(map[uint256.Int][]byte),
	}
}

// LoadLabels implements VectorIO.
func (m *MemStore) LoadLabels(id uint256.Int) (container.Labels, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.labels[id]
	if !ok {
		return container.Labels{}, ErrNotFound
	}
	return v.Clone(), nil
}

// LoadVector implements VectorIO.
func (m *MemStore) LoadVector(id uint256.Int) (container.Vector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vecs[id]
	if !ok {
		return container.Vector{}, ErrNotFound
	}
	return v.Clone(), nil
}

// LoadCode implements VectorIO.
func (m *MemStore) LoadCode(id uint256.Int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.code[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// StoreLabels implements VectorIO.
func (m *MemStore) StoreLabels(id uint256.Int, v container.Labels) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels[id] = v.Clone()
	return nil
}

// StoreVector implements VectorIO.
func (m *MemStore) StoreVector(id uint256.Int, v container.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vecs[id] = v.Clone()
	return nil
}

// StoreCode stores raw bytecode under id, for later retrieval via LoadCode
// by a B or FOLD opcode. VectorIO has no StoreCode method (spec.md §3.6:
// "code loaded via sub-routine opcodes must have been pre-stored via one of
// the byte-level paths") — this is the concrete byte-level path for the
// in-memory reference store.
func (m *MemStore) StoreCode(id uint256.Int, code []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(code))
	copy(cp, code)
	m.code[id] = cp
}
