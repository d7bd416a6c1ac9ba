// Copyright 2024 The VIL Authors
// This file is part of VIL.

package storage

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/vectorlang/vil/vil/container"
)

// CachedVectorIO decorates a backing VectorIO with bounded LRU caches for
// labels and vectors, write-through on Store and memoizing on Load. This is
// the same shape go-ethereum-family clients use in front of their trie/state
// backends (the teacher's go.mod depends directly on
// github.com/hashicorp/golang-lru for exactly this purpose); here it gives
// a sub-routine-heavy VIL program — one that repeatedly LDV's the same
// operand vector across FOLD iterations — a hot path that skips the backing
// store (each cache hit still returns a fresh copy).
type CachedVectorIO struct {
	back    VectorIO
	labels  *lru.Cache
	vectors *lru.Cache
}

// NewCachedVectorIO wraps back with an LRU cache of the given size (applied
// independently to the labels and vectors namespaces).
func NewCachedVectorIO(back VectorIO, size int) (*CachedVectorIO, error) {
	labelsCache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	vectorsCache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedVectorIO{back: back, labels: labelsCache, vectors: vectorsCache}, nil
}

// LoadLabels implements VectorIO.
func (c *CachedVectorIO) LoadLabels(id uint256.Int) (container.Labels, error) {
	if v, ok := c.labels.Get(id); ok {
		return v.(container.Labels).Clone(), nil
	}
	v, err := c.back.LoadLabels(id)
	if err != nil {
		return container.Labels{}, err
	}
	c.labels.Add(id, v)
	return v, nil
}

// LoadVector implements VectorIO.
func (c *CachedVectorIO) LoadVector(id uint256.Int) (container.Vector, error) {
	if v, ok := c.vectors.Get(id); ok {
		return v.(container.Vector).Clone(), nil
	}
	v, err := c.back.LoadVector(id)
	if err != nil {
		return container.Vector{}, err
	}
	c.vectors.Add(id, v)
	return v, nil
}

// LoadCode implements VectorIO; code blobs are not cached since sub-routine
// bodies are typically loaded once per B/FOLD call site, not hot-looped.
func (c *CachedVectorIO) LoadCode(id uint256.Int) ([]byte, error) {
	return c.back.LoadCode(id)
}

// StoreLabels implements VectorIO, writing through to the backing store and
// refreshing the cache entry.
func (c *CachedVectorIO) StoreLabels(id uint256.Int, v container.Labels) error {
	if err := c.back.StoreLabels(id, v); err != nil {
		return err
	}
	c.labels.Add(id, v.Clone())
	return nil
}

// StoreVector implements VectorIO, writing through to the backing store and
// refreshing the cache entry.
func (c *CachedVectorIO) StoreVector(id uint256.Int, v container.Vector) error {
	if err := c.back.StoreVector(id, v); err != nil {
		return err
	}
	c.vectors.Add(id, v.Clone())
	return nil
}
