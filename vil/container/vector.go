// Copyright 2024 The VIL Authors
// This file is part of VIL.
//
// VIL is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package container holds the two opaque data containers the VIL stack
// machine operates on: Vector (an ordered sequence of Amounts) and Labels
// (an ordered, conventionally strictly-increasing sequence of 128-bit ids).
// Neither type defines arithmetic of its own — the VM composes element-wise
// loops over these containers using the amount package, the same separation
// of concerns the teacher's stdlib/math array-language helpers (Map/Zip/
// Reduce/Filter over a flat slice) use for its own typed arrays.
package container

import (
	"fmt"

	"github.com/vectorlang/vil/vil/amount"
	"github.com/vectorlang/vil/vil/bits128"
)

// Vector is an ordered, dynamically-sized sequence of Amount.
type Vector struct {
	data []amount.Amount
}

// NewVector builds a Vector from the given elements (copied).
func NewVector(elems ...amount.Amount) Vector {
	data := make([]amount.Amount, len(elems))
	copy(data, elems)
	return Vector{data: data}
}

// Len returns the number of elements.
func (v Vector) Len() int { return len(v.data) }

// At returns the element at index i.
func (v Vector) At(i int) (amount.Amount, bool) {
	if i < 0 || i >= len(v.data) {
		return amount.Amount{}, false
	}
	return v.data[i], true
}

// Set overwrites the element at index i in place.
func (v *Vector) Set(i int, a amount.Amount) bool {
	if i < 0 || i >= len(v.data) {
		return false
	}
	v.data[i] = a
	return true
}

// Push appends a to the end of the Vector.
func (v *Vector) Push(a amount.Amount) {
	v.data = append(v.data, a)
}

// Pop removes and returns the last element.
func (v *Vector) Pop() (amount.Amount, bool) {
	if len(v.data) == 0 {
		return amount.Amount{}, false
	}
	last := v.data[len(v.data)-1]
	v.data = v.data[:len(v.data)-1]
	return last, true
}

// Elements returns a read-only view of the underlying slice in index order.
func (v Vector) Elements() []amount.Amount { return v.data }

// Clone returns an independent copy; mutating the clone never affects v.
func (v Vector) Clone() Vector {
	data := make([]amount.Amount, len(v.data))
	copy(data, v.data)
	return Vector{data: data}
}

// Zeros returns a new Vector of length n filled with amount.ZERO.
func Zeros(n int) Vector {
	return Vector{data: make([]amount.Amount, n)}
}

// Ones returns a new Vector of length n filled with amount.ONE.
func Ones(n int) Vector {
	data := make([]amount.Amount, n)
	for i := range data {
		data[i] = amount.ONE
	}
	return Vector{data: data}
}

// Bytes encodes the Vector as a concatenation of 16-byte little-endian
// words, one per element, in index order.
func (v Vector) Bytes() []byte {
	out := make([]byte, 0, len(v.data)*bits128.Size)
	for _, a := range v.data {
		raw := a.ToRaw()
		out = append(out, bits128.Encode(&raw)...)
	}
	return out
}

// VectorFromBytes decodes a Vector from its byte encoding. len(b) must be a
// multiple of 16.
func VectorFromBytes(b []byte) (Vector, error) {
	words, err := bits128.DecodeSlice(b)
	if err != nil {
		return Vector{}, fmt.Errorf("container: decode vector: %w", err)
	}
	data := make([]amount.Amount, len(words))
	for i, w := range words {
		a, ok := amount.FromRaw(w)
		if !ok {
			return Vector{}, fmt.Errorf("container: vector element %d exceeds 128 bits", i)
		}
		data[i] = a
	}
	return Vector{data: data}, nil
}
