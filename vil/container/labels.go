// Copyright 2024 The VIL Authors
// This file is part of VIL.

package container

import (
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/vectorlang/vil/vil/bits128"
)

// Labels is an ordered sequence of 128-bit identifiers. Callers that use a
// Labels value in a label-aligned operation (LUNION/JUPD/JADD/JFLT) are
// required to keep it strictly increasing; this invariant is assumed, not
// enforced, on load (spec'd behavior — a caller that stores unsorted labels
// and then joins on them gets undefined JFLT/JUPD results, which may include
// a spurious MathUnderflow from the sorted scan, not a load-time error).
type Labels struct {
	data []uint256.Int
}

// NewLabels builds a Labels from the given ids (copied), in the given order.
func NewLabels(ids ...uint256.Int) Labels {
	data := make([]uint256.Int, len(ids))
	copy(data, ids)
	return Labels{data: data}
}

// Len returns the number of ids.
func (l Labels) Len() int { return len(l.data) }

// At returns the id at index i.
func (l Labels) At(i int) (uint256.Int, bool) {
	if i < 0 || i >= len(l.data) {
		return uint256.Int{}, false
	}
	return l.data[i], true
}

// Push appends id to the end.
func (l *Labels) Push(id uint256.Int) {
	l.data = append(l.data, id)
}

// Pop removes and returns the last id.
func (l *Labels) Pop() (uint256.Int, bool) {
	if len(l.data) == 0 {
		return uint256.Int{}, false
	}
	last := l.data[len(l.data)-1]
	l.data = l.data[:len(l.data)-1]
	return last, true
}

// Elements returns a read-only view of the underlying slice in index order.
func (l Labels) Elements() []uint256.Int { return l.data }

// Clone returns an independent copy.
func (l Labels) Clone() Labels {
	data := make([]uint256.Int, len(l.data))
	copy(data, l.data)
	return Labels{data: data}
}

// IsStrictlyIncreasing reports whether every element is strictly greater
// than its predecessor. Used by tests and by callers that want to validate
// the invariant before relying on it.
func (l Labels) IsStrictlyIncreasing() bool {
	for i := 1; i < len(l.data); i++ {
		if l.data[i-1].Cmp(&l.data[i]) >= 0 {
			return false
		}
	}
	return true
}

// IndexOf returns the index of id within a strictly-increasing Labels via
// binary search, or (0, false) if absent.
func (l Labels) IndexOf(id uint256.Int) (int, bool) {
	n := len(l.data)
	i := sort.Search(n, func(i int) bool { return l.data[i].Cmp(&id) >= 0 })
	if i < n && l.data[i].Cmp(&id) == 0 {
		return i, true
	}
	return 0, false
}

// Union returns the sorted merge of two strictly-increasing Labels,
// deduplicating equal ids. O(len(l)+len(other)).
func (l Labels) Union(other Labels) Labels {
	out := make([]uint256.Int, 0, len(l.data)+len(other.data))
	i, j := 0, 0
	for i < len(l.data) && j < len(other.data) {
		switch l.data[i].Cmp(&other.data[j]) {
		case -1:
			out = append(out, l.data[i])
			i++
		case 1:
			out = append(out, other.data[j])
			j++
		default:
			out = append(out, l.data[i])
			i++
			j++
		}
	}
	out = append(out, l.data[i:]...)
	out = append(out, other.data[j:]...)
	return Labels{data: out}
}

// Bytes encodes the Labels as a concatenation of 16-byte little-endian
// words, one per id, in index order.
func (l Labels) Bytes() []byte {
	return bits128.EncodeSlice(l.data)
}

// LabelsFromBytes decodes Labels from its byte encoding. len(b) must be a
// multiple of 16.
func LabelsFromBytes(b []byte) (Labels, error) {
	words, err := bits128.DecodeSlice(b)
	if err != nil {
		return Labels{}, fmt.Errorf("container: decode labels: %w", err)
	}
	return Labels{data: words}, nil
}
