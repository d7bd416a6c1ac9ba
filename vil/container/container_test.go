// Copyright 2024 The VIL Authors
// This file is part of VIL.

package container

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/vectorlang/vil/vil/amount"
)

func a(u uint64) amount.Amount {
	v, ok := amount.FromUnits(u)
	if !ok {
		panic("overflow")
	}
	return v
}

func TestVectorRoundTrip(t *testing.T) {
	v := NewVector(a(1), a(2), a(3))
	enc := v.Bytes()
	if len(enc)%16 != 0 {
		t.Fatalf("encoded length %d not a multiple of 16", len(enc))
	}
	got, err := VectorFromBytes(enc)
	if err != nil {
		t.Fatalf("VectorFromBytes: %v", err)
	}
	if got.Len() != v.Len() {
		t.Fatalf("round-trip length mismatch: got %d want %d", got.Len(), v.Len())
	}
	for i := 0; i < v.Len(); i++ {
		want, _ := v.At(i)
		have, _ := got.At(i)
		if have.Cmp(want) != 0 {
			t.Fatalf("round-trip element %d mismatch: got %v want %v", i, have, want)
		}
	}
}

func TestVectorCloneIsIndependent(t *testing.T) {
	v := NewVector(a(1), a(2))
	clone := v.Clone()
	clone.Set(0, a(99))
	orig, _ := v.At(0)
	if orig.Cmp(a(1)) != 0 {
		t.Fatalf("mutating clone mutated original: %v", orig)
	}
}

func TestZerosOnes(t *testing.T) {
	z := Zeros(3)
	for i := 0; i < 3; i++ {
		e, _ := z.At(i)
		if !e.IsZero() {
			t.Fatalf("Zeros()[%d] = %v, want 0", i, e)
		}
	}
	o := Ones(2)
	for i := 0; i < 2; i++ {
		e, _ := o.At(i)
		if e.Cmp(amount.ONE) != 0 {
			t.Fatalf("Ones()[%d] = %v, want 1", i, e)
		}
	}
}

func TestLabelsUnionCommutative(t *testing.T) {
	l1 := NewLabels(*uint256.NewInt(1), *uint256.NewInt(3))
	l2 := NewLabels(*uint256.NewInt(2), *uint256.NewInt(3))
	u1 := l1.Union(l2)
	u2 := l2.Union(l1)
	if u1.Len() != u2.Len() {
		t.Fatalf("union lengths differ: %d vs %d", u1.Len(), u2.Len())
	}
	for i := 0; i < u1.Len(); i++ {
		e1, _ := u1.At(i)
		e2, _ := u2.At(i)
		if e1.Cmp(&e2) != 0 {
			t.Fatalf("union element %d differs: %v vs %v", i, e1, e2)
		}
	}
	if !u1.IsStrictlyIncreasing() {
		t.Fatalf("union result is not strictly increasing: %v", u1.Elements())
	}
}

func TestLabelsIndexOf(t *testing.T) {
	l := NewLabels(*uint256.NewInt(10), *uint256.NewInt(20), *uint256.NewInt(30))
	idx, ok := l.IndexOf(*uint256.NewInt(20))
	if !ok || idx != 1 {
		t.Fatalf("IndexOf(20) = (%d, %v), want (1, true)", idx, ok)
	}
	_, ok = l.IndexOf(*uint256.NewInt(25))
	if ok {
		t.Fatalf("IndexOf(25) should fail")
	}
}

func TestLabelsRoundTrip(t *testing.T) {
	l := NewLabels(*uint256.NewInt(51), *uint256.NewInt(52))
	enc := l.Bytes()
	got, err := LabelsFromBytes(enc)
	if err != nil {
		t.Fatalf("LabelsFromBytes: %v", err)
	}
	if got.Len() != l.Len() {
		t.Fatalf("round-trip length mismatch")
	}
}
