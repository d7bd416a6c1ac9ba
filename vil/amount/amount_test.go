// Copyright 2024 The VIL Authors
// This file is part of VIL.

package amount

import "testing"

func mustUnits(t *testing.T, u uint64) Amount {
	t.Helper()
	a, ok := FromUnits(u)
	if !ok {
		t.Fatalf("FromUnits(%d) overflowed", u)
	}
	return a
}

func TestConstants(t *testing.T) {
	if ONE.String() != "1" {
		t.Fatalf("ONE.String() = %q, want 1", ONE.String())
	}
	if !ZERO.IsZero() {
		t.Fatalf("ZERO is not zero")
	}
	if TWO.Cmp(ONE) <= 0 {
		t.Fatalf("TWO should be greater than ONE")
	}
}

func TestCheckedAddOverflow(t *testing.T) {
	if _, ok := MAX.CheckedAdd(ONE); ok {
		t.Fatalf("MAX + ONE should overflow")
	}
	sum, ok := mustUnits(t, 2).CheckedAdd(mustUnits(t, 3))
	if !ok || sum.Cmp(mustUnits(t, 5)) != 0 {
		t.Fatalf("2+3 = %v, want 5", sum)
	}
}

func TestCheckedSubUnderflow(t *testing.T) {
	if _, ok := ZERO.CheckedSub(ONE); ok {
		t.Fatalf("0 - 1 should underflow")
	}
	if got := ZERO.SaturatingSub(ONE); !got.IsZero() {
		t.Fatalf("SaturatingSub(0,1) = %v, want 0", got)
	}
}

func TestCheckedMulDiv(t *testing.T) {
	a := mustUnits(t, 3)
	b := mustUnits(t, 4)
	prod, ok := a.CheckedMul(b)
	if !ok || prod.Cmp(mustUnits(t, 12)) != 0 {
		t.Fatalf("3*4 = %v, want 12", prod)
	}
	quot, ok := prod.CheckedDiv(b)
	if !ok || quot.Cmp(a) != 0 {
		t.Fatalf("12/4 = %v, want 3", quot)
	}
	if _, ok := a.CheckedDiv(ZERO); ok {
		t.Fatalf("division by zero should fail")
	}
}

func TestCheckedSqrt(t *testing.T) {
	root, ok := ONE.CheckedSqrt()
	if !ok || root.Cmp(ONE) != 0 {
		t.Fatalf("sqrt(1) = %v, want 1", root)
	}
	four := mustUnits(t, 4)
	root, ok = four.CheckedSqrt()
	if !ok || root.Cmp(TWO) != 0 {
		t.Fatalf("sqrt(4) = %v, want 2", root)
	}
	// sqrt(2) truncates: 1.414213562373095048 -> floor at scale 1e18.
	two := mustUnits(t, 2)
	root, ok = two.CheckedSqrt()
	if !ok {
		t.Fatalf("sqrt(2) failed")
	}
	if root.Cmp(ONE) <= 0 || root.Cmp(TWO) >= 0 {
		t.Fatalf("sqrt(2) = %v, want in (1,2)", root)
	}
}

func TestMinMax(t *testing.T) {
	a := mustUnits(t, 3)
	b := mustUnits(t, 7)
	if Min(a, b).Cmp(a) != 0 {
		t.Fatalf("Min(3,7) should be 3")
	}
	if Max(a, b).Cmp(b) != 0 {
		t.Fatalf("Max(3,7) should be 7")
	}
}
