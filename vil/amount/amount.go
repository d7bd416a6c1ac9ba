// Copyright 2024 The VIL Authors
// This file is part of VIL.
//
// VIL is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// VIL is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// Package amount implements Amount, the fixed-point scalar that every VIL
// arithmetic opcode operates on: an unsigned 128-bit magnitude with an
// implicit decimal scale of 10^18. Every operation is checked — overflow,
// underflow, division by zero, and sqrt domain errors all surface as a
// failed (Amount{}, false) result rather than a panic or silent wraparound,
// using 256-bit uint256.Int intermediates to detect 128-bit overflow the
// way spec'd in the VIL core's numeric invariant.
package amount

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/vectorlang/vil/vil/bits128"
)

// Scale is the implicit fixed-point scale: 1 unit == Scale raw integer steps.
const Scale uint64 = 1_000_000_000_000_000_000

var scaleInt = uint256.NewInt(Scale)

// Amount is an unsigned, checked, fixed-point scalar at scale 10^18.
// The zero value is the Amount ZERO.
type Amount struct {
	mag uint256.Int
}

var (
	// ZERO is the additive identity.
	ZERO = Amount{}
	// ONE represents the value 1.0.
	ONE = Amount{*uint256.NewInt(Scale)}
	// TWO represents the value 2.0.
	TWO = Amount{*new(uint256.Int).Mul(uint256.NewInt(Scale), uint256.NewInt(2))}
	// FOUR represents the value 4.0.
	FOUR = Amount{*new(uint256.Int).Mul(uint256.NewInt(Scale), uint256.NewInt(4))}
	// MAX is the largest representable Amount (2^128 - 1 raw units).
	MAX = Amount{bits128.Max}
)

// FromRaw builds an Amount from an already-scaled 128-bit integer (the raw
// internal representation, no rescale). It fails if x does not fit in 128
// bits.
func FromRaw(x uint256.Int) (Amount, bool) {
	if !bits128.Fits(&x) {
		return Amount{}, false
	}
	return Amount{x}, true
}

// FromRawUint64 builds an Amount from a raw scaled uint64 (always fits).
func FromRawUint64(x uint64) Amount {
	return Amount{*uint256.NewInt(x)}
}

// FromUnits builds an Amount representing the whole-unit count units (i.e.
// units * Scale), checked for overflow.
func FromUnits(units uint64) (Amount, bool) {
	prod, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(units), scaleInt)
	if overflow || !bits128.Fits(prod) {
		return Amount{}, false
	}
	return Amount{*prod}, true
}

// ToRaw returns the raw scaled 128-bit integer.
func (a Amount) ToRaw() uint256.Int { return a.mag }

// ToUnits returns the whole-unit count, truncating any fractional part.
func (a Amount) ToUnits() uint256.Int {
	var q uint256.Int
	q.Div(&a.mag, scaleInt)
	return q
}

// IsZero reports whether a is ZERO.
func (a Amount) IsZero() bool { return a.mag.IsZero() }

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int { return a.mag.Cmp(&b.mag) }

// Min returns the lesser of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the greater of a and b.
func Max(a, b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// CheckedAdd returns a+b, or (zero, false) on overflow past MAX.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	var z uint256.Int
	sum, overflow := z.AddOverflow(&a.mag, &b.mag)
	if overflow || !bits128.Fits(sum) {
		return Amount{}, false
	}
	return Amount{*sum}, true
}

// CheckedSub returns a-b, or (zero, false) if b > a.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	var z uint256.Int
	diff, underflow := z.SubOverflow(&a.mag, &b.mag)
	if underflow {
		return Amount{}, false
	}
	return Amount{*diff}, true
}

// SaturatingSub returns max(a-b, 0): it never fails.
func (a Amount) SaturatingSub(b Amount) Amount {
	if r, ok := a.CheckedSub(b); ok {
		return r
	}
	return ZERO
}

// CheckedMul returns a*b (rescaled, truncated toward zero), or (zero,
// false) on overflow.
func (a Amount) CheckedMul(b Amount) (Amount, bool) {
	var z uint256.Int
	raw, overflow := z.MulOverflow(&a.mag, &b.mag)
	if overflow {
		return Amount{}, false
	}
	var scaled uint256.Int
	scaled.Div(raw, scaleInt)
	if !bits128.Fits(&scaled) {
		return Amount{}, false
	}
	return Amount{scaled}, true
}

// CheckedSq returns a*a.
func (a Amount) CheckedSq() (Amount, bool) {
	return a.CheckedMul(a)
}

// CheckedDiv returns a/b (rescaled, truncated toward zero), or (zero,
// false) if b is zero or the result overflows.
func (a Amount) CheckedDiv(b Amount) (Amount, bool) {
	if b.IsZero() {
		return Amount{}, false
	}
	var widened uint256.Int
	raw, overflow := widened.MulOverflow(&a.mag, scaleInt)
	if overflow {
		return Amount{}, false
	}
	var quot uint256.Int
	quot.Div(raw, &b.mag)
	if !bits128.Fits(&quot) {
		return Amount{}, false
	}
	return Amount{quot}, true
}

// CheckedSqrt returns the largest Amount r such that r*r <= a (integer
// square root at scale 10^18), or (zero, false) if the widened intermediate
// overflows 256 bits (never happens for a valid, in-range Amount).
func (a Amount) CheckedSqrt() (Amount, bool) {
	var widened uint256.Int
	x, overflow := widened.MulOverflow(&a.mag, scaleInt)
	if overflow {
		return Amount{}, false
	}
	root := new(big.Int).Sqrt(x.ToBig())
	var out uint256.Int
	if overflow := out.SetFromBig(root); overflow {
		return Amount{}, false
	}
	if !bits128.Fits(&out) {
		return Amount{}, false
	}
	return Amount{out}, true
}

// String renders the Amount as a decimal (e.g. "1.5") for debugging.
func (a Amount) String() string {
	units := a.ToUnits()
	var rem uint256.Int
	rem.Mod(&a.mag, scaleInt)
	if rem.IsZero() {
		return units.Dec()
	}
	frac := rem.Dec()
	for len(frac) < 18 {
		frac = "0" + frac
	}
	// Trim trailing zeros for a tidier rendering.
	end := len(frac)
	for end > 0 && frac[end-1] == '0' {
		end--
	}
	return units.Dec() + "." + frac[:end]
}
