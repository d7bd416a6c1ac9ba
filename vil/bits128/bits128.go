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

// Package bits128 holds the shared 128-bit magnitude representation used by
// both the Amount fixed-point scalar and the Label identifier: a 256-bit
// uint256.Int constrained to the low 128 bits, plus its 16-byte
// little-endian wire encoding.
package bits128

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Size is the byte width of a 128-bit word encoded on the wire.
const Size = 16

// ErrOutOfRange is returned when a value does not fit in 128 bits.
var ErrOutOfRange = errors.New("bits128: value exceeds 128 bits")

// Max holds 2^128 - 1, the ceiling for every value this package produces.
var Max = func() uint256.Int {
	var z uint256.Int
	z.Lsh(uint256.NewInt(1), 128)
	return *z.Sub(&z, uint256.NewInt(1))
}()

// Fits reports whether x fits within 128 bits.
func Fits(x *uint256.Int) bool {
	return x.Cmp(&Max) <= 0
}

// FromUint64 builds a 128-bit value from a uint64 (always fits).
func FromUint64(x uint64) uint256.Int {
	return *uint256.NewInt(x)
}

// Decode reads a little-endian 16-byte word into a uint256.Int.
// It returns an error if b is not exactly Size bytes.
func Decode(b []byte) (uint256.Int, error) {
	var z uint256.Int
	if len(b) != Size {
		return z, fmt.Errorf("bits128: expected %d bytes, got %d", Size, len(b))
	}
	var buf [32]byte
	// uint256.SetBytes32 expects big-endian; reverse the little-endian
	// 16-byte word into the low half of a 32-byte big-endian buffer.
	for i := 0; i < Size; i++ {
		buf[31-i] = b[i]
	}
	z.SetBytes32(buf[:])
	return z, nil
}

// Encode writes x as a little-endian 16-byte word. Panics if x does not fit
// in 128 bits; callers must validate with Fits first when x is untrusted.
func Encode(x *uint256.Int) []byte {
	if !Fits(x) {
		panic(ErrOutOfRange)
	}
	be := x.Bytes32()
	out := make([]byte, Size)
	for i := 0; i < Size; i++ {
		out[i] = be[31-i]
	}
	return out
}

// DecodeSlice splits b into consecutive 128-bit words, len(b) must be a
// multiple of Size.
func DecodeSlice(b []byte) ([]uint256.Int, error) {
	if len(b)%Size != 0 {
		return nil, fmt.Errorf("bits128: length %d is not a multiple of %d", len(b), Size)
	}
	n := len(b) / Size
	out := make([]uint256.Int, n)
	for i := 0; i < n; i++ {
		v, err := Decode(b[i*Size : (i+1)*Size])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EncodeSlice concatenates the little-endian encoding of each element.
func EncodeSlice(xs []uint256.Int) []byte {
	out := make([]byte, 0, len(xs)*Size)
	for i := range xs {
		out = append(out, Encode(&xs[i])...)
	}
	return out
}
