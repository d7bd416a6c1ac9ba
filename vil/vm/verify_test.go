// Copyright 2024 The VIL Authors
// This file is part of VIL.

package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyAcceptsWellFormedProgram(t *testing.T) {
	code := []byte{byte(OpLDR), 0, byte(OpLDR), 1, byte(OpADD), 1}
	require.Empty(t, Verify(code, 2))
}

func TestVerifyRejectsUnknownOpcode(t *testing.T) {
	errs := Verify([]byte{0xFF}, 0)
	require.Len(t, errs, 1)
	require.Equal(t, 0, errs[0].Offset)
}

func TestVerifyRejectsTruncatedInstruction(t *testing.T) {
	errs := Verify([]byte{byte(OpADD)}, 0)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "truncated")
}

func TestVerifyRejectsOutOfRangeRegister(t *testing.T) {
	errs := Verify([]byte{byte(OpLDR), 5}, 2)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Error(), "out of bounds")
}
