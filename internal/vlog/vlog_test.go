// Copyright 2024 The VIL Authors
// This file is part of VIL.

package vlog_test

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/vectorlang/vil/internal/vlog"
	"github.com/vectorlang/vil/vil/bits128"
	"github.com/vectorlang/vil/vil/storage"
	"github.com/vectorlang/vil/vil/vm"
)

// A Logger constructed with vlog.New satisfies vm.Logger and is invoked on
// a failing program, exercising the §7 "debug builds may log the stack on
// failure" wiring end to end.
func TestLoggerDumpsFailingExecution(t *testing.T) {
	var buf bytes.Buffer
	logger := vlog.New(&buf)

	store := storage.NewMemStore()
	machine := vm.New(store, vm.WithLogger(logger))

	missing := uint256.NewInt(999)
	program := append([]byte{byte(vm.OpLDV)}, bits128.Encode(missing)...)

	err := machine.Execute(program, 0)
	require.Error(t, err)
	require.Contains(t, buf.String(), "vil: execution failed")
	require.Contains(t, buf.String(), "stack depth=0")
}
