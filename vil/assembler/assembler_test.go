// Copyright 2024 The VIL Authors
// This file is part of VIL.

package assembler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vectorlang/vil/vil/vm"
)

func TestAssembleIsDeterministic(t *testing.T) {
	prog := Program{
		{Mnemonic: "LDV", Args: []Arg{Imm(20)}},
		{Mnemonic: "LDR", Args: []Arg{Reg("_acc")}},
		{Mnemonic: "ADD", Args: []Arg{Imm(1)}},
		{Mnemonic: "STR", Args: []Arg{Reg("_acc")}},
	}

	code1, regs1, err1 := Assemble(prog)
	require.NoError(t, err1)
	code2, regs2, err2 := Assemble(prog)
	require.NoError(t, err2)

	require.Equal(t, code1, code2)
	require.Equal(t, regs1, regs2)
	require.Equal(t, 1, regs1)
}

func TestRegistersAllocatedInFirstSeenOrder(t *testing.T) {
	prog := Program{
		{Mnemonic: "LDR", Args: []Arg{Reg("_b")}},
		{Mnemonic: "LDR", Args: []Arg{Reg("_a")}},
		{Mnemonic: "LDR", Args: []Arg{Reg("_b")}},
	}
	code, numRegs, err := Assemble(prog)
	require.NoError(t, err)
	require.Equal(t, 2, numRegs)
	// LDR=14, then register index byte.
	require.Equal(t, []byte{byte(vm.OpLDR), 0, byte(vm.OpLDR), 1, byte(vm.OpLDR), 0}, code)
}

func TestUnknownMnemonicFails(t *testing.T) {
	_, _, err := Assemble(Program{{Mnemonic: "NOPE"}})
	require.Error(t, err)
}

func TestWrongOperandCountFails(t *testing.T) {
	_, _, err := Assemble(Program{{Mnemonic: "ADD"}})
	require.Error(t, err)
}

func TestRegisterOperandMustBeRegister(t *testing.T) {
	_, _, err := Assemble(Program{{Mnemonic: "LDR", Args: []Arg{Imm(0)}}})
	require.Error(t, err)
}

func TestStackPosOperandCannotBeRegister(t *testing.T) {
	_, _, err := Assemble(Program{{Mnemonic: "ADD", Args: []Arg{Reg("_x")}}})
	require.Error(t, err)
}

func TestStackPosMustFitOneByte(t *testing.T) {
	_, _, err := Assemble(Program{{Mnemonic: "ADD", Args: []Arg{Imm(256)}}})
	require.Error(t, err)
}

// Assembling test_joins's label-union fragment reproduces the exact opcode
// layout spec.md's opcode table assigns.
func TestAssembleLabelUnionFragment(t *testing.T) {
	prog := Program{
		{Mnemonic: "LDL", Args: []Arg{Imm(1)}},
		{Mnemonic: "LDL", Args: []Arg{Imm(2)}},
		{Mnemonic: "LDL", Args: []Arg{Imm(3)}},
		{Mnemonic: "LUNION", Args: []Arg{Imm(1)}},
		{Mnemonic: "LUNION", Args: []Arg{Imm(2)}},
		{Mnemonic: "STL", Args: []Arg{Imm(10)}},
	}
	code, numRegs, err := Assemble(prog)
	require.NoError(t, err)
	require.Equal(t, 0, numRegs)
	require.Equal(t, byte(vm.OpLDL), code[0])
	require.Equal(t, byte(vm.OpLUNION), code[3*17])
	require.Len(t, code, 3*17+2*2+17)
}

func TestTooManyRegistersFails(t *testing.T) {
	var prog Program
	for i := 0; i < vm.MaxRegisters+1; i++ {
		prog = append(prog, Instruction{Mnemonic: "LDR", Args: []Arg{Reg(fmt.Sprintf("_r%d", i))}})
	}
	_, _, err := Assemble(prog)
	require.Error(t, err)
}
