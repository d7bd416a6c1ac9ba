// Copyright 2024 The VIL Authors
// This file is part of VIL.
//
// VIL is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package assembler turns a linear list of mnemonic instructions into VIL
// bytecode. It is grounded directly on the original abacus! proc-macro
// (original_source/proc-macros/abacus-macros): the same per-mnemonic
// argument-type table, the same register-name-by-first-use allocation
// scheme, and the same validation rules — reimplemented as an ordinary
// function instead of a compile-time macro, since Go has no token-level
// macro system. A "Constant" argument in the Rust macro is just a named
// Go constant the caller resolves before building the Instruction list;
// there is no separate representation for it here.
package assembler

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/vectorlang/vil/vil/bits128"
	"github.com/vectorlang/vil/vil/vm"
)

// ArgKind classifies what an instruction operand means, independent of its
// wire width — the same StackPos/Size/RegisterId distinction the original
// macro's ArgType enum draws, needed because LDR's register index and LDD's
// stack position are both one wire byte but must never be confused.
type ArgKind uint8

const (
	ArgRegisterId ArgKind = iota
	ArgAmount
	ArgStackPos
	ArgStorageId
	ArgLabel
	ArgSize
)

// argTypes mirrors the original abacus! macro's ARG_TYPES table exactly.
var argTypes = map[string][]ArgKind{
	"LDL":  {ArgStorageId},
	"LDV":  {ArgStorageId},
	"LDD":  {ArgStackPos},
	"LDR":  {ArgRegisterId},
	"LDM":  {ArgRegisterId},
	"STL":  {ArgStorageId},
	"STV":  {ArgStorageId},
	"STR":  {ArgRegisterId},

	"PKV":   {ArgSize},
	"PKL":   {ArgSize},
	"UNPK":  {},
	"VPUSH": {ArgAmount},
	"VPOP":  {},
	"T":     {ArgSize},

	"LUNION": {ArgStackPos},
	"LPUSH":  {ArgLabel},
	"LPOP":   {},
	"JUPD":   {ArgStackPos, ArgStackPos, ArgStackPos},
	"JADD":   {ArgStackPos, ArgStackPos, ArgStackPos},
	"JFLT":   {ArgStackPos, ArgStackPos},

	"ADD":  {ArgStackPos},
	"SUB":  {ArgStackPos},
	"SSB":  {ArgStackPos},
	"MUL":  {ArgStackPos},
	"DIV":  {ArgStackPos},
	"SQRT": {},

	"MIN": {ArgStackPos},
	"MAX": {ArgStackPos},

	"VSUM": {},
	"VMIN": {},
	"VMAX": {},

	"IMMS":  {ArgAmount},
	"IMML":  {ArgLabel},
	"ZEROS": {ArgStackPos},
	"ONES":  {ArgStackPos},

	"POPN": {ArgSize},
	"SWAP": {ArgStackPos},
	"B":    {ArgStorageId, ArgSize, ArgSize, ArgSize},
	"FOLD": {ArgStorageId, ArgSize, ArgSize, ArgSize},
}

// Arg is one instruction operand: either a named register (resolved to a
// register index in first-seen order across the whole program) or an
// immediate value.
type Arg struct {
	register string
	isReg    bool
	value    uint256.Int
}

// Reg builds a RegisterId operand; name is any `_`-prefixed identifier the
// caller likes (matching the original macro's `_name` convention, though
// Assemble does not itself enforce the leading underscore).
func Reg(name string) Arg { return Arg{register: name, isReg: true} }

// Imm builds an immediate operand from a small integer — valid for
// StackPos/Size (must fit one byte) and as a convenience for StorageId/
// Label/Amount values that happen to fit a uint64.
func Imm(v uint64) Arg { return Arg{value: *uint256.NewInt(v)} }

// ImmWide builds an immediate operand from a full 128-bit value — for
// StorageId/Label/Amount operands that don't fit in a uint64.
func ImmWide(v uint256.Int) Arg { return Arg{value: v} }

// Instruction is one assembly line: a mnemonic plus its operands, in
// declaration order.
type Instruction struct {
	Mnemonic string
	Args     []Arg
}

// Program is a linear instruction list, the assembler's whole input.
type Program []Instruction

// Assemble encodes prog into VIL bytecode. It returns the number of
// distinct registers referenced (for the caller to pass as Execute's
// numRegisters) alongside the bytecode. Register names are assigned
// indices in first-seen order, starting at 0.
//
// Assemble enforces the same operand-kind rules as the original abacus!
// macro: a RegisterId operand must be Reg(...); every other operand kind
// must be Imm/ImmWide and must fit its wire width (one byte for
// StackPos/Size, 128 bits for StorageId/Amount/Label). It also enforces
// the register-count clamp from spec.md §9 (at most vm.MaxRegisters
// distinct registers per program).
func Assemble(prog Program) (code []byte, numRegisters int, err error) {
	regIndex := make(map[string]int)

	for i, instr := range prog {
		name := strings.ToUpper(instr.Mnemonic)
		kinds, ok := argTypes[name]
		if !ok {
			return nil, 0, fmt.Errorf("assembler: instruction %d: unknown mnemonic %q", i, instr.Mnemonic)
		}
		if len(instr.Args) != len(kinds) {
			return nil, 0, fmt.Errorf("assembler: instruction %d (%s): expected %d operands, got %d", i, name, len(kinds), len(instr.Args))
		}
		opcode, ok := vm.LookupMnemonic(name)
		if !ok {
			return nil, 0, fmt.Errorf("assembler: instruction %d: mnemonic %q has no opcode mapping", i, name)
		}
		code = append(code, byte(opcode))

		for j, a := range instr.Args {
			kind := kinds[j]

			if kind == ArgRegisterId {
				if !a.isReg {
					return nil, 0, fmt.Errorf("assembler: instruction %d (%s): operand %d must be a register", i, name, j+1)
				}
				idx, seen := regIndex[a.register]
				if !seen {
					idx = len(regIndex)
					if idx >= vm.MaxRegisters {
						return nil, 0, fmt.Errorf("assembler: instruction %d (%s): program uses more than %d distinct registers", i, name, vm.MaxRegisters)
					}
					regIndex[a.register] = idx
				}
				code = append(code, byte(idx))
				continue
			}

			if a.isReg {
				return nil, 0, fmt.Errorf("assembler: instruction %d (%s): operand %d cannot be a register", i, name, j+1)
			}

			switch kind {
			case ArgStackPos, ArgSize:
				if !a.value.IsUint64() || a.value.Uint64() > 0xFF {
					return nil, 0, fmt.Errorf("assembler: instruction %d (%s): operand %d must fit in one byte", i, name, j+1)
				}
				code = append(code, byte(a.value.Uint64()))
			case ArgStorageId, ArgAmount, ArgLabel:
				v := a.value
				if !bits128.Fits(&v) {
					return nil, 0, fmt.Errorf("assembler: instruction %d (%s): operand %d exceeds 128 bits", i, name, j+1)
				}
				code = append(code, bits128.Encode(&v)...)
			}
		}
	}

	return code, len(regIndex), nil
}
