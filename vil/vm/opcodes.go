// Copyright 2024 The VIL Authors
// This file is part of VIL.
//
// VIL is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "fmt"

// Opcode is an 8-bit VIL instruction code. Unlike the teacher's 4-byte
// fixed-width register VM, VIL instructions are variable length: an opcode
// byte followed by its operands, each either a single byte (stack
// position, count, or register index) or a 16-byte little-endian word
// (storage id, amount, or label).
type Opcode byte

const (
	OpLDL    Opcode = 10
	OpLDV    Opcode = 11
	OpLDD    Opcode = 13
	OpLDR    Opcode = 14
	OpLDM    Opcode = 15
	OpSTL    Opcode = 20
	OpSTV    Opcode = 21
	OpSTR    Opcode = 23
	OpPKV    Opcode = 30
	OpPKL    Opcode = 31
	OpUNPK   Opcode = 32
	OpVPUSH  Opcode = 33
	OpVPOP   Opcode = 34
	OpT      Opcode = 35
	OpLUNION Opcode = 40
	OpLPUSH  Opcode = 41
	OpLPOP   Opcode = 42
	OpJUPD   Opcode = 43
	OpJADD   Opcode = 44
	OpJFLT   Opcode = 45
	OpADD    Opcode = 50
	OpSUB    Opcode = 51
	OpSSB    Opcode = 52
	OpMUL    Opcode = 53
	OpDIV    Opcode = 54
	OpSQRT   Opcode = 55
	OpMIN    Opcode = 60
	OpMAX    Opcode = 61
	OpVSUM   Opcode = 70
	OpVMIN   Opcode = 71
	OpVMAX   Opcode = 72
	OpIMMS   Opcode = 80
	OpIMML   Opcode = 81
	OpZEROS  Opcode = 82
	OpONES   Opcode = 83
	OpPOPN   Opcode = 90
	OpSWAP   Opcode = 91
	OpB      Opcode = 92
	OpFOLD   Opcode = 93
)

// OperandWidth is the on-wire size of a single instruction operand.
type OperandWidth uint8

const (
	// Width1 is a 1-byte operand: a stack position, element count, or
	// register index.
	Width1 OperandWidth = 1
	// Width16 is a 16-byte little-endian operand: a storage id, Amount, or
	// Label.
	Width16 OperandWidth = 16
)

// OpInfo describes one opcode's mnemonic and its operand layout, in
// declaration order.
type OpInfo struct {
	Name     string
	Operands []OperandWidth
}

// opcodeTable is the single source of truth for the interpreter's
// fetch/decode step and the assembler's mnemonic-to-opcode lookup; the
// assembler validates operand kinds against its own argTypes table.
var opcodeTable = map[Opcode]OpInfo{
	OpLDL:    {"LDL", []OperandWidth{Width16}},
	OpLDV:    {"LDV", []OperandWidth{Width16}},
	OpLDD:    {"LDD", []OperandWidth{Width1}},
	OpLDR:    {"LDR", []OperandWidth{Width1}},
	OpLDM:    {"LDM", []OperandWidth{Width1}},
	OpSTL:    {"STL", []OperandWidth{Width16}},
	OpSTV:    {"STV", []OperandWidth{Width16}},
	OpSTR:    {"STR", []OperandWidth{Width1}},
	OpPKV:    {"PKV", []OperandWidth{Width1}},
	OpPKL:    {"PKL", []OperandWidth{Width1}},
	OpUNPK:   {"UNPK", nil},
	OpVPUSH:  {"VPUSH", []OperandWidth{Width16}},
	OpVPOP:   {"VPOP", nil},
	OpT:      {"T", []OperandWidth{Width1}},
	OpLUNION: {"LUNION", []OperandWidth{Width1}},
	OpLPUSH:  {"LPUSH", []OperandWidth{Width16}},
	OpLPOP:   {"LPOP", nil},
	OpJUPD:   {"JUPD", []OperandWidth{Width1, Width1, Width1}},
	OpJADD:   {"JADD", []OperandWidth{Width1, Width1, Width1}},
	OpJFLT:   {"JFLT", []OperandWidth{Width1, Width1}},
	OpADD:    {"ADD", []OperandWidth{Width1}},
	OpSUB:    {"SUB", []OperandWidth{Width1}},
	OpSSB:    {"SSB", []OperandWidth{Width1}},
	OpMUL:    {"MUL", []OperandWidth{Width1}},
	OpDIV:    {"DIV", []OperandWidth{Width1}},
	OpSQRT:   {"SQRT", nil},
	OpMIN:    {"MIN", []OperandWidth{Width1}},
	OpMAX:    {"MAX", []OperandWidth{Width1}},
	OpVSUM:   {"VSUM", nil},
	OpVMIN:   {"VMIN", nil},
	OpVMAX:   {"VMAX", nil},
	OpIMMS:   {"IMMS", []OperandWidth{Width16}},
	OpIMML:   {"IMML", []OperandWidth{Width16}},
	OpZEROS:  {"ZEROS", []OperandWidth{Width1}},
	OpONES:   {"ONES", []OperandWidth{Width1}},
	OpPOPN:   {"POPN", []OperandWidth{Width1}},
	OpSWAP:   {"SWAP", []OperandWidth{Width1}},
	OpB:      {"B", []OperandWidth{Width16, Width1, Width1, Width1}},
	OpFOLD:   {"FOLD", []OperandWidth{Width16, Width1, Width1, Width1}},
}

// mnemonicTable is the reverse index used by the assembler.
var mnemonicTable = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeTable))
	for op, info := range opcodeTable {
		m[info.Name] = op
	}
	return m
}()

// Lookup returns the mnemonic metadata for op, or (OpInfo{}, false) if op is
// not a known opcode byte.
func Lookup(op Opcode) (OpInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

// LookupMnemonic resolves a mnemonic name (e.g. "ADD") to its Opcode.
func LookupMnemonic(name string) (Opcode, bool) {
	op, ok := mnemonicTable[name]
	return op, ok
}

// instrLen returns the total encoded length (opcode byte + operands) for
// op, or an error if op is not a known opcode.
func instrLen(op Opcode) (int, error) {
	info, ok := Lookup(op)
	if !ok {
		return 0, fmt.Errorf("vm: unknown opcode byte 0x%02x", byte(op))
	}
	n := 1
	for _, w := range info.Operands {
		n += int(w)
	}
	return n, nil
}

func (o Opcode) String() string {
	if info, ok := Lookup(o); ok {
		return info.Name
	}
	return fmt.Sprintf("Opcode(0x%02x)", byte(o))
}
