// Copyright 2024 The VIL Authors
// This file is part of VIL.
//
// VIL is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the exhaustive set of ways a VIL program can fail.
type ErrorKind uint8

const (
	// StackUnderflow: an opcode read past the bottom of the stack.
	StackUnderflow ErrorKind = iota
	// StackOverflow: no opcode raises this kind; a stack-relative reference
	// past the bottom of the stack reports StackUnderflow.
	StackOverflow
	// InvalidInstruction: the fetched byte is not a known opcode.
	InvalidInstruction
	// InvalidOperand: a tag mismatch or illegal operand-shape combination.
	InvalidOperand
	// NotFound: a VectorIO lookup missed.
	NotFound
	// OutOfRange: a register index is out of bounds, or a sub-container pop
	// is empty.
	OutOfRange
	// NotAligned: a Vector length mismatch in an element-wise operation.
	NotAligned
	// MathUnderflow: a checked subtraction went below zero, or a label
	// lookup failed during a sorted scan (spec.md §9's documented reuse of
	// this kind; see Open Question 1 in SPEC_FULL.md for the rationale of
	// keeping it rather than adding a distinct KeyNotFound kind).
	MathUnderflow
	// MathOverflow: a checked add/mul/div/sqrt overflowed.
	MathOverflow
	// SubroutineError: a nested B or FOLD call failed; the wrapped
	// *ProgramError describes the child's failure.
	SubroutineError
)

func (k ErrorKind) String() string {
	switch k {
	case StackUnderflow:
		return "StackUnderflow"
	case StackOverflow:
		return "StackOverflow"
	case InvalidInstruction:
		return "InvalidInstruction"
	case InvalidOperand:
		return "InvalidOperand"
	case NotFound:
		return "NotFound"
	case OutOfRange:
		return "OutOfRange"
	case NotAligned:
		return "NotAligned"
	case MathUnderflow:
		return "MathUnderflow"
	case MathOverflow:
		return "MathOverflow"
	case SubroutineError:
		return "SubroutineError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// ErrKeyNotFound is wrapped inside a MathUnderflow ProgramError when a
// JFLT/JUPD/JADD sorted scan fails to find a required label (spec.md's
// documented ambiguity; see Open Question 1 in SPEC_FULL.md).
var ErrKeyNotFound = errors.New("vm: label not found during sorted scan")

// ProgramError is the single error type execute returns. It carries the
// error kind, the program counter at the moment of failure (past the
// faulting instruction's operands; for an unknown opcode byte, past that
// byte), and the stack depth at that moment.
// A SubroutineError wraps the child's own *ProgramError, forming a chain
// walkable with errors.Is/errors.As via Unwrap.
type ProgramError struct {
	Kind          ErrorKind
	ProgramCount  uint32
	StackDepth    int
	Child         *ProgramError // non-nil only when Kind == SubroutineError
	wrapped       error         // optional underlying cause (e.g. ErrKeyNotFound)
}

func (e *ProgramError) Error() string {
	if e.Kind == SubroutineError && e.Child != nil {
		return fmt.Sprintf("vm: pc=%d depth=%d: subroutine failed: %v", e.ProgramCount, e.StackDepth, e.Child)
	}
	if e.wrapped != nil {
		return fmt.Sprintf("vm: pc=%d depth=%d: %s: %v", e.ProgramCount, e.StackDepth, e.Kind, e.wrapped)
	}
	return fmt.Sprintf("vm: pc=%d depth=%d: %s", e.ProgramCount, e.StackDepth, e.Kind)
}

// Unwrap exposes the wrapped cause (a nested *ProgramError for
// SubroutineError, or a sentinel like ErrKeyNotFound / ErrNotFound
// otherwise) for errors.Is / errors.As.
func (e *ProgramError) Unwrap() error {
	if e.Kind == SubroutineError && e.Child != nil {
		return e.Child
	}
	return e.wrapped
}

func newErr(kind ErrorKind, pc uint32, depth int) *ProgramError {
	return &ProgramError{Kind: kind, ProgramCount: pc, StackDepth: depth}
}

func newErrWrap(kind ErrorKind, pc uint32, depth int, cause error) *ProgramError {
	return &ProgramError{Kind: kind, ProgramCount: pc, StackDepth: depth, wrapped: cause}
}

func newSubroutineErr(pc uint32, depth int, child *ProgramError) *ProgramError {
	return &ProgramError{Kind: SubroutineError, ProgramCount: pc, StackDepth: depth, Child: child}
}
