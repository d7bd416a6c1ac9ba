// Copyright 2024 The VIL Authors
// This file is part of VIL.
//
// VIL is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vlog is the debug-only stack dumper wired into VectorVM (spec.md
// §7: "Debug builds may log the stack on failure"). It writes a colorized,
// caller-annotated report of the failing program counter, error kind, and
// stack/register depths — the same terminal-format idiom as the
// teacher's go-ethereum-style log15 TerminalFormat handler, built from the
// same dependency pair (go-stack/stack for the call site, fatih/color for
// the ANSI palette) over a colorable writer.
package vlog

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	colorable "github.com/mattn/go-colorable"
	"github.com/vectorlang/vil/vil/vm"
)

// Logger writes colorized stack dumps to an underlying writer and
// satisfies vm.Logger. The zero value is not usable; construct with New.
type Logger struct {
	mu  sync.Mutex
	out io.Writer

	kindColor *color.Color
	pcColor   *color.Color
	dimColor  *color.Color
}

// New returns a Logger writing to out. A nil out writes to a colorable
// stdout handle, preserving ANSI color on Windows consoles the way the
// teacher's terminal log handler does.
func New(out io.Writer) *Logger {
	if out == nil {
		out = colorable.NewColorableStdout()
	}
	return &Logger{
		out:       out,
		kindColor: color.New(color.FgRed, color.Bold),
		pcColor:   color.New(color.FgYellow),
		dimColor:  color.New(color.FgHiBlack),
	}
}

// DumpFailure renders a one-shot failure report: the call site (via
// go-stack/stack, skipping this frame), the error, and the stack/register
// depths at the moment of failure.
func (l *Logger) DumpFailure(err *vm.ProgramError, stk *vm.Stack, regs *vm.Registers) {
	l.mu.Lock()
	defer l.mu.Unlock()

	call := stack.Caller(2)
	fmt.Fprintf(l.out, "%s %s\n", l.kindColor.Sprint("vil: execution failed"), l.pcColor.Sprintf("%+v", call))
	fmt.Fprintf(l.out, "  %s\n", err)
	fmt.Fprintf(l.out, "  %s\n", l.dimColor.Sprintf("stack depth=%d registers=%d", stk.Depth(), regs.Len()))
}
