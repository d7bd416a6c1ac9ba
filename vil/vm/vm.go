// Copyright 2024 The VIL Authors
// This file is part of VIL.
//
// VIL is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vm implements VectorVM, the VIL stack machine: a program counter
// loop, per-opcode semantics, nested sub-routine invocation (B), and
// sequential iteration (FOLD), bound to an external VectorIO blob store.
//
// The dispatch loop mirrors the teacher's own register VM (fetch a decoded
// instruction, deduct no gas here — VIL has no metering — execute exactly
// one opcode, advance the program counter) but VIL instructions are
// variable length, so fetch/decode first resolves the operand layout from
// the opcode table (opcodes.go) before slicing the operand bytes.
package vm

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/vectorlang/vil/vil/amount"
	"github.com/vectorlang/vil/vil/bits128"
	"github.com/vectorlang/vil/vil/container"
	"github.com/vectorlang/vil/vil/storage"
)

// Internal sentinel causes used by the element-wise arithmetic helper to
// report *why* an operation failed; the caller maps these onto the right
// ErrorKind (and, for math failures, the right kind — MathOverflow vs
// MathUnderflow — since the same helper serves both ADD/MUL/DIV and SUB).
var (
	errShapeMismatch = errors.New("vm: invalid operand shape")
	errLenMismatch   = errors.New("vm: vector length mismatch")
	errMathFailed    = errors.New("vm: checked numeric operation failed")
)

// Logger receives a stack/register dump when execution fails and a logger
// was configured; see internal/vlog for the production implementation.
type Logger interface {
	DumpFailure(err *ProgramError, stack *Stack, regs *Registers)
}

// VectorVM is the VIL interpreter, bound to a single VectorIO for its
// lifetime.
type VectorVM struct {
	io     storage.VectorIO
	logger Logger
}

// Option configures a VectorVM at construction time.
type Option func(*VectorVM)

// WithLogger attaches a debug logger that receives a stack dump whenever
// execute fails (spec.md §7: "Debug builds may log the stack on failure").
func WithLogger(l Logger) Option {
	return func(vm *VectorVM) { vm.logger = l }
}

// New creates a VectorVM bound to io.
func New(io storage.VectorIO, opts ...Option) *VectorVM {
	vm := &VectorVM{io: io}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Execute runs code to completion against a fresh stack and a register file
// of size numRegisters. It returns nil on success (pc reached len(code)) or
// a *ProgramError; a numRegisters outside [0, MaxRegisters] is rejected
// with a plain error before any instruction runs.
func (vm *VectorVM) Execute(code []byte, numRegisters int) error {
	return vm.ExecuteWithStack(code, NewStack(), numRegisters)
}

// ExecuteWithStack runs code to completion against a caller-supplied stack
// (useful for tests that want to pre-seed operands) and a fresh register
// file of size numRegisters.
func (vm *VectorVM) ExecuteWithStack(code []byte, stack *Stack, numRegisters int) error {
	regs, err := NewRegisters(numRegisters)
	if err != nil {
		return err
	}
	if perr := vm.executeWithStack(code, stack, regs); perr != nil {
		if vm.logger != nil {
			vm.logger.DumpFailure(perr, stack, regs)
		}
		return perr
	}
	return nil
}

// executeWithStack is the program-counter loop shared by top-level
// execution and every nested B/FOLD child invocation.
func (vm *VectorVM) executeWithStack(code []byte, stack *Stack, regs *Registers) *ProgramError {
	pc := uint32(0)
	for int(pc) < len(code) {
		op := Opcode(code[pc])
		length, lenErr := instrLen(op)
		if lenErr != nil {
			return newErr(InvalidInstruction, pc+1, stack.Depth())
		}
		if int(pc)+length > len(code) {
			return newErr(InvalidInstruction, uint32(len(code)), stack.Depth())
		}
		info, _ := Lookup(op)
		operands := decodeOperands(info, code[pc+1:pc+uint32(length)])
		pcAfter := pc + uint32(length)

		if perr := vm.dispatch(op, operands, stack, regs, pcAfter); perr != nil {
			return perr
		}
		pc = pcAfter
	}
	return nil
}

// decodedOperand is either a uint8 (stack position / count / register
// index) or a uint256.Int (storage id / amount / label), in declaration
// order.
type decodedOperand struct {
	u8   uint8
	u128 uint256.Int
}

func decodeOperands(info OpInfo, raw []byte) []decodedOperand {
	out := make([]decodedOperand, len(info.Operands))
	off := 0
	for i, w := range info.Operands {
		switch w {
		case Width1:
			out[i] = decodedOperand{u8: raw[off]}
			off++
		case Width16:
			v, _ := bits128.Decode(raw[off : off+16])
			out[i] = decodedOperand{u128: v}
			off += 16
		}
	}
	return out
}

// dispatch executes exactly one decoded instruction.
func (vm *VectorVM) dispatch(op Opcode, ops []decodedOperand, stack *Stack, regs *Registers, pc uint32) *ProgramError {
	depth := func() int { return stack.Depth() }

	switch op {

	// ---- Storage load/store ------------------------------------------------

	case OpLDL:
		labels, err := vm.io.LoadLabels(ops[0].u128)
		if err != nil {
			return newErrWrap(NotFound, pc, depth(), err)
		}
		stack.Push(LabelsOperand(labels))

	case OpLDV:
		v, err := vm.io.LoadVector(ops[0].u128)
		if err != nil {
			return newErrWrap(NotFound, pc, depth(), err)
		}
		stack.Push(VectorOperand(v))

	case OpSTL:
		top, ok := stack.Pop()
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindLabels {
			return newErr(InvalidOperand, pc, depth())
		}
		if err := vm.io.StoreLabels(ops[0].u128, top.Labels); err != nil {
			return newErrWrap(NotFound, pc, depth(), err)
		}

	case OpSTV:
		top, ok := stack.Pop()
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindVector {
			return newErr(InvalidOperand, pc, depth())
		}
		if err := vm.io.StoreVector(ops[0].u128, top.Vector); err != nil {
			return newErrWrap(NotFound, pc, depth(), err)
		}

	// ---- Stack/register primitives -----------------------------------------

	case OpLDD:
		pos := int(ops[0].u8)
		o, ok := stack.At(pos)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		stack.Push(o.Clone())

	case OpLDR:
		idx := int(ops[0].u8)
		o, ok := regs.Get(idx)
		if !ok {
			return newErr(OutOfRange, pc, depth())
		}
		stack.Push(o.Clone())

	case OpLDM:
		idx := int(ops[0].u8)
		o, ok := regs.Take(idx)
		if !ok {
			return newErr(OutOfRange, pc, depth())
		}
		stack.Push(o)

	case OpSTR:
		idx := int(ops[0].u8)
		top, ok := stack.Pop()
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if !regs.Set(idx, top) {
			return newErr(OutOfRange, pc, depth())
		}

	case OpSWAP:
		pos := int(ops[0].u8)
		top, ok := stack.At(0)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		other, ok := stack.At(pos)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		stack.Set(0, other)
		stack.Set(pos, top)

	case OpPOPN:
		n := int(ops[0].u8)
		if _, ok := stack.PopN(n); !ok {
			return newErr(StackUnderflow, pc, depth())
		}

	// ---- Packing / unpacking / transpose ------------------------------------

	case OpPKV:
		n := int(ops[0].u8)
		group, ok := stack.PopN(n)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		elems := make([]amount.Amount, n)
		for i, o := range group {
			if o.Kind != KindScalar {
				return newErr(InvalidOperand, pc, depth())
			}
			elems[i] = o.Scalar
		}
		stack.Push(VectorOperand(container.NewVector(elems...)))

	case OpPKL:
		n := int(ops[0].u8)
		group, ok := stack.PopN(n)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		ids := make([]uint256.Int, n)
		for i, o := range group {
			if o.Kind != KindLabel {
				return newErr(InvalidOperand, pc, depth())
			}
			ids[i] = o.Label
		}
		stack.Push(LabelsOperand(container.NewLabels(ids...)))

	case OpUNPK:
		top, ok := stack.Pop()
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		switch top.Kind {
		case KindVector:
			for _, e := range top.Vector.Elements() {
				stack.Push(ScalarOperand(e))
			}
		case KindLabels:
			for _, e := range top.Labels.Elements() {
				stack.Push(LabelOperand(e))
			}
		default:
			return newErr(InvalidOperand, pc, depth())
		}

	case OpT:
		n := int(ops[0].u8)
		if n == 0 {
			return newErr(InvalidOperand, pc, depth())
		}
		if n == 1 {
			top, ok := stack.Pop()
			if !ok {
				return newErr(StackUnderflow, pc, depth())
			}
			if top.Kind != KindVector {
				return newErr(InvalidOperand, pc, depth())
			}
			for _, e := range top.Vector.Elements() {
				stack.Push(ScalarOperand(e))
			}
			break
		}
		rows, ok := stack.PopN(n)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		m := -1
		for _, r := range rows {
			if r.Kind != KindVector {
				return newErr(InvalidOperand, pc, depth())
			}
			if m == -1 {
				m = r.Vector.Len()
			} else if r.Vector.Len() != m {
				return newErr(NotAligned, pc, depth())
			}
		}
		for col := 0; col < m; col++ {
			colVec := container.Zeros(n)
			for row := 0; row < n; row++ {
				e, _ := rows[row].Vector.At(col)
				colVec.Set(row, e)
			}
			stack.Push(VectorOperand(colVec))
		}

	// ---- Immediates and zero/one fills --------------------------------------

	case OpIMMS:
		a, ok := amount.FromRaw(ops[0].u128)
		if !ok {
			return newErr(MathOverflow, pc, depth())
		}
		stack.Push(ScalarOperand(a))

	case OpIMML:
		stack.Push(LabelOperand(ops[0].u128))

	case OpZEROS:
		pos := int(ops[0].u8)
		target, ok := stack.At(pos)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		n, ok := containerLen(target)
		if !ok {
			return newErr(InvalidOperand, pc, depth())
		}
		stack.Push(VectorOperand(container.Zeros(n)))

	case OpONES:
		pos := int(ops[0].u8)
		target, ok := stack.At(pos)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		n, ok := containerLen(target)
		if !ok {
			return newErr(InvalidOperand, pc, depth())
		}
		stack.Push(VectorOperand(container.Ones(n)))

	// ---- Vector push/pop element ---------------------------------------------

	case OpVPUSH:
		top, ok := stack.At(0)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindVector {
			return newErr(InvalidOperand, pc, depth())
		}
		x, ok := amount.FromRaw(ops[0].u128)
		if !ok {
			return newErr(MathOverflow, pc, depth())
		}
		top.Vector.Push(x)
		stack.Set(0, top)

	case OpVPOP:
		top, ok := stack.At(0)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindVector {
			return newErr(InvalidOperand, pc, depth())
		}
		val, ok := top.Vector.Pop()
		if !ok {
			return newErr(OutOfRange, pc, depth())
		}
		stack.Set(0, top)
		stack.Push(ScalarOperand(val))

	case OpLPUSH:
		top, ok := stack.At(0)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindLabels {
			return newErr(InvalidOperand, pc, depth())
		}
		top.Labels.Push(ops[0].u128)
		stack.Set(0, top)

	case OpLPOP:
		top, ok := stack.At(0)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindLabels {
			return newErr(InvalidOperand, pc, depth())
		}
		val, ok := top.Labels.Pop()
		if !ok {
			return newErr(OutOfRange, pc, depth())
		}
		stack.Set(0, top)
		stack.Push(LabelOperand(val))

	// ---- Arithmetic ----------------------------------------------------------

	case OpADD:
		return vm.binaryChecked(stack, int(ops[0].u8), pc, amount.Amount.CheckedAdd, MathOverflow)
	case OpSUB:
		return vm.binaryChecked(stack, int(ops[0].u8), pc, amount.Amount.CheckedSub, MathUnderflow)
	case OpMUL:
		return vm.binaryChecked(stack, int(ops[0].u8), pc, amount.Amount.CheckedMul, MathOverflow)
	case OpDIV:
		return vm.binaryChecked(stack, int(ops[0].u8), pc, amount.Amount.CheckedDiv, MathOverflow)
	case OpSSB:
		return vm.binaryTotal(stack, int(ops[0].u8), pc, func(a, b amount.Amount) amount.Amount { return a.SaturatingSub(b) })
	case OpMIN:
		return vm.binaryTotal(stack, int(ops[0].u8), pc, amount.Min)
	case OpMAX:
		return vm.binaryTotal(stack, int(ops[0].u8), pc, amount.Max)

	case OpSQRT:
		top, ok := stack.At(0)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		switch top.Kind {
		case KindScalar:
			r, ok := top.Scalar.CheckedSqrt()
			if !ok {
				return newErr(MathOverflow, pc, depth())
			}
			stack.Set(0, ScalarOperand(r))
		case KindVector:
			out := top.Vector.Clone()
			for i := 0; i < out.Len(); i++ {
				e, _ := out.At(i)
				r, ok := e.CheckedSqrt()
				if !ok {
					return newErr(MathOverflow, pc, depth())
				}
				out.Set(i, r)
			}
			stack.Set(0, VectorOperand(out))
		default:
			return newErr(InvalidOperand, pc, depth())
		}

	case OpVSUM:
		top, ok := stack.Pop()
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindVector {
			return newErr(InvalidOperand, pc, depth())
		}
		acc := amount.ZERO
		for _, e := range top.Vector.Elements() {
			var ok bool
			acc, ok = acc.CheckedAdd(e)
			if !ok {
				return newErr(MathOverflow, pc, depth())
			}
		}
		stack.Push(ScalarOperand(acc))

	case OpVMIN:
		top, ok := stack.Pop()
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindVector {
			return newErr(InvalidOperand, pc, depth())
		}
		acc := amount.MAX
		for _, e := range top.Vector.Elements() {
			acc = amount.Min(acc, e)
		}
		stack.Push(ScalarOperand(acc))

	case OpVMAX:
		top, ok := stack.Pop()
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if top.Kind != KindVector {
			return newErr(InvalidOperand, pc, depth())
		}
		acc := amount.ZERO
		for _, e := range top.Vector.Elements() {
			acc = amount.Max(acc, e)
		}
		stack.Push(ScalarOperand(acc))

	// ---- Label-aligned operations --------------------------------------------

	case OpLUNION:
		pos := int(ops[0].u8)
		a, ok := stack.At(0)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		b, ok := stack.At(pos)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if a.Kind != KindLabels || b.Kind != KindLabels {
			return newErr(InvalidOperand, pc, depth())
		}
		stack.Set(0, LabelsOperand(a.Labels.Union(b.Labels)))

	case OpJFLT:
		labA, labB := int(ops[0].u8), int(ops[1].u8)
		a, ok := stack.At(0)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		laOp, ok := stack.At(labA)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		lbOp, ok := stack.At(labB)
		if !ok {
			return newErr(StackUnderflow, pc, depth())
		}
		if a.Kind != KindVector || laOp.Kind != KindLabels || lbOp.Kind != KindLabels {
			return newErr(InvalidOperand, pc, depth())
		}
		if a.Vector.Len() != laOp.Labels.Len() {
			return newErr(NotAligned, pc, depth())
		}
		result, perr := jflt(a.Vector, laOp.Labels, lbOp.Labels, pc, depth())
		if perr != nil {
			return perr
		}
		stack.Set(0, VectorOperand(result))

	case OpJUPD:
		return vm.scatter(stack, ops, pc, false)

	case OpJADD:
		return vm.scatter(stack, ops, pc, true)

	default:
		return newErr(InvalidInstruction, pc, depth())

	// ---- Control flow ---------------------------------------------------------

	case OpB:
		return vm.callSub(stack, ops, pc)

	case OpFOLD:
		return vm.fold(stack, ops, pc)
	}

	return nil
}

// containerLen returns the length of o if it is a Vector or Labels.
func containerLen(o Operand) (int, bool) {
	switch o.Kind {
	case KindVector:
		return o.Vector.Len(), true
	case KindLabels:
		return o.Labels.Len(), true
	default:
		return 0, false
	}
}

// binaryChecked implements ADD/SUB/MUL/DIV: operate on stack[top] using
// stack[top-pos] (pos==0 means square/self), writing the result back to
// stack[top] in place. failKind selects MathOverflow or MathUnderflow when
// the checked scalar op fails.
func (vm *VectorVM) binaryChecked(stack *Stack, pos int, pc uint32, f func(amount.Amount, amount.Amount) (amount.Amount, bool), failKind ErrorKind) *ProgramError {
	depth := stack.Depth()
	top, ok := stack.At(0)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	other := top
	if pos != 0 {
		other, ok = stack.At(pos)
		if !ok {
			return newErr(StackUnderflow, pc, depth)
		}
	}
	result, err := combineChecked(top, other, f)
	if err != nil {
		switch {
		case errors.Is(err, errLenMismatch):
			return newErr(NotAligned, pc, depth)
		case errors.Is(err, errShapeMismatch):
			return newErr(InvalidOperand, pc, depth)
		default:
			return newErr(failKind, pc, depth)
		}
	}
	stack.Set(0, result)
	return nil
}

// binaryTotal implements MIN/MAX/SSB: like binaryChecked but f never fails.
func (vm *VectorVM) binaryTotal(stack *Stack, pos int, pc uint32, f func(amount.Amount, amount.Amount) amount.Amount) *ProgramError {
	return vm.binaryChecked(stack, pos, pc, func(a, b amount.Amount) (amount.Amount, bool) {
		return f(a, b), true
	}, MathOverflow)
}

// combineChecked implements the shape rules shared by every binary
// arithmetic opcode: Vector-Vector (equal length), Vector-Scalar or
// Scalar-Vector (broadcast), Scalar-Scalar. Any other combination
// (Vector-Labels, Label-anything, None-anything) is errShapeMismatch.
func combineChecked(top, other Operand, f func(a, b amount.Amount) (amount.Amount, bool)) (Operand, error) {
	switch {
	case top.Kind == KindScalar && other.Kind == KindScalar:
		r, ok := f(top.Scalar, other.Scalar)
		if !ok {
			return Operand{}, errMathFailed
		}
		return ScalarOperand(r), nil

	case top.Kind == KindVector && other.Kind == KindVector:
		if top.Vector.Len() != other.Vector.Len() {
			return Operand{}, errLenMismatch
		}
		out := container.Zeros(top.Vector.Len())
		for i := 0; i < top.Vector.Len(); i++ {
			a, _ := top.Vector.At(i)
			b, _ := other.Vector.At(i)
			r, ok := f(a, b)
			if !ok {
				return Operand{}, errMathFailed
			}
			out.Set(i, r)
		}
		return VectorOperand(out), nil

	case top.Kind == KindVector && other.Kind == KindScalar:
		out := top.Vector.Clone()
		for i := 0; i < out.Len(); i++ {
			a, _ := out.At(i)
			r, ok := f(a, other.Scalar)
			if !ok {
				return Operand{}, errMathFailed
			}
			out.Set(i, r)
		}
		return VectorOperand(out), nil

	case top.Kind == KindScalar && other.Kind == KindVector:
		out := other.Vector.Clone()
		for i := 0; i < out.Len(); i++ {
			b, _ := out.At(i)
			r, ok := f(top.Scalar, b)
			if !ok {
				return Operand{}, errMathFailed
			}
			out.Set(i, r)
		}
		return VectorOperand(out), nil

	default:
		return Operand{}, errShapeMismatch
	}
}

// jflt rewrites a Vector so its elements correspond to lb by, for each
// label in lb (ascending), selecting the value at the position where that
// label appears in la. Walks lb once and advances a monotonic cursor into
// la, as spec'd (O(n+m), both sides assumed strictly sorted).
func jflt(a container.Vector, la, lb container.Labels, pc uint32, depth int) (container.Vector, *ProgramError) {
	out := container.Zeros(lb.Len())
	cursor := 0
	for k := 0; k < lb.Len(); k++ {
		key, _ := lb.At(k)
		for cursor < la.Len() {
			cand, _ := la.At(cursor)
			if cand.Cmp(&key) >= 0 {
				break
			}
			cursor++
		}
		cand, ok := la.At(cursor)
		if !ok || cand.Cmp(&key) != 0 {
			return container.Vector{}, newErrWrap(MathUnderflow, pc, depth, ErrKeyNotFound)
		}
		val, _ := a.At(cursor)
		out.Set(k, val)
	}
	return out, nil
}

// scatter implements JUPD (add=false) and JADD (add=true): locate A on top,
// B at posB, La at labA, Lb at labB (all positions counted from the same
// top, matching the original VIL test suite's JUPD usage — see DESIGN.md).
// If labA == labB the instruction degenerates to a plain element-wise
// in-place ADD of B onto A.
func (vm *VectorVM) scatter(stack *Stack, ops []decodedOperand, pc uint32, add bool) *ProgramError {
	depth := stack.Depth()
	posB, labA, labB := int(ops[0].u8), int(ops[1].u8), int(ops[2].u8)

	a, ok := stack.At(0)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	b, ok := stack.At(posB)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	if a.Kind != KindVector || b.Kind != KindVector {
		return newErr(InvalidOperand, pc, depth)
	}

	if labA == labB {
		// Degenerate case, same for both JUPD and JADD: spec.md §4.6 defines
		// it as a plain element-wise ADD of B onto A.
		result, err := combineChecked(a, b, amount.Amount.CheckedAdd)
		if err != nil {
			if errors.Is(err, errLenMismatch) {
				return newErr(NotAligned, pc, depth)
			}
			return newErr(MathOverflow, pc, depth)
		}
		stack.Set(0, result)
		return nil
	}

	laOp, ok := stack.At(labA)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	lbOp, ok := stack.At(labB)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	if laOp.Kind != KindLabels || lbOp.Kind != KindLabels {
		return newErr(InvalidOperand, pc, depth)
	}
	la, lb := laOp.Labels, lbOp.Labels
	if a.Vector.Len() != la.Len() || b.Vector.Len() != lb.Len() {
		return newErr(NotAligned, pc, depth)
	}

	out := a.Vector.Clone()
	cursor := 0
	for j := 0; j < lb.Len(); j++ {
		key, _ := lb.At(j)
		for cursor < la.Len() {
			cand, _ := la.At(cursor)
			if cand.Cmp(&key) >= 0 {
				break
			}
			cursor++
		}
		cand, found := la.At(cursor)
		if !found || cand.Cmp(&key) != 0 {
			return newErrWrap(MathUnderflow, pc, depth, ErrKeyNotFound)
		}
		existing, _ := out.At(cursor)
		bVal, _ := b.Vector.At(j)
		var newVal amount.Amount
		if add {
			var ok bool
			newVal, ok = existing.CheckedAdd(bVal)
			if !ok {
				return newErr(MathOverflow, pc, depth)
			}
		} else {
			newVal = bVal
		}
		out.Set(cursor, newVal)
	}
	stack.Set(0, VectorOperand(out))
	return nil
}

// callSub implements B: a fresh child stack seeded with the parent's top N
// operands (moved, order preserved), executed against newly-allocated
// registers; on success the child's top M operands move back to the
// parent.
func (vm *VectorVM) callSub(stack *Stack, ops []decodedOperand, pc uint32) *ProgramError {
	depth := stack.Depth()
	codeID, n, m, r := ops[0].u128, int(ops[1].u8), int(ops[2].u8), int(ops[3].u8)

	moved, ok := stack.PopN(n)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	childStack := NewStack()
	childStack.PushBottom(moved)
	regs, regErr := NewRegisters(r)
	if regErr != nil {
		return newErr(OutOfRange, pc, depth)
	}
	code, ioErr := vm.io.LoadCode(codeID)
	if ioErr != nil {
		return newErrWrap(NotFound, pc, depth, ioErr)
	}
	if childErr := vm.executeWithStack(code, childStack, regs); childErr != nil {
		return newSubroutineErr(pc, depth, childErr)
	}
	out, ok := childStack.PopN(m)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	for _, o := range out {
		stack.Push(o)
	}
	return nil
}

// fold implements FOLD: pop one Vector or Labels S, keep the parent's N
// inputs on top, seed a child stack with those N inputs (moved), then
// execute the sub-routine once per element of S (pushing the element as a
// Scalar or Label before each run), finally moving the child's top M
// operands back to the parent.
func (vm *VectorVM) fold(stack *Stack, ops []decodedOperand, pc uint32) *ProgramError {
	depth := stack.Depth()
	codeID, n, m, r := ops[0].u128, int(ops[1].u8), int(ops[2].u8), int(ops[3].u8)

	s, ok := stack.Pop()
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	if s.Kind != KindVector && s.Kind != KindLabels {
		return newErr(InvalidOperand, pc, depth)
	}

	inputs, ok := stack.PopN(n)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	childStack := NewStack()
	childStack.PushBottom(inputs)
	regs, regErr := NewRegisters(r)
	if regErr != nil {
		return newErr(OutOfRange, pc, depth)
	}
	code, ioErr := vm.io.LoadCode(codeID)
	if ioErr != nil {
		return newErrWrap(NotFound, pc, depth, ioErr)
	}

	switch s.Kind {
	case KindVector:
		for _, e := range s.Vector.Elements() {
			childStack.Push(ScalarOperand(e))
			if childErr := vm.executeWithStack(code, childStack, regs); childErr != nil {
				return newSubroutineErr(pc, depth, childErr)
			}
		}
	case KindLabels:
		for _, e := range s.Labels.Elements() {
			childStack.Push(LabelOperand(e))
			if childErr := vm.executeWithStack(code, childStack, regs); childErr != nil {
				return newSubroutineErr(pc, depth, childErr)
			}
		}
	}

	out, ok := childStack.PopN(m)
	if !ok {
		return newErr(StackUnderflow, pc, depth)
	}
	for _, o := range out {
		stack.Push(o)
	}
	return nil
}
