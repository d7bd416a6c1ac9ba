// Copyright 2024 The VIL Authors
// This file is part of VIL.

package vm

import (
	"github.com/holiman/uint256"
	"github.com/vectorlang/vil/vil/amount"
	"github.com/vectorlang/vil/vil/container"
)

// Kind tags the shape of an Operand on the evaluation stack or in a
// register cell. This is a closed sum type: every opcode handler switches
// on Kind and rejects any shape it does not explicitly accept with
// InvalidOperand — there is never a hidden coercion between kinds.
type Kind uint8

const (
	// KindNone is the default register cell contents and the shape left
	// behind by LDM.
	KindNone Kind = iota
	// KindScalar holds a single Amount.
	KindScalar
	// KindLabel holds a single 128-bit id.
	KindLabel
	// KindVector holds a sequence of Amount.
	KindVector
	// KindLabels holds a sequence of 128-bit ids.
	KindLabels
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindScalar:
		return "Scalar"
	case KindLabel:
		return "Label"
	case KindVector:
		return "Vector"
	case KindLabels:
		return "Labels"
	default:
		return "Unknown"
	}
}

// Operand is a tagged stack/register cell. Only the field matching Kind is
// meaningful; handlers must not read the others.
type Operand struct {
	Kind    Kind
	Scalar  amount.Amount
	Label   uint256.Int
	Vector  container.Vector
	Labels  container.Labels
}

// NoneOperand is the default, empty operand.
var NoneOperand = Operand{Kind: KindNone}

// ScalarOperand wraps a as a Scalar operand.
func ScalarOperand(a amount.Amount) Operand { return Operand{Kind: KindScalar, Scalar: a} }

// LabelOperand wraps id as a Label operand.
func LabelOperand(id uint256.Int) Operand { return Operand{Kind: KindLabel, Label: id} }

// VectorOperand wraps v as a Vector operand.
func VectorOperand(v container.Vector) Operand { return Operand{Kind: KindVector, Vector: v} }

// LabelsOperand wraps l as a Labels operand.
func LabelsOperand(l container.Labels) Operand { return Operand{Kind: KindLabels, Labels: l} }

// Clone returns an independent copy: mutating a container inside the clone
// never affects the original operand (LDD/LDR duplicate containers; the VM
// relies on this to let in-place opcodes assume exclusive ownership of the
// top operand).
func (o Operand) Clone() Operand {
	switch o.Kind {
	case KindVector:
		return Operand{Kind: KindVector, Vector: o.Vector.Clone()}
	case KindLabels:
		return Operand{Kind: KindLabels, Labels: o.Labels.Clone()}
	default:
		return o
	}
}
