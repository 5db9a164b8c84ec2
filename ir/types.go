// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ir provides a small tensor-level intermediate representation for
// dispatch functions, enabling configuration passes to annotate compute
// operations before later lowering stages consume them.
package ir

import (
	"fmt"
	"math"
	"strings"
)

// DynamicSize marks an extent that is not known statically.
const DynamicSize int64 = math.MinInt64

// OpKind categorizes IR operations for dispatch and pattern matching.
type OpKind int

const (
	// OpKindMatmul is a dense 2D matrix multiply (lhs, rhs) -> init.
	OpKindMatmul OpKind = iota

	// OpKindGeneric is a structured op with explicit iterator types
	// (elementwise maps, reductions, transposes).
	OpKindGeneric

	// OpKindFill broadcasts a scalar into its init operand.
	OpKindFill

	// OpKindPad, OpKindPack and OpKindUnpack are tiling-interface
	// data-layout ops.
	OpKindPad
	OpKindPack
	OpKindUnpack

	// OpKindEmpty materializes an uninitialized tensor of a given shape.
	OpKindEmpty

	// OpKindDim queries one extent of a shaped value.
	OpKindDim

	// OpKindConstant produces an integer constant.
	OpKindConstant

	// OpKindLoad and OpKindStore move tensors between dispatch bindings and
	// the function body.
	OpKindLoad
	OpKindStore

	// OpKindReturn terminates a block.
	OpKindReturn
)

// String returns a human-readable name for the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpKindMatmul:
		return "linalg.matmul"
	case OpKindGeneric:
		return "linalg.generic"
	case OpKindFill:
		return "linalg.fill"
	case OpKindPad:
		return "tensor.pad"
	case OpKindPack:
		return "tensor.pack"
	case OpKindUnpack:
		return "tensor.unpack"
	case OpKindEmpty:
		return "tensor.empty"
	case OpKindDim:
		return "tensor.dim"
	case OpKindConstant:
		return "arith.constant"
	case OpKindLoad:
		return "flow.dispatch.tensor.load"
	case OpKindStore:
		return "flow.dispatch.tensor.store"
	case OpKindReturn:
		return "return"
	default:
		return fmt.Sprintf("OpKind(%d)", k)
	}
}

// IsStructured returns true for linalg-like ops that carry iterator types
// and follow destination-passing style (trailing operands are inits).
func (k OpKind) IsStructured() bool {
	switch k {
	case OpKindMatmul, OpKindGeneric, OpKindFill:
		return true
	default:
		return false
	}
}

// IsDataLayout returns true for pad/pack/unpack.
func (k OpKind) IsDataLayout() bool {
	switch k {
	case OpKindPad, OpKindPack, OpKindUnpack:
		return true
	default:
		return false
	}
}

// IsCompute returns true if ops of this kind are candidates for tiling.
func (k OpKind) IsCompute() bool {
	return k.IsStructured() || k.IsDataLayout()
}

// IteratorType describes how a loop dimension of a structured op is iterated.
type IteratorType int

const (
	Parallel IteratorType = iota
	Reduction
)

func (t IteratorType) String() string {
	if t == Reduction {
		return "reduction"
	}
	return "parallel"
}

// Value is an SSA value: a function argument or an op result.
type Value struct {
	// ID is unique within the owning function.
	ID int

	// Shape holds the static extents; DynamicSize marks unknown ones.
	// A nil Shape denotes a scalar (index or integer).
	Shape []int64

	// Def is the producing op, or nil for function arguments.
	Def *Op
}

// Rank returns the number of dimensions of the value.
func (v *Value) Rank() int {
	return len(v.Shape)
}

// IsStaticDim returns true if dimension i has a known extent.
func (v *Value) IsStaticDim(i int) bool {
	return i >= 0 && i < len(v.Shape) && v.Shape[i] != DynamicSize
}

func (v *Value) String() string {
	return fmt.Sprintf("%%%d", v.ID)
}

// Op represents a single operation in a function body.
type Op struct {
	// ID is a unique identifier for this op within its module.
	ID int

	// Kind categorizes this operation.
	Kind OpKind

	// Operands are the values consumed by this op. For structured ops the
	// first NumInputs operands are inputs and the rest are inits.
	Operands []*Value

	// NumInputs is the count of leading input operands of structured ops.
	NumInputs int

	// Results are the values produced by this op.
	Results []*Value

	// IteratorTypes has one entry per loop dimension of a structured op.
	IteratorTypes []IteratorType

	// Index is the queried dimension for OpKindDim.
	Index int

	// Const is the value of an OpKindConstant.
	Const int64

	// Binding names the dispatch binding of load/store ops.
	Binding string

	// block is the containing block.
	block *Block
}

// Inputs returns the input operands of a structured op.
func (op *Op) Inputs() []*Value {
	if op.NumInputs > len(op.Operands) {
		return op.Operands
	}
	return op.Operands[:op.NumInputs]
}

// Inits returns the init (destination) operands of a structured op.
func (op *Op) Inits() []*Value {
	if op.NumInputs > len(op.Operands) {
		return nil
	}
	return op.Operands[op.NumInputs:]
}

// NumLoops returns the number of loop dimensions.
func (op *Op) NumLoops() int {
	return len(op.IteratorTypes)
}

// ReductionDims returns the loop dimensions iterated as reductions, in order.
func (op *Op) ReductionDims() []int {
	var dims []int
	for i, t := range op.IteratorTypes {
		if t == Reduction {
			dims = append(dims, i)
		}
	}
	return dims
}

// IsAllParallel returns true if every loop dimension is parallel.
func (op *Op) IsAllParallel() bool {
	return len(op.ReductionDims()) == 0
}

// Block returns the block containing op, or nil once erased.
func (op *Op) Block() *Block {
	return op.block
}

// String returns a debug string representation of the Op.
func (op *Op) String() string {
	var sb strings.Builder
	if len(op.Results) > 0 {
		for i, r := range op.Results {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(r.String())
		}
		sb.WriteString(" = ")
	}
	fmt.Fprintf(&sb, "%s#%d", op.Kind, op.ID)
	if len(op.Operands) > 0 {
		sb.WriteString(" ")
		for i, v := range op.Operands {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(v.String())
		}
	}
	switch op.Kind {
	case OpKindDim:
		fmt.Fprintf(&sb, " [%d]", op.Index)
	case OpKindConstant:
		fmt.Fprintf(&sb, " %d", op.Const)
	case OpKindLoad, OpKindStore:
		fmt.Fprintf(&sb, " @%s", op.Binding)
	}
	if len(op.IteratorTypes) > 0 {
		its := make([]string, len(op.IteratorTypes))
		for i, t := range op.IteratorTypes {
			its[i] = t.String()
		}
		fmt.Fprintf(&sb, " {iterators=[%s]}", strings.Join(its, ", "))
	}
	if len(op.Results) == 1 && op.Results[0].Shape != nil {
		sb.WriteString(" : ")
		sb.WriteString(FormatShape(op.Results[0].Shape))
	}
	return sb.String()
}

// FormatShape renders a shape as "tensor<4x?x8>".
func FormatShape(shape []int64) string {
	dims := make([]string, len(shape))
	for i, d := range shape {
		if d == DynamicSize {
			dims[i] = "?"
		} else {
			dims[i] = fmt.Sprint(d)
		}
	}
	return "tensor<" + strings.Join(dims, "x") + ">"
}
