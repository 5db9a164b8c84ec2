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

package ir

import (
	"slices"

	"github.com/samber/lo"
)

// Builder creates ops in a block.
type Builder struct {
	// block receives the new ops.
	block *Block

	// before, if set, is the op new ops are inserted in front of.
	before *Op
}

// BuilderOption configures the Builder.
type BuilderOption func(*Builder)

// WithInsertionPoint makes the builder insert new ops before op instead of
// appending them to the end of the block.
func WithInsertionPoint(op *Op) BuilderOption {
	return func(b *Builder) {
		b.block = op.block
		b.before = op
	}
}

// NewBuilder creates a new IR builder for the given block.
func NewBuilder(block *Block, opts ...BuilderOption) *Builder {
	b := &Builder{block: block}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) create(kind OpKind, operands []*Value, resultShapes ...[]int64) *Op {
	fn := b.block.fn
	op := fn.newOp(kind)
	op.Operands = operands
	for _, shape := range resultShapes {
		op.Results = append(op.Results, fn.newValue(shape, op))
	}
	b.block.insert(op, b.before)
	return op
}

// Load reads a tensor of the given shape from a dispatch binding.
func (b *Builder) Load(binding string, shape ...int64) *Value {
	op := b.create(OpKindLoad, nil, shape)
	op.Binding = binding
	return op.Results[0]
}

// Store writes v to a dispatch binding.
func (b *Builder) Store(v *Value, binding string) *Op {
	op := b.create(OpKindStore, []*Value{v})
	op.Binding = binding
	return op
}

// Empty materializes an uninitialized tensor.
func (b *Builder) Empty(shape ...int64) *Value {
	return b.create(OpKindEmpty, nil, shape).Results[0]
}

// Constant creates an integer constant.
func (b *Builder) Constant(c int64) *Value {
	op := b.create(OpKindConstant, nil, nil)
	op.Const = c
	return op.Results[0]
}

// Dim queries extent i of v.
func (b *Builder) Dim(v *Value, i int) *Value {
	op := b.create(OpKindDim, []*Value{v}, nil)
	op.Index = i
	return op.Results[0]
}

// Fill broadcasts scalar into init.
func (b *Builder) Fill(scalar, init *Value) *Op {
	op := b.create(OpKindFill, []*Value{scalar, init}, init.Shape)
	op.NumInputs = 1
	op.IteratorTypes = lo.RepeatBy(init.Rank(), func(int) IteratorType { return Parallel })
	return op
}

// Matmul creates init += lhs × rhs with loops (m, n, k).
func (b *Builder) Matmul(lhs, rhs, init *Value) *Op {
	op := b.create(OpKindMatmul, []*Value{lhs, rhs, init}, init.Shape)
	op.NumInputs = 2
	op.IteratorTypes = []IteratorType{Parallel, Parallel, Reduction}
	return op
}

// Generic creates a structured op with explicit iterator types. The result
// takes the shape of the single init.
func (b *Builder) Generic(inputs []*Value, init *Value, iterators ...IteratorType) *Op {
	operands := append(slices.Clone(inputs), init)
	op := b.create(OpKindGeneric, operands, init.Shape)
	op.NumInputs = len(inputs)
	op.IteratorTypes = slices.Clone(iterators)
	return op
}

// Pad, Pack and Unpack create a data-layout op producing resultShape.
func (b *Builder) Pad(src *Value, resultShape ...int64) *Op {
	return b.create(OpKindPad, []*Value{src}, resultShape)
}

func (b *Builder) Pack(src *Value, resultShape ...int64) *Op {
	return b.create(OpKindPack, []*Value{src}, resultShape)
}

func (b *Builder) Unpack(src *Value, resultShape ...int64) *Op {
	return b.create(OpKindUnpack, []*Value{src}, resultShape)
}

// Return terminates the block.
func (b *Builder) Return(values ...*Value) *Op {
	return b.create(OpKindReturn, values)
}
