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
	"fmt"
	"slices"
	"strings"
)

// Block is a straight-line sequence of ops.
type Block struct {
	// Ops is the ordered body of the block.
	Ops []*Op

	fn *Function
}

// Function returns the function owning the block.
func (b *Block) Function() *Function {
	return b.fn
}

// insert places op before the given op, or at the end if before is nil.
func (b *Block) insert(op, before *Op) {
	op.block = b
	if before != nil {
		if idx := slices.Index(b.Ops, before); idx >= 0 {
			b.Ops = slices.Insert(b.Ops, idx, op)
			return
		}
	}
	b.Ops = append(b.Ops, op)
}

// Erase removes op from the block. Its results must have no remaining uses.
func (b *Block) Erase(op *Op) {
	if idx := slices.Index(b.Ops, op); idx >= 0 {
		b.Ops = slices.Delete(b.Ops, idx, idx+1)
		op.block = nil
	}
}

// Function represents a dispatch function in the IR.
type Function struct {
	// Name is the function symbol, matched against export records.
	Name string

	// Args are the function arguments.
	Args []*Value

	// Blocks is the function body. Configuration passes only handle
	// single-block bodies.
	Blocks []*Block

	// loweringConfigs maps op ID to its attached tiling configuration.
	loweringConfigs map[int]*LoweringConfig

	// translation is set once the function has been configured.
	translation *TranslationInfo

	nextValueID int
	nextOpID    int
}

// NewFunction creates a new Function with the given name and no blocks.
func NewFunction(name string) *Function {
	return &Function{
		Name:            name,
		loweringConfigs: make(map[int]*LoweringConfig),
	}
}

// AddBlock appends a new empty block to the function body.
func (f *Function) AddBlock() *Block {
	b := &Block{fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the first block, or nil for an empty body.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// AddArg appends a function argument with the given shape.
func (f *Function) AddArg(shape ...int64) *Value {
	v := f.newValue(shape, nil)
	f.Args = append(f.Args, v)
	return v
}

func (f *Function) newValue(shape []int64, def *Op) *Value {
	v := &Value{ID: f.nextValueID, Shape: slices.Clone(shape), Def: def}
	f.nextValueID++
	return v
}

func (f *Function) newOp(kind OpKind) *Op {
	op := &Op{ID: f.nextOpID, Kind: kind}
	f.nextOpID++
	return op
}

// Ops returns all ops of the function, in block order.
func (f *Function) Ops() []*Op {
	var ops []*Op
	for _, b := range f.Blocks {
		ops = append(ops, b.Ops...)
	}
	return ops
}

// GetOp returns the op with the given ID, or nil if not found.
func (f *Function) GetOp(id int) *Op {
	for _, b := range f.Blocks {
		for _, op := range b.Ops {
			if op.ID == id {
				return op
			}
		}
	}
	return nil
}

// ReplaceAllUsesWith rewires every operand referring to from so that it
// refers to to instead. Returns the number of operands changed.
func (f *Function) ReplaceAllUsesWith(from, to *Value) int {
	n := 0
	for _, b := range f.Blocks {
		for _, op := range b.Ops {
			for i, v := range op.Operands {
				if v == from {
					op.Operands[i] = to
					n++
				}
			}
		}
	}
	return n
}

// String returns a multi-line dump of the function and its annotations.
func (f *Function) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func @%s(", f.Name)
	for i, a := range f.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", a, FormatShape(a.Shape))
	}
	sb.WriteString(")")
	if f.translation != nil {
		fmt.Fprintf(&sb, " attributes {translation_info = %s}", f.translation)
	}
	sb.WriteString(" {\n")
	for i, b := range f.Blocks {
		fmt.Fprintf(&sb, "^bb%d:\n", i)
		for _, op := range b.Ops {
			fmt.Fprintf(&sb, "  %s", op)
			if cfg := f.loweringConfigs[op.ID]; cfg != nil {
				fmt.Fprintf(&sb, " {lowering_config = %s}", cfg)
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
