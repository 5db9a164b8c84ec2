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

import "github.com/samber/lo"

// ComputeOps returns the ops of fn that are candidates for tiling
// (structured and data-layout ops), in body order.
func ComputeOps(fn *Function) []*Op {
	return lo.Filter(fn.Ops(), func(op *Op, _ int) bool {
		return op.Kind.IsCompute()
	})
}

// UseMap maps each value to the ops consuming it.
type UseMap map[*Value][]*Op

// Analyze computes def-use chains for fn.
func Analyze(fn *Function) UseMap {
	uses := make(UseMap)
	for _, op := range fn.Ops() {
		for _, v := range op.Operands {
			uses[v] = appendUnique(uses[v], op)
		}
	}
	return uses
}

// HasUses reports whether any result of op is consumed.
func (u UseMap) HasUses(op *Op) bool {
	return lo.SomeBy(op.Results, func(v *Value) bool {
		return len(u[v]) > 0
	})
}

// isPure returns true for ops without side effects, which may be erased
// once their results are unused.
func isPure(op *Op) bool {
	switch op.Kind {
	case OpKindDim, OpKindConstant:
		return true
	default:
		return false
	}
}

// IsTriviallyDead returns true if op has no side effects and no uses.
func (u UseMap) IsTriviallyDead(op *Op) bool {
	return isPure(op) && !u.HasUses(op)
}

// appendUnique appends an op to a slice if not already present.
func appendUnique(slice []*Op, op *Op) []*Op {
	if lo.Contains(slice, op) {
		return slice
	}
	return append(slice, op)
}
