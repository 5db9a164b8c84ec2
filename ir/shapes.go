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

import "slices"

// ResolveShapeQueryPatterns returns the patterns that eliminate redundant
// tensor.dim ops:
//   - dim of a structured op's result is rewritten to dim of its init,
//   - dim of a statically known extent folds to a constant,
//   - unused dim and constant ops are erased.
func ResolveShapeQueryPatterns() []RewritePattern {
	return []RewritePattern{
		{
			Name:     "EraseDeadShapeQuery",
			Priority: 30,
			Match:    matchDeadShapeQuery,
			Rewrite:  eraseDeadShapeQuery,
		},
		{
			Name:     "ResolveDimOfResult",
			Priority: 20,
			Match:    matchDimOfResult,
			Rewrite:  resolveDimOfResult,
		},
		{
			Name:     "FoldStaticDim",
			Priority: 10,
			Match:    matchStaticDim,
			Rewrite:  foldStaticDim,
		},
	}
}

// ResolveShapeQueries runs ResolveShapeQueryPatterns over m to a fixpoint.
func ResolveShapeQueries(m *Module, maxIterations int) error {
	_, err := ApplyPatterns(m, ResolveShapeQueryPatterns(), maxIterations)
	return err
}

func matchDeadShapeQuery(op *Op, uses UseMap) bool {
	return (op.Kind == OpKindDim || op.Kind == OpKindConstant) && uses.IsTriviallyDead(op)
}

func eraseDeadShapeQuery(rw *Rewriter, op *Op) error {
	rw.EraseOp(op)
	return nil
}

// dimSourceInit returns the init operand tied to the queried result of a
// structured op, or nil.
func dimSourceInit(op *Op) *Value {
	if op.Kind != OpKindDim || len(op.Operands) != 1 {
		return nil
	}
	src := op.Operands[0]
	def := src.Def
	if def == nil || !def.Kind.IsStructured() {
		return nil
	}
	idx := slices.Index(def.Results, src)
	inits := def.Inits()
	if idx < 0 || idx >= len(inits) {
		return nil
	}
	return inits[idx]
}

func matchDimOfResult(op *Op, _ UseMap) bool {
	init := dimSourceInit(op)
	return init != nil && init != op.Operands[0]
}

func resolveDimOfResult(_ *Rewriter, op *Op) error {
	op.Operands[0] = dimSourceInit(op)
	return nil
}

func matchStaticDim(op *Op, _ UseMap) bool {
	return op.Kind == OpKindDim && len(op.Operands) == 1 && op.Operands[0].IsStaticDim(op.Index)
}

func foldStaticDim(rw *Rewriter, op *Op) error {
	extent := op.Operands[0].Shape[op.Index]
	c := rw.BuilderBefore(op).Constant(extent)
	rw.ReplaceOp(op, c)
	return nil
}
