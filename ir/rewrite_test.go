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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countKind(fn *Function, kind OpKind) int {
	n := 0
	for _, op := range fn.Ops() {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// TestResolveStaticDim tests that a used dim of a static extent becomes a
// constant.
func TestResolveStaticDim(t *testing.T) {
	fn := NewFunction("f")
	b := NewBuilder(fn.AddBlock())
	src := b.Load("in", 16, 32)
	d := b.Dim(src, 1)
	ret := b.Return(d)

	m := NewModule("m")
	m.AddFunction(fn)
	require.NoError(t, ResolveShapeQueries(m, 0))

	assert.Equal(t, 0, countKind(fn, OpKindDim))
	require.Len(t, ret.Operands, 1)
	c := ret.Operands[0].Def
	require.NotNil(t, c)
	assert.Equal(t, OpKindConstant, c.Kind)
	assert.Equal(t, int64(32), c.Const)
}

// TestResolveDimOfResult tests that dim of a matmul result resolves through
// the init operand, even when the init's extent is dynamic.
func TestResolveDimOfResult(t *testing.T) {
	fn := NewFunction("f")
	init := fn.AddArg(DynamicSize, 8)
	b := NewBuilder(fn.AddBlock())
	lhs := b.Load("lhs", DynamicSize, 4)
	rhs := b.Load("rhs", 4, 8)
	mm := b.Matmul(lhs, rhs, init)
	d0 := b.Dim(mm.Results[0], 0)
	d1 := b.Dim(mm.Results[0], 1)
	ret := b.Return(d0, d1)

	m := NewModule("m")
	m.AddFunction(fn)
	require.NoError(t, ResolveShapeQueries(m, 0))

	// Dim 0 is dynamic: it stays a query, now on the init argument.
	dyn := ret.Operands[0].Def
	require.Equal(t, OpKindDim, dyn.Kind)
	assert.Same(t, init, dyn.Operands[0])

	// Dim 1 is static: it folds.
	static := ret.Operands[1].Def
	require.Equal(t, OpKindConstant, static.Kind)
	assert.Equal(t, int64(8), static.Const)
	assert.Equal(t, 1, countKind(fn, OpKindDim))
}

// TestEraseDeadShapeQueries tests removal of unused dims and constants.
func TestEraseDeadShapeQueries(t *testing.T) {
	fn := NewFunction("f")
	b := NewBuilder(fn.AddBlock())
	src := b.Load("in", 16, DynamicSize)
	b.Dim(src, 1)
	b.Constant(3)
	b.Store(src, "out")
	b.Return()

	m := NewModule("m")
	m.AddFunction(fn)
	iters, err := ApplyPatterns(m, ResolveShapeQueryPatterns(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, iters, "one changing sweep plus one confirming sweep")
	assert.Equal(t, 0, countKind(fn, OpKindDim))
	assert.Equal(t, 0, countKind(fn, OpKindConstant))
	assert.Equal(t, 3, len(fn.Entry().Ops))
}

// TestApplyPatternsFixpoint tests that an already clean module converges in
// one sweep.
func TestApplyPatternsFixpoint(t *testing.T) {
	fn := NewFunction("f")
	b := NewBuilder(fn.AddBlock())
	b.Store(b.Load("in", 4), "out")
	b.Return()

	m := NewModule("m")
	m.AddFunction(fn)
	iters, err := ApplyPatterns(m, ResolveShapeQueryPatterns(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, iters)
}

// TestApplyPatternsNoFixpoint tests the iteration guard.
func TestApplyPatternsNoFixpoint(t *testing.T) {
	fn := NewFunction("f")
	b := NewBuilder(fn.AddBlock())
	c := b.Constant(0)
	b.Return(c)

	m := NewModule("m")
	m.AddFunction(fn)
	bump := RewritePattern{
		Name:  "Bump",
		Match: func(op *Op, _ UseMap) bool { return op.Kind == OpKindConstant },
		Rewrite: func(_ *Rewriter, op *Op) error {
			op.Const++
			return nil
		},
	}
	iters, err := ApplyPatterns(m, []RewritePattern{bump}, 3)
	assert.Equal(t, 3, iters)
	assert.True(t, errors.Is(err, ErrNoFixpoint), "got %v", err)
	assert.Equal(t, int64(3), c.Def.Const)
}

// TestApplyPatternsError tests that pattern errors abort the driver.
func TestApplyPatternsError(t *testing.T) {
	fn := NewFunction("f")
	b := NewBuilder(fn.AddBlock())
	b.Return(b.Constant(0))

	m := NewModule("m")
	m.AddFunction(fn)
	boom := errors.New("boom")
	fail := RewritePattern{
		Name:    "Fail",
		Match:   func(op *Op, _ UseMap) bool { return op.Kind == OpKindConstant },
		Rewrite: func(*Rewriter, *Op) error { return boom },
	}
	_, err := ApplyPatterns(m, []RewritePattern{fail}, 0)
	assert.True(t, errors.Is(err, boom), "got %v", err)
	assert.Contains(t, err.Error(), "pattern Fail")
}

// TestPatternPriority tests that higher-priority patterns are tried first.
func TestPatternPriority(t *testing.T) {
	fn := NewFunction("f")
	b := NewBuilder(fn.AddBlock())
	b.Constant(0)
	b.Return()

	m := NewModule("m")
	m.AddFunction(fn)
	var applied []string
	mk := func(name string, prio int) RewritePattern {
		return RewritePattern{
			Name:     name,
			Priority: prio,
			Match:    func(op *Op, _ UseMap) bool { return op.Kind == OpKindConstant },
			Rewrite: func(rw *Rewriter, op *Op) error {
				applied = append(applied, name)
				rw.EraseOp(op)
				return nil
			},
		}
	}
	_, err := ApplyPatterns(m, []RewritePattern{mk("low", 1), mk("high", 9)}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"high"}, applied)
}
