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

package kerneldispatch

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/aiedispatch/ir"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// newModule builds a module of exported matmul functions; each entry of
// shapes is {M, N, K}.
func newModule(shapes map[string][3]int64, order ...string) *ir.Module {
	m := ir.NewModule("dispatch")
	for _, name := range order {
		s := shapes[name]
		fn, _ := newMatmulFunc(name, s[0], s[1], s[2])
		m.AddFunction(fn)
		m.Export(name)
	}
	return m
}

func rootOf(t *testing.T, fn *ir.Function) *ir.Op {
	t.Helper()
	for _, op := range fn.Ops() {
		if op.Kind == ir.OpKindMatmul {
			return op
		}
	}
	t.Fatalf("@%s has no matmul", fn.Name)
	return nil
}

// TestPassConfiguresExportedFunctions runs the pass over two functions.
func TestPassConfiguresExportedFunctions(t *testing.T) {
	m := newModule(map[string][3]int64{
		"a": {128, 128, 32},
		"b": {10, 10, 4},
	}, "a", "b")

	p := NewPass(WithPipeline(PipelineSimplePack), WithLogger(quietLogger()))
	require.NoError(t, p.Run(m))

	want := map[string]ir.TileSizes{
		"a": {{64, 64}, {0, 0, 0, 32, 32}, {0, 0, 0, 0, 0, 4}},
		"b": {{10, 10}, {0, 0, 0, 5, 5}, {0, 0, 0, 0, 0, 0}},
	}
	for name, sizes := range want {
		fn := m.LookupFunction(name)
		info := fn.TranslationInfo()
		require.NotNil(t, info, "@%s", name)
		if diff := cmp.Diff(sizes, info.TileSizes); diff != "" {
			t.Errorf("@%s translation info (-want +got):\n%s", name, diff)
		}
		cfg := fn.LoweringConfig(rootOf(t, fn))
		require.NotNil(t, cfg, "@%s", name)
		if diff := cmp.Diff(sizes, cfg.TileSizes); diff != "" {
			t.Errorf("@%s lowering config (-want +got):\n%s", name, diff)
		}
	}
}

// TestPassSkipsUnexported checks functions without an export record.
func TestPassSkipsUnexported(t *testing.T) {
	m := ir.NewModule("dispatch")
	fn, mm := newMatmulFunc("helper", 64, 64, 64)
	m.AddFunction(fn)
	// An unexported multi-block function must not fail the pass.
	multi := ir.NewFunction("multi")
	multi.AddBlock()
	multi.AddBlock()
	m.AddFunction(multi)

	require.NoError(t, NewPass(WithLogger(quietLogger())).Run(m))
	assert.Nil(t, fn.TranslationInfo())
	assert.Nil(t, fn.LoweringConfig(mm))
}

// TestPassSkipsConfiguredFunctions checks existing translation info is kept.
func TestPassSkipsConfiguredFunctions(t *testing.T) {
	m := newModule(map[string][3]int64{"a": {64, 64, 64}}, "a")
	fn := m.LookupFunction("a")
	preset := &ir.TranslationInfo{PassPipeline: "custom", TileSizes: ir.TileSizes{{2, 2}}}
	require.NoError(t, fn.SetTranslationInfo(preset))

	require.NoError(t, NewPass(WithPipeline(PipelinePack), WithLogger(quietLogger())).Run(m))
	assert.Equal(t, "custom", fn.TranslationInfo().PassPipeline)
	assert.Nil(t, fn.LoweringConfig(rootOf(t, fn)))
}

// TestPassIdempotent checks a second run changes nothing.
func TestPassIdempotent(t *testing.T) {
	m := newModule(map[string][3]int64{
		"a": {128, 256, 64},
		"b": {32, 32, 32},
	}, "a", "b")
	p := NewPass(WithPipeline(PipelinePack), WithHardware(HardwareConfig{NumCores: 4}), WithLogger(quietLogger()))

	require.NoError(t, p.Run(m))
	once := m.String()
	require.NoError(t, p.Run(m))
	assert.Equal(t, once, m.String())
	assert.Contains(t, once, "[16, 256]")
}

// TestPassControlFlow checks empty and multi-block bodies.
func TestPassControlFlow(t *testing.T) {
	tests := []struct {
		name   string
		blocks int
	}{
		{"empty", 0},
		{"twoBlocks", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModule(map[string][3]int64{"first": {64, 64, 64}}, "first")
			bad := ir.NewFunction("bad")
			for i := 0; i < tt.blocks; i++ {
				ir.NewBuilder(bad.AddBlock()).Return()
			}
			m.AddFunction(bad)
			m.Export("bad")
			last, _ := newMatmulFunc("last", 64, 64, 64)
			m.AddFunction(last)
			m.Export("last")

			err := NewPass(WithLogger(quietLogger())).Run(m)
			assert.True(t, errors.Is(err, ErrUnsupportedControlFlow), "got %v", err)
			assert.Contains(t, err.Error(), "@bad")

			// Functions before the failing one stay configured; later ones
			// are never visited.
			assert.NotNil(t, m.LookupFunction("first").TranslationInfo())
			assert.Nil(t, bad.TranslationInfo())
			assert.Nil(t, last.TranslationInfo())
		})
	}
}

// TestPassRejectsPresetLoweringConfig checks preset configs on any compute op.
func TestPassRejectsPresetLoweringConfig(t *testing.T) {
	m := newModule(map[string][3]int64{"a": {64, 64, 64}}, "a")
	fn := m.LookupFunction("a")
	fill := ir.ComputeOps(fn)[0]
	require.Equal(t, ir.OpKindFill, fill.Kind)
	require.NoError(t, fn.SetLoweringConfig(fill, &ir.LoweringConfig{TileSizes: ir.TileSizes{{1}}}))

	err := NewPass(WithLogger(quietLogger())).Run(m)
	assert.True(t, errors.Is(err, ErrAlreadyConfigured), "got %v", err)
	assert.Nil(t, fn.TranslationInfo())
	assert.Nil(t, fn.LoweringConfig(rootOf(t, fn)))
}

// TestPassNoRootOperation checks functions with no compute ops.
func TestPassNoRootOperation(t *testing.T) {
	m := ir.NewModule("dispatch")
	fn := ir.NewFunction("copy")
	b := ir.NewBuilder(fn.AddBlock())
	b.Store(b.Load("in", 4, 4), "out")
	b.Return()
	m.AddFunction(fn)
	m.Export("copy")

	err := NewPass(WithLogger(quietLogger())).Run(m)
	assert.True(t, errors.Is(err, ErrNoRootOperation), "got %v", err)
	assert.Contains(t, err.Error(), "@copy")
}

// TestPassResolverFailure checks resolver errors abort the pass.
func TestPassResolverFailure(t *testing.T) {
	m := newModule(map[string][3]int64{"a": {64, 64, 64}}, "a")
	boom := errors.New("ambiguous root")
	resolver := RootResolverFunc(func([]*ir.Op) (*ir.Op, error) { return nil, boom })

	err := NewPass(WithRootResolver(resolver), WithLogger(quietLogger())).Run(m)
	assert.True(t, errors.Is(err, boom), "got %v", err)
	assert.Nil(t, m.LookupFunction("a").TranslationInfo())
}

// TestPassPipelineFailures checks pipeline errors abort the pass.
func TestPassPipelineFailures(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"packCores", []Option{WithPipeline(PipelinePack), WithHardware(HardwareConfig{NumCores: 8})}, ErrUnsupportedPipeline},
		{"unhandled", []Option{WithPipeline(PipelineUnhandled)}, ErrUnsupportedPipeline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newModule(map[string][3]int64{"a": {64, 64, 64}}, "a")
			err := NewPass(append(tt.opts, WithLogger(quietLogger()))...).Run(m)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			fn := m.LookupFunction("a")
			assert.Nil(t, fn.TranslationInfo())
			assert.Nil(t, fn.LoweringConfig(rootOf(t, fn)))
		})
	}
}

// TestPassNonMatmulRoot checks that functions rooted at other ops pass
// through unconfigured.
func TestPassNonMatmulRoot(t *testing.T) {
	m := ir.NewModule("dispatch")
	fn := ir.NewFunction("relu")
	b := ir.NewBuilder(fn.AddBlock())
	in := b.Load("in", 32, 32)
	out := b.Generic([]*ir.Value{in}, b.Empty(32, 32), ir.Parallel, ir.Parallel)
	b.Store(out.Results[0], "out")
	b.Return()
	m.AddFunction(fn)
	m.Export("relu")

	require.NoError(t, NewPass(WithLogger(quietLogger())).Run(m))
	assert.Nil(t, fn.TranslationInfo())
	assert.Nil(t, fn.LoweringConfig(out))
}

// TestPassResolvesShapeQueries checks the cleanup runs after configuration.
func TestPassResolvesShapeQueries(t *testing.T) {
	m := newModule(map[string][3]int64{"a": {64, 32, 16}}, "a")
	fn := m.LookupFunction("a")
	mm := rootOf(t, fn)
	ret := fn.Entry().Ops[len(fn.Entry().Ops)-1]
	require.Equal(t, ir.OpKindReturn, ret.Kind)
	bld := ir.NewBuilder(nil, ir.WithInsertionPoint(ret))
	used := bld.Dim(mm.Results[0], 1)
	bld.Dim(mm.Results[0], 0)
	ret.Operands = []*ir.Value{used}

	require.NoError(t, NewPass(WithLogger(quietLogger())).Run(m))
	for _, op := range fn.Ops() {
		assert.NotEqual(t, ir.OpKindDim, op.Kind, "unexpected %s", op)
	}
	c := ret.Operands[0].Def
	require.Equal(t, ir.OpKindConstant, c.Kind)
	assert.Equal(t, int64(32), c.Const)
}

// TestPassRewriteFailure checks the cleanup iteration guard.
func TestPassRewriteFailure(t *testing.T) {
	m := newModule(map[string][3]int64{"a": {64, 32, 16}}, "a")
	fn := m.LookupFunction("a")
	mm := rootOf(t, fn)
	ret := fn.Entry().Ops[len(fn.Entry().Ops)-1]
	ret.Operands = []*ir.Value{ir.NewBuilder(nil, ir.WithInsertionPoint(ret)).Dim(mm.Results[0], 0)}

	// Resolving the dim needs more than one changing sweep.
	err := NewPass(WithMaxRewriteIterations(1), WithLogger(quietLogger())).Run(m)
	assert.True(t, errors.Is(err, ErrRewriteFailure), "got %v", err)
	// Configuration is attached before the cleanup runs.
	assert.NotNil(t, fn.TranslationInfo())
}

// TestPassName checks the reported name.
func TestPassName(t *testing.T) {
	assert.Equal(t, PassName, NewPass().Name())
}
