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
	"slices"

	"github.com/pkg/errors"

	"github.com/ajroetker/aiedispatch/ir"
)

// MatmulShape holds the static extents a tiling policy may consult.
//
// For a matmul (M×K) × (K×N) → (M×N):
//   - Init is the result/accumulator shape (M, N)
//   - LHS is the left operand shape (M, K)
type MatmulShape struct {
	Init []int64
	LHS  []int64
}

// AnalyzeMatmulShape returns the init and lhs extents of a matmul op.
// Missing operands yield nil shapes; Validate reports them.
func AnalyzeMatmulShape(op *ir.Op) MatmulShape {
	var s MatmulShape
	if inits := op.Inits(); len(inits) > 0 {
		s.Init = slices.Clone(inits[0].Shape)
	}
	if inputs := op.Inputs(); len(inputs) > 0 {
		s.LHS = slices.Clone(inputs[0].Shape)
	}
	return s
}

// M, N and K return the problem sizes, or ir.DynamicSize when the shape
// does not have the expected rank.
func (s MatmulShape) M() int64 { return extent(s.Init, 0) }
func (s MatmulShape) N() int64 { return extent(s.Init, 1) }
func (s MatmulShape) K() int64 { return extent(s.LHS, 1) }

func extent(shape []int64, i int) int64 {
	if len(shape) != 2 {
		return ir.DynamicSize
	}
	return shape[i]
}

// Validate rejects shapes whose M, N or K is dynamic or not positive.
func (s MatmulShape) Validate() error {
	for _, d := range []struct {
		name string
		size int64
	}{{"M", s.M()}, {"N", s.N()}, {"K", s.K()}} {
		if d.size == ir.DynamicSize {
			return errors.Wrapf(ErrUnsupportedStructure, "dynamic or missing %s extent (init %v, lhs %v)", d.name, s.Init, s.LHS)
		}
		if d.size <= 0 {
			return errors.Wrapf(ErrUnsupportedStructure, "non-positive %s extent %d", d.name, d.size)
		}
	}
	return nil
}

// tilingPolicy maps a matmul and the hardware description to a tile-size
// hierarchy.
type tilingPolicy func(fn *ir.Function, op *ir.Op, hw HardwareConfig) (ir.TileSizes, error)

// tilingPolicies is the handler table keyed by pipeline.
var tilingPolicies = map[PipelineKind]tilingPolicy{
	PipelinePad:        padTileSizes,
	PipelineSimplePack: simplePackTileSizes,
	PipelinePack:       packTileSizes,
}

// TileSizesFor computes the tile-size hierarchy pipeline assigns to the
// matmul op, without attaching it.
func TileSizesFor(fn *ir.Function, op *ir.Op, pipeline PipelineKind, hw HardwareConfig) (ir.TileSizes, error) {
	policy, ok := tilingPolicies[pipeline]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedPipeline, "%s: unhandled pass pipeline %s", opName(fn, op), pipeline)
	}
	return policy(fn, op, hw)
}

// Pad pipeline tile sizes. Operands are padded to multiples of these
// upstream, so the shape is never consulted.
var (
	padTileLevel0 = ir.TileLevel{8, 8}
	padTileLevel1 = ir.TileLevel{4, 4}
	padTileLevel2 = ir.TileLevel{0, 0, 4}
)

func padTileSizes(_ *ir.Function, _ *ir.Op, _ HardwareConfig) (ir.TileSizes, error) {
	return ir.TileSizes{padTileLevel0, padTileLevel1, padTileLevel2}.Clone(), nil
}

// SimplePack limits.
const (
	// simplePackMaxTile caps the outer M and N tiles.
	simplePackMaxTile = 64

	// simplePackKDivisor and simplePackMaxTileK derive the K tile.
	simplePackKDivisor = 8
	simplePackMaxTileK = 4
)

// simplePackTileSizes derives single-core tiles from the matmul shape:
//   - level 0: M and N capped at 64
//   - level 1: half of level 0, at least 1, on the packed inner loops
//   - level 2: K/8 capped at 4 on the innermost reduction loop
//
// A K smaller than 8 gives a 0 K tile, i.e. K is not tiled.
func simplePackTileSizes(fn *ir.Function, op *ir.Op, _ HardwareConfig) (ir.TileSizes, error) {
	shape := AnalyzeMatmulShape(op)
	if err := shape.Validate(); err != nil {
		return nil, errors.WithMessage(err, opName(fn, op))
	}
	m, n, k := shape.M(), shape.N(), shape.K()

	tileM0 := min(m, simplePackMaxTile)
	tileN0 := min(n, simplePackMaxTile)
	tileM1 := max(tileM0/2, 1)
	tileN1 := max(tileN0/2, 1)
	tileK := min(k/simplePackKDivisor, simplePackMaxTileK)

	return ir.TileSizes{
		{tileM0, tileN0},
		{0, 0, 0, tileM1, tileN1},
		{0, 0, 0, 0, 0, tileK},
	}, nil
}

// Pack pipeline sizes.
const (
	packTileM     = 16
	packTileNCore = 64 // N tile per core
	packTileK     = 64
)

// packSupportedCores lists the core counts the pack pipeline can partition N
// across.
var packSupportedCores = []int{1, 2, 4}

// packTileSizes scales the outer N tile with the core count; M and K tiles
// are fixed.
func packTileSizes(fn *ir.Function, op *ir.Op, hw HardwareConfig) (ir.TileSizes, error) {
	if !slices.Contains(packSupportedCores, hw.NumCores) {
		return nil, errors.Wrapf(ErrUnsupportedPipeline, "%s: unhandled number of cores %d (want one of %v)",
			opName(fn, op), hw.NumCores, packSupportedCores)
	}
	return ir.TileSizes{
		{packTileM, packTileNCore * int64(hw.NumCores)},
		{0, 0, packTileK},
		{1, 1},
	}, nil
}
