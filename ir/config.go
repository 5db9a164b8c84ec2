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

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrAlreadyConfigured is returned when attaching a configuration to an op
// or function that already carries one. Configurations are never replaced.
var ErrAlreadyConfigured = errors.New("configuration already set")

// TileLevel holds one tile size per loop dimension. A 0 entry means the
// dimension is not tiled at this level.
type TileLevel []int64

func (l TileLevel) String() string {
	return "[" + strings.Join(lo.Map(l, func(s int64, _ int) string {
		return fmt.Sprint(s)
	}), ", ") + "]"
}

// TileSizes is a tile-size hierarchy, coarsest level first.
type TileSizes []TileLevel

func (t TileSizes) String() string {
	return "[" + strings.Join(lo.Map(t, func(l TileLevel, _ int) string {
		return l.String()
	}), ", ") + "]"
}

// Clone returns a deep copy.
func (t TileSizes) Clone() TileSizes {
	if t == nil {
		return nil
	}
	return lo.Map(t, func(l TileLevel, _ int) TileLevel {
		return slices.Clone(l)
	})
}

// LoweringConfig is the per-op tiling configuration.
type LoweringConfig struct {
	TileSizes TileSizes
}

func (c *LoweringConfig) String() string {
	return fmt.Sprintf("#config<tile_sizes = %s>", c.TileSizes)
}

// LoweringPipeline identifies the lowering pass pipeline later stages run.
type LoweringPipeline int

const (
	// LoweringPipelineNone means no dedicated lowering pipeline has been
	// selected yet.
	LoweringPipelineNone LoweringPipeline = iota
)

func (p LoweringPipeline) String() string {
	switch p {
	case LoweringPipelineNone:
		return "None"
	default:
		return fmt.Sprintf("LoweringPipeline(%d)", p)
	}
}

// TranslationInfo is the per-function record of the chosen pipeline.
type TranslationInfo struct {
	// Pipeline is the lowering pipeline tag.
	Pipeline LoweringPipeline

	// PassPipeline names the tiling pipeline that produced TileSizes.
	PassPipeline string

	// TileSizes is the tile hierarchy of the function's root op.
	TileSizes TileSizes
}

func (t *TranslationInfo) String() string {
	return fmt.Sprintf("#translation<%s, pass_pipeline = %s, tile_sizes = %s>",
		t.Pipeline, t.PassPipeline, t.TileSizes)
}

// LoweringConfig returns the configuration attached to op, or nil.
func (f *Function) LoweringConfig(op *Op) *LoweringConfig {
	return f.loweringConfigs[op.ID]
}

// HasLoweringConfig reports whether op carries a configuration.
func (f *Function) HasLoweringConfig(op *Op) bool {
	return f.LoweringConfig(op) != nil
}

// SetLoweringConfig attaches cfg to op.
func (f *Function) SetLoweringConfig(op *Op, cfg *LoweringConfig) error {
	if f.HasLoweringConfig(op) {
		return errors.Wrapf(ErrAlreadyConfigured, "op %s#%d in @%s", op.Kind, op.ID, f.Name)
	}
	f.loweringConfigs[op.ID] = &LoweringConfig{TileSizes: cfg.TileSizes.Clone()}
	return nil
}

// TranslationInfo returns the function's translation info, or nil.
func (f *Function) TranslationInfo() *TranslationInfo {
	return f.translation
}

// SetTranslationInfo attaches info to the function.
func (f *Function) SetTranslationInfo(info *TranslationInfo) error {
	if f.translation != nil {
		return errors.Wrapf(ErrAlreadyConfigured, "translation info of @%s", f.Name)
	}
	clone := *info
	clone.TileSizes = info.TileSizes.Clone()
	f.translation = &clone
	return nil
}
