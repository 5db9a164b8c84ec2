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
	"github.com/pkg/errors"

	"github.com/ajroetker/aiedispatch/ir"
)

// rootConfigFunc sets the configuration for a root op of a given kind.
type rootConfigFunc func(fn *ir.Function, op *ir.Op, pipeline PipelineKind, hw HardwareConfig) error

// rootConfigHandlers maps root op kinds to their configuration. Kinds
// without an entry are accepted unchanged; support for them is added one
// kind at a time.
var rootConfigHandlers = map[ir.OpKind]rootConfigFunc{
	ir.OpKindMatmul: setMatmulRootConfig,
}

// setRootConfig dispatches on the kind of the root op.
func setRootConfig(fn *ir.Function, op *ir.Op, pipeline PipelineKind, hw HardwareConfig) error {
	handler, ok := rootConfigHandlers[op.Kind]
	if !ok {
		return nil
	}
	return handler(fn, op, pipeline, hw)
}

// setMatmulRootConfig validates the loop structure of a matmul, computes its
// tile sizes for pipeline and attaches them to op and fn. Nothing is attached
// on failure.
func setMatmulRootConfig(fn *ir.Function, op *ir.Op, pipeline PipelineKind, hw HardwareConfig) error {
	if fn.HasLoweringConfig(op) {
		return errors.Wrapf(ErrAlreadyConfigured, "%s: expected lowering_config to be unset", opName(fn, op))
	}
	if fn.TranslationInfo() != nil {
		return errors.Wrapf(ErrAlreadyConfigured, "@%s: expected translation_info to be unset", fn.Name)
	}

	dims := op.ReductionDims()
	if len(dims) != 1 || dims[0] != op.NumLoops()-1 {
		return errors.Wrapf(ErrUnsupportedStructure,
			"%s: expected to have exactly one reduction dim, and it is the innermost dim (reduction dims %v of %d loops)",
			opName(fn, op), dims, op.NumLoops())
	}

	tileSizes, err := TileSizesFor(fn, op, pipeline, hw)
	if err != nil {
		return err
	}
	return setOpConfigAndTranslation(fn, op, tileSizes, pipeline)
}

// setOpConfigAndTranslation attaches the lowering config to op and the
// translation info, with no dedicated lowering pipeline yet, to fn.
func setOpConfigAndTranslation(fn *ir.Function, op *ir.Op, tileSizes ir.TileSizes, pipeline PipelineKind) error {
	if err := fn.SetLoweringConfig(op, &ir.LoweringConfig{TileSizes: tileSizes}); err != nil {
		return err
	}
	return fn.SetTranslationInfo(&ir.TranslationInfo{
		Pipeline:     ir.LoweringPipelineNone,
		PassPipeline: pipeline.String(),
		TileSizes:    tileSizes,
	})
}
