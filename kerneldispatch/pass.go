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

// Package kerneldispatch selects tile sizes for the root op of every
// exported dispatch function and records them as lowering configuration
// for later AIE lowering stages.
//
// Usage:
//
//	pass := kerneldispatch.NewPass(
//		kerneldispatch.WithPipeline(kerneldispatch.PipelinePack),
//		kerneldispatch.WithHardware(kerneldispatch.HardwareConfig{NumCores: 4}),
//	)
//	if err := pass.Run(module); err != nil {
//		...
//	}
//
// The pass is deterministic; running it on an already configured module is
// a no-op apart from the shape-query cleanup.
package kerneldispatch

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ajroetker/aiedispatch/ir"
)

// PassName identifies the pass in logs.
const PassName = "aie-lowering-strategy"

// Pass annotates a module with AIE tiling configuration.
type Pass struct {
	pipeline      PipelineKind
	hw            HardwareConfig
	resolver      RootResolver
	maxIterations int
	log           *logrus.Entry
}

// Option configures the Pass.
type Option func(*Pass)

// WithPipeline sets the tiling pipeline. The default is PipelinePad.
func WithPipeline(k PipelineKind) Option {
	return func(p *Pass) {
		p.pipeline = k
	}
}

// WithHardware sets the target description.
func WithHardware(hw HardwareConfig) Option {
	return func(p *Pass) {
		p.hw = hw
	}
}

// WithRootResolver replaces DefaultRootResolver.
func WithRootResolver(r RootResolver) Option {
	return func(p *Pass) {
		p.resolver = r
	}
}

// WithMaxRewriteIterations bounds the shape-query cleanup.
func WithMaxRewriteIterations(n int) Option {
	return func(p *Pass) {
		p.maxIterations = n
	}
}

// WithLogger sets the logger; the pass adds its own "pass" field.
func WithLogger(log *logrus.Entry) Option {
	return func(p *Pass) {
		p.log = log
	}
}

// NewPass creates a pass with the given options.
func NewPass(opts ...Option) *Pass {
	p := &Pass{
		pipeline:      PipelinePad,
		hw:            DefaultHardwareConfig(),
		resolver:      DefaultRootResolver{},
		maxIterations: ir.DefaultMaxIterations,
		log:           logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithField("pass", PassName)
	return p
}

// Name returns the pass name.
func (p *Pass) Name() string {
	return PassName
}

// Run configures every exported function of m that is not configured yet,
// in module order, then removes shape queries the configuration made
// redundant.
//
// The first failing function aborts the pass. Functions configured before
// it keep their configuration, and the cleanup does not run.
func (p *Pass) Run(m *ir.Module) error {
	for _, fn := range m.Functions {
		log := p.log.WithField("func", fn.Name)
		if m.LookupExport(fn.Name) == nil {
			log.Debug("skipping: not exported")
			continue
		}
		if fn.TranslationInfo() != nil {
			log.Debug("skipping: translation info already set")
			continue
		}
		if len(fn.Blocks) != 1 {
			return errors.Wrapf(ErrUnsupportedControlFlow, "@%s has %d blocks", fn.Name, len(fn.Blocks))
		}
		if err := p.configureFunction(fn, ir.ComputeOps(fn)); err != nil {
			return err
		}
		if info := fn.TranslationInfo(); info != nil {
			log.Debugf("pipeline %s: tile sizes %s", info.PassPipeline, info.TileSizes)
		}
	}

	iters, err := ir.ApplyPatterns(m, ir.ResolveShapeQueryPatterns(), p.maxIterations)
	if err != nil {
		return errors.Wrapf(ErrRewriteFailure, "%v", err)
	}
	p.log.Debugf("shape-query cleanup converged after %d sweeps", iters)
	return nil
}

// configureFunction sets the translation info of fn and the lowering config
// of its root op.
func (p *Pass) configureFunction(fn *ir.Function, computeOps []*ir.Op) error {
	if op, found := lo.Find(computeOps, fn.HasLoweringConfig); found {
		return errors.Wrapf(ErrAlreadyConfigured, "%s: lowering_config is preset", opName(fn, op))
	}

	root, err := p.resolver.ResolveRoot(computeOps)
	if err != nil {
		return errors.WithMessagef(err, "@%s", fn.Name)
	}
	if root == nil {
		return errors.Wrapf(ErrNoRootOperation, "@%s", fn.Name)
	}
	return setRootConfig(fn, root, p.pipeline, p.hw)
}
