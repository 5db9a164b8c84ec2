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

// RootResolver picks the op that anchors the lowering decisions of a
// function.
type RootResolver interface {
	// ResolveRoot returns the root among computeOps, nil if there is none,
	// or an error if the ops cannot be resolved.
	ResolveRoot(computeOps []*ir.Op) (*ir.Op, error)
}

// RootResolverFunc adapts a function to RootResolver.
type RootResolverFunc func(computeOps []*ir.Op) (*ir.Op, error)

// ResolveRoot calls f.
func (f RootResolverFunc) ResolveRoot(computeOps []*ir.Op) (*ir.Op, error) {
	return f(computeOps)
}

// DefaultRootResolver scans the compute ops from last to first and picks:
//  1. a structured op with at least one reduction loop, or any other
//     tiling op that is not pad/pack/unpack;
//  2. otherwise the last structured op (all parallel, e.g. elementwise);
//  3. otherwise the last pad/pack/unpack.
type DefaultRootResolver struct{}

// ResolveRoot implements RootResolver.
func (DefaultRootResolver) ResolveRoot(computeOps []*ir.Op) (*ir.Op, error) {
	for _, op := range computeOps {
		if !op.Kind.IsCompute() {
			return nil, errors.Errorf("cannot resolve root: %s#%d is not a compute op", op.Kind, op.ID)
		}
	}

	if root := findLast(computeOps, func(op *ir.Op) bool {
		if op.Kind.IsStructured() {
			return !op.IsAllParallel()
		}
		return !op.Kind.IsDataLayout()
	}); root != nil {
		return root, nil
	}
	if root := findLast(computeOps, func(op *ir.Op) bool {
		return op.Kind.IsStructured()
	}); root != nil {
		return root, nil
	}
	return findLast(computeOps, func(op *ir.Op) bool {
		return op.Kind.IsDataLayout()
	}), nil
}

func findLast(ops []*ir.Op, pred func(*ir.Op) bool) *ir.Op {
	for i := len(ops) - 1; i >= 0; i-- {
		if pred(ops[i]) {
			return ops[i]
		}
	}
	return nil
}
