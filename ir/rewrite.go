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
	"slices"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultMaxIterations bounds ApplyPatterns when no limit is given.
const DefaultMaxIterations = 10

// ErrNoFixpoint is returned when rewriting has not converged within the
// iteration limit.
var ErrNoFixpoint = errors.New("rewrite did not converge")

// RewritePattern defines a local rewrite of a single op.
type RewritePattern struct {
	// Name identifies this pattern for debugging.
	Name string

	// Priority determines application order (higher = tried first).
	Priority int

	// Match checks if this pattern applies to op.
	Match func(op *Op, uses UseMap) bool

	// Rewrite performs the transformation. It must change the IR whenever
	// Match returned true, otherwise the driver never reaches a fixpoint.
	Rewrite func(rw *Rewriter, op *Op) error
}

// Rewriter gives patterns mutation access to the function being rewritten.
type Rewriter struct {
	fn *Function
}

// Function returns the function being rewritten.
func (rw *Rewriter) Function() *Function {
	return rw.fn
}

// BuilderBefore returns a builder inserting in front of op.
func (rw *Rewriter) BuilderBefore(op *Op) *Builder {
	return NewBuilder(op.block, WithInsertionPoint(op))
}

// ReplaceOp redirects all uses of op's single result to v and erases op.
func (rw *Rewriter) ReplaceOp(op *Op, v *Value) {
	rw.fn.ReplaceAllUsesWith(op.Results[0], v)
	rw.EraseOp(op)
}

// EraseOp removes op from its block.
func (rw *Rewriter) EraseOp(op *Op) {
	if op.block != nil {
		op.block.Erase(op)
	}
}

// ApplyPatterns rewrites every function of m with patterns until no pattern
// matches anywhere. It returns the number of sweeps performed, or
// ErrNoFixpoint if the module is still changing after maxIterations sweeps.
// A maxIterations <= 0 uses DefaultMaxIterations.
func ApplyPatterns(m *Module, patterns []RewritePattern, maxIterations int) (int, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	// Sort patterns by priority (descending), keeping declaration order
	// for ties.
	rules := slices.Clone(patterns)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})

	log := logrus.WithField("component", "rewrite")
	for iter := 1; iter <= maxIterations; iter++ {
		changed := false
		for _, fn := range m.Functions {
			n, err := applyOnce(fn, rules)
			if err != nil {
				return iter, errors.WithMessagef(err, "rewriting @%s", fn.Name)
			}
			if n > 0 {
				log.Debugf("sweep %d: @%s: %d rewrites", iter, fn.Name, n)
				changed = true
			}
		}
		if !changed {
			return iter, nil
		}
	}
	return maxIterations, errors.Wrapf(ErrNoFixpoint, "module @%s after %d iterations", m.Name, maxIterations)
}

// applyOnce walks fn once, applying the first matching pattern to each op.
func applyOnce(fn *Function, rules []RewritePattern) (int, error) {
	rw := &Rewriter{fn: fn}
	uses := Analyze(fn)
	count := 0
	for _, op := range fn.Ops() {
		// Skip ops erased earlier in this sweep.
		if op.block == nil {
			continue
		}
		for _, rule := range rules {
			if !rule.Match(op, uses) {
				continue
			}
			if err := rule.Rewrite(rw, op); err != nil {
				return count, errors.WithMessagef(err, "pattern %s on %s#%d", rule.Name, op.Kind, op.ID)
			}
			count++
			uses = Analyze(fn)
			break
		}
	}
	return count, nil
}
