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
	"fmt"

	"github.com/pkg/errors"

	"github.com/ajroetker/aiedispatch/ir"
)

// Error kinds reported by the pass; use errors.Is to classify. Errors from a
// custom RootResolver are passed through unchanged.
var (
	// ErrAlreadyConfigured: an op or function already carries configuration.
	ErrAlreadyConfigured = ir.ErrAlreadyConfigured

	// ErrUnsupportedStructure: the root op's loops or shapes cannot be tiled.
	ErrUnsupportedStructure = errors.New("unsupported op structure")

	// ErrUnsupportedPipeline: unknown pipeline, or a pipeline precondition
	// such as the core count does not hold.
	ErrUnsupportedPipeline = errors.New("unsupported pipeline")

	// ErrNoRootOperation: the function has no root op.
	ErrNoRootOperation = errors.New("case with no root ops not yet supported")

	// ErrUnsupportedControlFlow: the function body is empty or has more
	// than one block.
	ErrUnsupportedControlFlow = errors.New("unhandled translation of function with multiple blocks")

	// ErrRewriteFailure: the shape-query cleanup failed or did not converge.
	ErrRewriteFailure = errors.New("shape-query cleanup failed")
)

// opName renders an op reference for error messages.
func opName(fn *ir.Function, op *ir.Op) string {
	return fmt.Sprintf("'%s' op #%d in @%s", op.Kind, op.ID, fn.Name)
}
