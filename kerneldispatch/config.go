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
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HardwareConfig describes the accelerator targeted by a compilation.
type HardwareConfig struct {
	// NumCores is the number of AIE cores available to one dispatch.
	NumCores int
}

// DefaultHardwareConfig is a single-core target.
func DefaultHardwareConfig() HardwareConfig {
	return HardwareConfig{NumCores: 1}
}

// NumCoresEnv overrides the default core count when set.
const NumCoresEnv = "AIE_NUM_CORES"

// HardwareConfigFromEnv returns DefaultHardwareConfig with NumCores taken
// from AIE_NUM_CORES if that variable is set.
func HardwareConfigFromEnv() (HardwareConfig, error) {
	cfg := DefaultHardwareConfig()
	val := os.Getenv(NumCoresEnv)
	if val == "" {
		return cfg, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return cfg, errors.Wrapf(err, "parsing %s=%q", NumCoresEnv, val)
	}
	cfg.NumCores = n
	return cfg, nil
}

// PipelineKind selects the tiling strategy applied to the root op.
type PipelineKind int

const (
	// PipelinePad tiles with fixed sizes; operands are padded upstream.
	PipelinePad PipelineKind = iota

	// PipelineSimplePack derives single-core tiles from the matmul shape.
	PipelineSimplePack

	// PipelinePack spreads N across the core grid; operands are packed
	// upstream.
	PipelinePack

	// PipelineUnhandled has no tiling policy.
	PipelineUnhandled
)

// String returns the flag spelling of the pipeline.
func (k PipelineKind) String() string {
	switch k {
	case PipelinePad:
		return "pad"
	case PipelineSimplePack:
		return "simple-pack"
	case PipelinePack:
		return "pack"
	case PipelineUnhandled:
		return "unhandled"
	default:
		return fmt.Sprintf("PipelineKind(%d)", k)
	}
}

// AvailablePipelines lists the pipelines that have a tiling policy.
func AvailablePipelines() []PipelineKind {
	return []PipelineKind{PipelinePad, PipelineSimplePack, PipelinePack}
}

// ParsePipelineKind parses a pipeline name as printed by String,
// ignoring case. "simple_pack" and "simplepack" are accepted as well.
func ParsePipelineKind(s string) (PipelineKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pad":
		return PipelinePad, nil
	case "simple-pack", "simple_pack", "simplepack":
		return PipelineSimplePack, nil
	case "pack":
		return PipelinePack, nil
	default:
		return PipelineUnhandled, errors.Wrapf(ErrUnsupportedPipeline, "unknown pipeline %q", s)
	}
}
