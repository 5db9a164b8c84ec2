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

// Command aiedispatch shows the AIE tiling configuration chosen for a matmul
// dispatch.
//
// Usage:
//
//	aiedispatch --pipeline pack --num-cores 4 --m 256 --n 256 --k 128
//	aiedispatch --pipeline simple-pack --m 128 --n 128 --k 32 --verbose
//
// The tool builds a one-function module around a matmul of the given sizes,
// runs the lowering-strategy pass and prints the annotated module.
// --num-cores defaults to $AIE_NUM_CORES, or 1.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ajroetker/aiedispatch/ir"
	"github.com/ajroetker/aiedispatch/kerneldispatch"
)

// debugEnv enables debug logging like --verbose.
const debugEnv = "DEBUG_KERNEL_DISPATCH"

type options struct {
	pipeline string
	numCores int
	m, n, k  int64
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "aiedispatch",
		Short:         "Print the AIE tiling configuration of a matmul dispatch",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("num-cores") {
				hw, err := kerneldispatch.HardwareConfigFromEnv()
				if err != nil {
					return err
				}
				opts.numCores = hw.NumCores
			}
			return run(cmd.OutOrStdout(), opts)
		},
	}

	names := lo.Map(kerneldispatch.AvailablePipelines(), func(k kerneldispatch.PipelineKind, _ int) string {
		return k.String()
	})
	f := cmd.Flags()
	f.StringVar(&opts.pipeline, "pipeline", kerneldispatch.PipelinePad.String(), "Tiling pipeline ("+strings.Join(names, ", ")+")")
	f.IntVar(&opts.numCores, "num-cores", kerneldispatch.DefaultHardwareConfig().NumCores, "Number of AIE cores")
	f.Int64Var(&opts.m, "m", 128, "Rows of the result")
	f.Int64Var(&opts.n, "n", 128, "Columns of the result")
	f.Int64Var(&opts.k, "k", 32, "Reduction size")
	f.BoolVarP(&opts.verbose, "verbose", "v", os.Getenv(debugEnv) != "", "Log pass decisions")
	return cmd
}

// buildModule creates a module exporting one matmul dispatch.
func buildModule(m, n, k int64) *ir.Module {
	name := fmt.Sprintf("matmul_%dx%dx%d", m, n, k)
	fn := ir.NewFunction(name)
	b := ir.NewBuilder(fn.AddBlock())
	lhs := b.Load("lhs", m, k)
	rhs := b.Load("rhs", k, n)
	fill := b.Fill(b.Constant(0), b.Empty(m, n))
	mm := b.Matmul(lhs, rhs, fill.Results[0])
	b.Store(mm.Results[0], "out")
	b.Return()

	mod := ir.NewModule("matmul_dispatch")
	mod.AddFunction(fn)
	mod.Export(name)
	return mod
}

func run(w io.Writer, opts *options) error {
	pipeline, err := kerneldispatch.ParsePipelineKind(opts.pipeline)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if opts.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	mod := buildModule(opts.m, opts.n, opts.k)
	pass := kerneldispatch.NewPass(
		kerneldispatch.WithPipeline(pipeline),
		kerneldispatch.WithHardware(kerneldispatch.HardwareConfig{NumCores: opts.numCores}),
		kerneldispatch.WithLogger(logrus.NewEntry(logger)),
	)
	if err := pass.Run(mod); err != nil {
		return err
	}

	title := cases.Title(language.English)
	fmt.Fprintf(w, "Pipeline: %s (%d cores)\n", title.String(strings.ReplaceAll(pipeline.String(), "-", " ")), opts.numCores)
	for _, fn := range mod.Functions {
		if info := fn.TranslationInfo(); info != nil {
			fmt.Fprintf(w, "Tile sizes for @%s: %s\n", fn.Name, info.TileSizes)
		}
	}
	fmt.Fprint(w, mod)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
