// Copyright The varrec Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vars

import (
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/decompkit/varrec/analysis/config"
	"github.com/decompkit/varrec/analysis/ir"
	"github.com/decompkit/varrec/internal/funcutil"
)

// ProgramResult aggregates the per-function results of one analysis run.
type ProgramResult struct {
	// RunID identifies this run in logs and reports.
	RunID     uuid.UUID
	Functions map[string]*FuncResult
	Time      time.Duration
}

// Failed returns the names of functions whose analysis failed.
func (r *ProgramResult) Failed() []string {
	var names []string
	for name, fr := range r.Functions {
		if fr.Status == StatusFailed {
			names = append(names, name)
		}
	}
	return names
}

// AnalyzeProgram analyzes every function of the program that matches the
// configured filter. Functions are independent: each owns its variable space,
// so they run in parallel and a failure in one never contaminates another.
func AnalyzeProgram(cfg *config.Config, logger *config.LogGroup, prog *ir.Program) *ProgramResult {
	start := time.Now()
	res := &ProgramResult{
		RunID:     uuid.New(),
		Functions: map[string]*FuncResult{},
	}

	var targets []*ir.Function
	for _, fn := range prog.Functions {
		if cfg.MatchFuncFilter(fn.Name) {
			targets = append(targets, fn)
		} else {
			logger.Debugf("skipping %s (filtered)", fn.Name)
		}
	}

	workers := cfg.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger.Infof("run %s: analyzing %d function(s) with %d worker(s)",
		res.RunID, len(targets), workers)

	results := funcutil.MapParallel(targets, func(fn *ir.Function) *FuncResult {
		return AnalyzeFunction(cfg, logger, prog.Frame, fn)
	}, workers)

	for _, fr := range results {
		res.Functions[fr.Name] = fr
	}
	res.Time = time.Since(start)
	return res
}
