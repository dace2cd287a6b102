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
	"fmt"
	"time"

	"golang.org/x/tools/container/intsets"

	"github.com/decompkit/varrec/analysis/config"
	"github.com/decompkit/varrec/analysis/ir"
	"github.com/decompkit/varrec/internal/graphutil"
)

// Status is the lifecycle state of a per-function analysis.
type Status int

const (
	// StatusRunning marks an analysis in flight.
	StatusRunning Status = iota
	// StatusConverged marks an analysis that reached a fixpoint.
	StatusConverged
	// StatusDegraded marks an analysis that hit the iteration ceiling before
	// converging. Results computed so far are retained and usable.
	StatusDegraded
	// StatusFailed marks an analysis rejected because the function's control
	// flow graph is structurally invalid. No results are produced.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusConverged:
		return "converged"
	case StatusDegraded:
		return "degraded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// FuncResult is the outcome of analyzing one function. When Status is
// StatusFailed only Name, Status and Err are meaningful; a degraded result
// carries every binding, constraint and unified variable computed before the
// ceiling was hit.
type FuncResult struct {
	Name   string
	Status Status
	Err    error

	Bindings    BindingTable
	Constraints []Constraint
	Unified     *UnifyResult

	// BlockVisits counts every block evaluation performed, including
	// re-visits during fixpoint iteration.
	BlockVisits int
	Time        time.Duration

	alloc *Allocator
	ix    *ir.FuncIndex
}

// NumVars returns the number of SSA variables allocated for the function.
func (r *FuncResult) NumVars() int {
	if r.alloc == nil {
		return 0
	}
	return r.alloc.NumVars()
}

// Var returns the SSA variable record for an id produced by this function's
// analysis.
func (r *FuncResult) Var(id VarID) SSAVar {
	return r.alloc.Var(id)
}

// AnalyzeFunction runs the variable recovery analysis on a single function to
// fixpoint. It is safe to call concurrently for distinct functions: every
// result owns its variable space and tables.
func AnalyzeFunction(cfg *config.Config, logger *config.LogGroup, frame *ir.FrameInfo, fn *ir.Function) *FuncResult {
	start := time.Now()
	res := &FuncResult{Name: fn.Name, Status: StatusRunning}
	defer func() { res.Time = time.Since(start) }()

	ix, err := ir.IndexFunction(fn)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("function %s: %w", fn.Name, err)
		logger.Errorf("%s: structurally invalid: %s", fn.Name, err)
		return res
	}
	res.ix = ix

	ev := newEvaluator(ix, frame, logger)
	maxVisits := cfg.MaxBlockVisits
	if maxVisits <= 0 {
		maxVisits = config.DefaultMaxBlockVisits
	}

	// One in-state per block, bottom everywhere except the entry.
	inStates := make(map[ir.BlockID]*AbstractState, len(fn.Blocks))
	for _, b := range fn.Blocks {
		inStates[b.ID] = newEmptyState()
	}
	inStates[fn.Entry] = NewEntryState()

	visits := make(map[ir.BlockID]int, len(fn.Blocks))
	worklist := []ir.BlockID{fn.Entry}
	var queued intsets.Sparse
	queued.Insert(ix.BlockOrder(fn.Entry))

	degraded := false
	var degradedAt ir.BlockID
	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		queued.Remove(ix.BlockOrder(id))

		visits[id]++
		res.BlockVisits++
		if visits[id] > maxVisits {
			degraded = true
			degradedAt = id
			break
		}

		block, _ := ix.Block(id)
		logger.Tracef("%s: visit b%d (pass %d)", fn.Name, id, visits[id])
		out := inStates[id].Copy()
		ev.processBlock(block, out)

		for _, succ := range block.Succs {
			if inStates[succ].JoinFrom(out) {
				if pos := ix.BlockOrder(succ); !queued.Has(pos) {
					queued.Insert(pos)
					worklist = append(worklist, succ)
				}
			}
		}
	}

	if degraded {
		res.Status = StatusDegraded
		logger.Warnf("%s: no fixpoint after %d visits of b%d, keeping partial results",
			fn.Name, maxVisits, degradedAt)
		if cfg.ReportDegradedCycles {
			reportCycles(logger, ix, fn, degradedAt)
		}
	} else {
		res.Status = StatusConverged
		logger.Debugf("%s: converged after %d block visits", fn.Name, res.BlockVisits)
	}

	res.Bindings = ev.bindings
	res.Constraints = ev.constraints.All()
	res.alloc = ev.alloc
	res.Unified = Unify(ix, ev.alloc)
	markParams(res.Unified, ev, frame)
	return res
}

// markParams flags canonical variables observed as incoming arguments: reads
// that preceded any definition, in an argument register or in the caller's
// stack-argument area.
func markParams(u *UnifyResult, ev *evaluator, frame *ir.FrameInfo) {
	isArgReg := map[int64]bool{}
	for _, r := range frame.ArgRegs {
		isArgReg[int64(r)] = true
	}
	for _, id := range ev.reads {
		st := ev.alloc.Var(id).Storage
		switch st.Kind {
		case RegisterVar:
			if isArgReg[st.ID] {
				u.Lookup(id).Param = true
			}
		case StackVar:
			if st.Off >= frame.StackArgBase {
				u.Lookup(id).Param = true
			}
		}
	}
}

// reportCycles names the elementary cycles through the block that failed to
// stabilize, which is usually enough to spot the offending loop.
func reportCycles(logger *config.LogGroup, ix *ir.FuncIndex, fn *ir.Function, at ir.BlockID) {
	cg := graphutil.NewCFGIterator(fn)
	cycles := graphutil.CyclesThrough(cg, int64(ix.BlockOrder(at)))
	if len(cycles) == 0 {
		logger.Warnf("%s: b%d is not on any cycle", fn.Name, at)
		return
	}
	for _, cyc := range cycles {
		blocks := make([]ir.BlockID, 0, len(cyc))
		for _, pos := range cyc {
			blocks = append(blocks, fn.Blocks[pos].ID)
		}
		logger.Warnf("%s: unstable cycle through blocks %v", fn.Name, blocks)
	}
}
