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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decompkit/varrec/analysis/config"
	"github.com/decompkit/varrec/analysis/ir"
)

func TestAnalyzeProgramIsolatesFailures(t *testing.T) {
	good := fun("good", 0,
		block(0, nil, assign(reg(rAX), cst(1)), &ir.Return{Values: []ir.Expr{reg(rAX)}}),
	)
	bad := fun("bad", 0, block(0, []ir.BlockID{99}, &ir.Jump{}))
	prog := &ir.Program{Frame: testFrame(), Functions: []*ir.Function{good, bad}}

	res := AnalyzeProgram(config.NewDefault(), quietLogger(), prog)
	require.Len(t, res.Functions, 2)
	assert.Equal(t, StatusConverged, res.Functions["good"].Status)
	assert.Equal(t, StatusFailed, res.Functions["bad"].Status)
	assert.Equal(t, []string{"bad"}, res.Failed())
	assert.NotEqual(t, uuid.Nil, res.RunID)
}

func TestAnalyzeProgramAppliesFuncFilter(t *testing.T) {
	keep := fun("keep_me", 0, block(0, nil, &ir.Return{}))
	drop := fun("drop_me", 0, block(0, nil, &ir.Return{}))
	prog := &ir.Program{Frame: testFrame(), Functions: []*ir.Function{keep, drop}}

	cfg := config.NewDefault()
	require.NoError(t, cfg.SetFuncFilter("^keep"))
	res := AnalyzeProgram(cfg, quietLogger(), prog)
	assert.Len(t, res.Functions, 1)
	assert.Contains(t, res.Functions, "keep_me")
}

func TestAnalyzeProgramParallel(t *testing.T) {
	var fns []*ir.Function
	for i := 0; i < 32; i++ {
		fns = append(fns, fun(string(rune('a'+i%26))+"_fn", 0,
			block(0, nil, assign(reg(rAX), cst(int64(i))), &ir.Return{Values: []ir.Expr{reg(rAX)}}),
		))
	}
	// names must be unique for the result map
	for i, fn := range fns {
		fn.Name = fn.Name + "_" + string(rune('0'+i/26))
	}
	cfg := config.NewDefault()
	cfg.NumWorkers = 4
	res := AnalyzeProgram(cfg, quietLogger(), &ir.Program{Frame: testFrame(), Functions: fns})
	require.Len(t, res.Functions, len(fns))
	for name, fr := range res.Functions {
		assert.Equalf(t, StatusConverged, fr.Status, "function %s", name)
		assert.Equalf(t, 1, fr.NumVars(), "function %s owns its variable space", name)
	}
}
