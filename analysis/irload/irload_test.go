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

package irload

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decompkit/varrec/analysis/ir"
)

func TestParseProgram(t *testing.T) {
	doc := `
frame:
  registers: [sp, bp, ax, bx]
  stackreg: sp
  framereg: bp
  argregs: [ax, bx]
  stackargbase: 16
signatures:
  memcpy:
    params: [8, 8, 8]
    results: [8]
functions:
  - name: main
    entry: 0
    blocks:
      - id: 0
        succs: [1]
        stmts:
          - "sp = sp - 16"
          - "store [sp + 8]:8, ax"
          - "jump"
      - id: 1
        stmts:
          - "bx = [sp + 8]:8"
          - "return bx"
`
	prog, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.NotNil(t, prog.Frame)

	assert.Equal(t, ir.RegID(0), prog.Frame.StackReg)
	assert.True(t, prog.Frame.HasFrameReg)
	assert.Equal(t, ir.RegID(1), prog.Frame.FrameReg)
	assert.Equal(t, []ir.RegID{2, 3}, prog.Frame.ArgRegs)
	assert.Equal(t, int64(16), prog.Frame.StackArgBase)

	sig, ok := prog.Frame.SignatureOf("memcpy")
	require.True(t, ok)
	assert.Equal(t, []int{8, 8, 8}, sig.Params)

	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "main", fn.Name)
	require.Len(t, fn.Blocks, 2)
	assert.Equal(t, []ir.BlockID{1}, fn.Blocks[0].Succs)
	require.Len(t, fn.Blocks[0].Stmts, 3)

	store, ok := fn.Blocks[0].Stmts[1].(*ir.Store)
	require.True(t, ok, "second statement should be a store")
	assert.Equal(t, 8, store.Size)
	assert.IsType(t, &ir.Binary{}, store.Addr)
	assert.IsType(t, &ir.Reg{}, store.Val)

	ret, ok := fn.Blocks[1].Stmts[1].(*ir.Return)
	require.True(t, ok, "last statement should be a return")
	assert.Len(t, ret.Values, 1)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no registers", `functions: [{name: f, blocks: []}]`},
		{"duplicate register", "frame: {registers: [sp, sp], stackreg: sp}"},
		{"undeclared stack register", "frame: {registers: [ax], stackreg: sp}"},
		{"undeclared arg register", "frame: {registers: [sp], stackreg: sp, argregs: [ax]}"},
		{"bad statement", `
frame: {registers: [sp, ax], stackreg: sp}
functions:
  - name: f
    blocks:
      - id: 0
        stmts: ["ax = = 1"]`},
		{"unknown register in statement", `
frame: {registers: [sp], stackreg: sp}
functions:
  - name: f
    blocks:
      - id: 0
        stmts: ["bx = 1"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	prog, err := LoadFile(filepath.Join("testdata", "sample.yaml"))
	require.NoError(t, err)
	require.Len(t, prog.Functions, 2)
	assert.Equal(t, "sum_array", prog.Functions[0].Name)
	assert.Equal(t, "broken", prog.Functions[1].Name)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "does-not-exist.yaml"))
	assert.Error(t, err)
}
