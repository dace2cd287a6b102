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
	"io"

	"github.com/decompkit/varrec/analysis/config"
	"github.com/decompkit/varrec/analysis/ir"
)

// Test register layout: sp=0, bp=1, ax=2, bx=3, cx=4, word size 8.
const (
	rSP ir.RegID = iota
	rBP
	rAX
	rBX
	rCX
)

func testFrame() *ir.FrameInfo {
	return &ir.FrameInfo{
		StackReg:     rSP,
		FrameReg:     rBP,
		HasFrameReg:  true,
		RegNames:     map[ir.RegID]string{rSP: "sp", rBP: "bp", rAX: "ax", rBX: "bx", rCX: "cx"},
		ArgRegs:      []ir.RegID{rAX, rBX},
		StackArgBase: 16,
		Signatures: map[string]ir.Signature{
			"memcpy": {Params: []int{8, 8, 8}, Results: []int{8}},
		},
	}
}

func quietLogger() *config.LogGroup {
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.ErrLevel)
	l := config.NewLogGroup(cfg)
	l.SetAllOutput(io.Discard)
	return l
}

func reg(id ir.RegID) *ir.Reg              { return &ir.Reg{ID: id, Size: 8} }
func tmp(id ir.TempID) *ir.Temp            { return &ir.Temp{ID: id, Size: 8} }
func cst(v int64) *ir.Const                { return &ir.Const{Value: v, Size: 8} }
func load(addr ir.Expr, size int) *ir.Load { return &ir.Load{Addr: addr, Size: size} }

func add(x, y ir.Expr) *ir.Binary { return &ir.Binary{Op: ir.OpAdd, X: x, Y: y, Size: 8} }
func sub(x, y ir.Expr) *ir.Binary { return &ir.Binary{Op: ir.OpSub, X: x, Y: y, Size: 8} }
func mul(x, y ir.Expr) *ir.Binary { return &ir.Binary{Op: ir.OpMul, X: x, Y: y, Size: 8} }

func assign(dst, src ir.Expr) *ir.Assign { return &ir.Assign{Dst: dst, Src: src} }

func block(id ir.BlockID, succs []ir.BlockID, stmts ...ir.Stmt) *ir.Block {
	return &ir.Block{ID: id, Succs: succs, Stmts: stmts}
}

func fun(name string, entry ir.BlockID, blocks ...*ir.Block) *ir.Function {
	return &ir.Function{Name: name, Entry: entry, Blocks: blocks}
}

func ref(b ir.BlockID, stmt, sub int) ir.NodeRef {
	return ir.NodeRef{Block: b, Stmt: stmt, Sub: sub}
}
