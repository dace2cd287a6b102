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

package ir

import "fmt"

// NodeRef is the stable identity of a statement or expression occurrence:
// the owning block, the statement index within the block, and the
// sub-position within the statement. Sub is 0 for the statement itself and
// 1 + the preorder position for expression occurrences.
type NodeRef struct {
	Block BlockID
	Stmt  int
	Sub   int
}

func (r NodeRef) String() string {
	return fmt.Sprintf("b%d.%d.%d", r.Block, r.Stmt, r.Sub)
}

// FuncIndex is the validated index of one function: block lookup by id, block
// ordering, and the NodeRef assigned to every statement and expression
// occurrence. Building the index is the structural validation step; an error
// here is the only fatal condition of the variable recovery analysis.
type FuncIndex struct {
	Fn *Function

	blockOf map[BlockID]*Block
	order   map[BlockID]int
	refs    map[Node]NodeRef
}

// IndexFunction validates fn's block graph and numbers every node occurrence.
// The returned error reports the first structural violation found: a duplicate
// block id, a missing entry block, a successor reference to a nonexistent
// block, or a malformed statement.
func IndexFunction(fn *Function) (*FuncIndex, error) {
	ix := &FuncIndex{
		Fn:      fn,
		blockOf: make(map[BlockID]*Block, len(fn.Blocks)),
		order:   make(map[BlockID]int, len(fn.Blocks)),
		refs:    make(map[Node]NodeRef),
	}
	for i, block := range fn.Blocks {
		if block == nil {
			return nil, fmt.Errorf("function %s: block at position %d is nil", fn.Name, i)
		}
		if _, dup := ix.blockOf[block.ID]; dup {
			return nil, fmt.Errorf("function %s: duplicate block id %d", fn.Name, block.ID)
		}
		ix.blockOf[block.ID] = block
		ix.order[block.ID] = i
	}
	if len(fn.Blocks) > 0 {
		if _, ok := ix.blockOf[fn.Entry]; !ok {
			return nil, fmt.Errorf("function %s: entry block %d does not exist", fn.Name, fn.Entry)
		}
	}
	for _, block := range fn.Blocks {
		for _, succ := range block.Succs {
			if _, ok := ix.blockOf[succ]; !ok {
				return nil, fmt.Errorf("function %s: block %d references nonexistent successor %d",
					fn.Name, block.ID, succ)
			}
		}
		for i, stmt := range block.Stmts {
			if stmt == nil {
				return nil, fmt.Errorf("function %s: block %d statement %d is nil", fn.Name, block.ID, i)
			}
			if err := ix.number(block.ID, i, stmt); err != nil {
				return nil, fmt.Errorf("function %s: block %d statement %d: %w", fn.Name, block.ID, i, err)
			}
		}
	}
	return ix, nil
}

// number assigns refs to the statement and all its expression occurrences.
func (ix *FuncIndex) number(b BlockID, stmtIndex int, stmt Stmt) error {
	ix.refs[stmt] = NodeRef{Block: b, Stmt: stmtIndex, Sub: 0}
	sub := 1
	for _, operand := range StmtExprs(stmt) {
		if operand == nil {
			return fmt.Errorf("nil operand in %s", FmtStmt(stmt))
		}
		var walkErr error
		WalkExpr(operand, func(e Expr) {
			ix.refs[e] = NodeRef{Block: b, Stmt: stmtIndex, Sub: sub}
			sub++
			switch e := e.(type) {
			case *Load:
				if e.Addr == nil {
					walkErr = fmt.Errorf("load with nil address in %s", FmtStmt(stmt))
				}
			case *Unary:
				if e.X == nil {
					walkErr = fmt.Errorf("unary %s with nil operand in %s", e.Op, FmtStmt(stmt))
				}
			case *Binary:
				if e.X == nil || e.Y == nil {
					walkErr = fmt.Errorf("binary %s with nil operand in %s", e.Op, FmtStmt(stmt))
				}
			}
		})
		if walkErr != nil {
			return walkErr
		}
	}
	if assign, ok := stmt.(*Assign); ok {
		switch assign.Dst.(type) {
		case *Reg, *Temp, *Load:
		default:
			return fmt.Errorf("assignment destination %s is not an lvalue", FmtExpr(assign.Dst))
		}
	}
	return nil
}

// Block returns the block with the given id.
func (ix *FuncIndex) Block(id BlockID) (*Block, bool) {
	b, ok := ix.blockOf[id]
	return b, ok
}

// Ref returns the NodeRef assigned to the node occurrence, if the node belongs
// to the indexed function.
func (ix *FuncIndex) Ref(n Node) (NodeRef, bool) {
	r, ok := ix.refs[n]
	return r, ok
}

// MustRef is Ref for nodes known to belong to the function. It panics
// otherwise, which indicates a bug in the caller, not bad input.
func (ix *FuncIndex) MustRef(n Node) NodeRef {
	r, ok := ix.refs[n]
	if !ok {
		panic(fmt.Sprintf("node not in function %s", ix.Fn.Name))
	}
	return r
}

// BlockOrder returns the position of the block in the function's block list.
func (ix *FuncIndex) BlockOrder(id BlockID) int {
	return ix.order[id]
}

// RefLess orders refs by block position, then statement index, then
// sub-position. Used for deterministic representative selection.
func (ix *FuncIndex) RefLess(a, b NodeRef) bool {
	if ix.order[a.Block] != ix.order[b.Block] {
		return ix.order[a.Block] < ix.order[b.Block]
	}
	if a.Stmt != b.Stmt {
		return a.Stmt < b.Stmt
	}
	return a.Sub < b.Sub
}
