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

// A StmtOp must implement methods for ALL possible statement kinds. Because
// the kind set is closed, a missing handler is a compile error rather than a
// silent fallthrough.
type StmtOp interface {
	DoAssign(*Assign)
	DoStore(*Store)
	DoCall(*Call)
	DoReturn(*Return)
	DoIf(*If)
	DoJump(*Jump)
	DoUnknown(*Unknown)
}

// StmtSwitch is mainly a map from the different statement kinds to the methods
// of the visitor.
func StmtSwitch(visitor StmtOp, stmt Stmt) {
	switch stmt := stmt.(type) {
	case *Assign:
		visitor.DoAssign(stmt)
	case *Store:
		visitor.DoStore(stmt)
	case *Call:
		visitor.DoCall(stmt)
	case *Return:
		visitor.DoReturn(stmt)
	case *If:
		visitor.DoIf(stmt)
	case *Jump:
		visitor.DoJump(stmt)
	case *Unknown:
		visitor.DoUnknown(stmt)
	default:
		panic(stmt)
	}
}

// WalkExpr visits e and all its sub-expressions in preorder.
func WalkExpr(e Expr, visit func(Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch e := e.(type) {
	case *Load:
		WalkExpr(e.Addr, visit)
	case *Unary:
		WalkExpr(e.X, visit)
	case *Binary:
		WalkExpr(e.X, visit)
		WalkExpr(e.Y, visit)
	}
}

// StmtExprs returns the direct expression operands of a statement, in
// occurrence order.
func StmtExprs(s Stmt) []Expr {
	switch s := s.(type) {
	case *Assign:
		return []Expr{s.Dst, s.Src}
	case *Store:
		return []Expr{s.Addr, s.Val}
	case *Call:
		exprs := make([]Expr, 0, len(s.Args)+len(s.Results))
		exprs = append(exprs, s.Args...)
		exprs = append(exprs, s.Results...)
		return exprs
	case *Return:
		return s.Values
	case *If:
		return []Expr{s.Cond}
	default:
		return nil
	}
}

// IterateStmts applies f to every statement in the function, in block then
// statement order.
func IterateStmts(fn *Function, f func(block *Block, index int, stmt Stmt)) {
	for _, block := range fn.Blocks {
		for i, stmt := range block.Stmts {
			f(block, i, stmt)
		}
	}
}

// LastStmt returns the last statement in a block, or nil for an empty block.
func LastStmt(block *Block) Stmt {
	if len(block.Stmts) == 0 {
		return nil
	}
	return block.Stmts[len(block.Stmts)-1]
}
