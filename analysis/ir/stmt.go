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

// Node is implemented by every statement and expression. Node occurrences are
// identified by a NodeRef assigned during function indexing, never by value
// equality: two structurally identical nodes at different positions are
// distinct occurrences.
type Node interface {
	irNode()
}

// Stmt is the interface implemented by all statement kinds. The set of
// statement kinds is closed; analyses dispatch over it with StmtSwitch.
type Stmt interface {
	Node
	isStmt()
}

// Assign evaluates Src and writes the result to the storage location denoted
// by Dst. Dst must be a Reg, a Temp, or a Load (a store through an address).
type Assign struct {
	Dst Expr
	Src Expr
}

// Store writes Val to the memory location denoted by Addr. Size is the access
// width in bytes.
type Store struct {
	Addr Expr
	Val  Expr
	Size int
}

// Call invokes Callee with Args. Results lists the lvalues receiving the
// call's results, when the lifter recovered them. Callee may be empty for
// indirect calls that could not be resolved.
type Call struct {
	Callee  string
	Args    []Expr
	Results []Expr
}

// Return exits the function, yielding Values.
type Return struct {
	Values []Expr
}

// If transfers control to the block's first successor when Cond is nonzero
// and to the second successor otherwise.
type If struct {
	Cond Expr
}

// Jump transfers control to the block's single successor.
type Jump struct{}

// Unknown is a statement the lifter could not classify. The analysis treats
// it as a no-op with an unresolved binding.
type Unknown struct {
	Mnemonic string
}

func (*Assign) irNode()  {}
func (*Store) irNode()   {}
func (*Call) irNode()    {}
func (*Return) irNode()  {}
func (*If) irNode()      {}
func (*Jump) irNode()    {}
func (*Unknown) irNode() {}

func (*Assign) isStmt()  {}
func (*Store) isStmt()   {}
func (*Call) isStmt()    {}
func (*Return) isStmt()  {}
func (*If) isStmt()      {}
func (*Jump) isStmt()    {}
func (*Unknown) isStmt() {}

// FmtStmt returns a string showing the statement kind and operands.
// This is used mostly for debugging and logging.
func FmtStmt(s Stmt) string {
	switch s := s.(type) {
	case *Assign:
		return fmt.Sprintf("[%s = %s]", FmtExpr(s.Dst), FmtExpr(s.Src))
	case *Store:
		return fmt.Sprintf("[*(%s)<%d> = %s]", FmtExpr(s.Addr), s.Size, FmtExpr(s.Val))
	case *Call:
		return fmt.Sprintf("[call %s/%d]", s.Callee, len(s.Args))
	case *Return:
		return fmt.Sprintf("[return/%d]", len(s.Values))
	case *If:
		return fmt.Sprintf("[if %s]", FmtExpr(s.Cond))
	case *Jump:
		return "[jump]"
	case *Unknown:
		return fmt.Sprintf("[unknown %q]", s.Mnemonic)
	default:
		return fmt.Sprintf("[%T]", s)
	}
}
