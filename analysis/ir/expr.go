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

// Expr is the interface implemented by all expression kinds. Like statements,
// the set of expression kinds is closed.
type Expr interface {
	Node
	isExpr()
	// SizeBytes is the width of the value this expression produces, in bytes.
	SizeBytes() int
}

// BinaryOp enumerates binary operators in the lifted representation.
type BinaryOp string

const (
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
	OpDiv BinaryOp = "div"
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
	OpXor BinaryOp = "xor"
	OpShl BinaryOp = "shl"
	OpShr BinaryOp = "shr"
	OpEq  BinaryOp = "eq"
	OpNe  BinaryOp = "ne"
	OpLt  BinaryOp = "lt"
	OpLe  BinaryOp = "le"
)

// UnaryOp enumerates unary operators in the lifted representation.
type UnaryOp string

const (
	OpNeg UnaryOp = "neg"
	OpNot UnaryOp = "not"
)

// Const is an immediate value.
type Const struct {
	Value int64
	Size  int
}

// Reg reads or designates a machine register.
type Reg struct {
	ID   RegID
	Size int
}

// Temp reads or designates a lifter-introduced temporary.
type Temp struct {
	ID   TempID
	Size int
}

// Load reads Size bytes of memory at the location denoted by Addr. As an
// assignment destination, Load designates a store through that address.
type Load struct {
	Addr Expr
	Size int
}

// Unary applies Op to X.
type Unary struct {
	Op   UnaryOp
	X    Expr
	Size int
}

// Binary applies Op to X and Y.
type Binary struct {
	Op   BinaryOp
	X    Expr
	Y    Expr
	Size int
}

func (*Const) irNode()  {}
func (*Reg) irNode()    {}
func (*Temp) irNode()   {}
func (*Load) irNode()   {}
func (*Unary) irNode()  {}
func (*Binary) irNode() {}

func (*Const) isExpr()  {}
func (*Reg) isExpr()    {}
func (*Temp) isExpr()   {}
func (*Load) isExpr()   {}
func (*Unary) isExpr()  {}
func (*Binary) isExpr() {}

func (e *Const) SizeBytes() int  { return e.Size }
func (e *Reg) SizeBytes() int    { return e.Size }
func (e *Temp) SizeBytes() int   { return e.Size }
func (e *Load) SizeBytes() int   { return e.Size }
func (e *Unary) SizeBytes() int  { return e.Size }
func (e *Binary) SizeBytes() int { return e.Size }

// FmtExpr returns a compact string form of the expression for diagnostics.
func FmtExpr(e Expr) string {
	switch e := e.(type) {
	case *Const:
		return fmt.Sprintf("%d", e.Value)
	case *Reg:
		return fmt.Sprintf("r%d", e.ID)
	case *Temp:
		return fmt.Sprintf("t%d", e.ID)
	case *Load:
		return fmt.Sprintf("*(%s)<%d>", FmtExpr(e.Addr), e.Size)
	case *Unary:
		return fmt.Sprintf("%s(%s)", e.Op, FmtExpr(e.X))
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", FmtExpr(e.X), e.Op, FmtExpr(e.Y))
	default:
		return fmt.Sprintf("%T", e)
	}
}
