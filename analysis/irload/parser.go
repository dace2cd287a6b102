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
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/decompkit/varrec/analysis/ir"
)

// Statement grammar, one statement per string:
//
//	lvalue = expr              assignment
//	store [addr]:N, expr       explicit store of N bytes
//	call f(a, b) -> r0, r1     call, result lvalues optional
//	return a, b                return, values optional
//	if expr                    conditional branch on expr
//	jump                       unconditional branch
//	unknown <mnemonic>         unclassified instruction
//
// Expressions use infix operators (+ - * / & | ^ << >> == != < <=), register
// names as declared by the frame, tN temporaries, decimal or 0x constants,
// and [addr]:N loads. A :N suffix on any operand overrides the word size.
// The keywords above are reserved and cannot name registers.

type parser struct {
	toks   []token
	pos    int
	regIDs map[string]ir.RegID
	wordSz int
}

type token struct {
	kind tokenKind
	text string
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokInt
	tokSym
	tokEOF
)

func parseStmt(text string, regIDs map[string]ir.RegID, wordSize int) (ir.Stmt, error) {
	trimmed := strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(trimmed, "unknown "); ok {
		return &ir.Unknown{Mnemonic: strings.TrimSpace(rest)}, nil
	}
	if trimmed == "unknown" {
		return &ir.Unknown{}, nil
	}

	toks, err := tokenize(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", text, err)
	}
	p := &parser{toks: toks, regIDs: regIDs, wordSz: wordSize}
	stmt, err := p.stmt()
	if err != nil {
		return nil, fmt.Errorf("%q: %w", text, err)
	}
	if !p.at(tokEOF, "") {
		return nil, fmt.Errorf("%q: trailing input at %q", text, p.peek().text)
	}
	return stmt, nil
}

func tokenize(s string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(s) {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c):
			j := i + 1
			for j < len(s) && (isAlnum(rune(s[j]))) {
				j++
			}
			toks = append(toks, token{tokInt, s[i:j]})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i + 1
			for j < len(s) && isAlnum(rune(s[j])) {
				j++
			}
			toks = append(toks, token{tokIdent, s[i:j]})
			i = j
		default:
			// longest-match two-character symbols first
			if i+1 < len(s) {
				two := s[i : i+2]
				switch two {
				case "==", "!=", "<=", "<<", ">>", "->":
					toks = append(toks, token{tokSym, two})
					i += 2
					continue
				}
			}
			switch c {
			case '=', '<', '+', '-', '*', '/', '&', '|', '^', '!', ',', ':', '(', ')', '[', ']':
				toks = append(toks, token{tokSym, string(c)})
				i++
			default:
				return nil, fmt.Errorf("unexpected character %q", c)
			}
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks, nil
}

func isAlnum(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) at(kind tokenKind, text string) bool {
	t := p.peek()
	return t.kind == kind && (text == "" || t.text == text)
}

func (p *parser) accept(text string) bool {
	if p.at(tokSym, text) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(text string) error {
	if !p.accept(text) {
		return fmt.Errorf("expected %q, found %q", text, p.peek().text)
	}
	return nil
}

func (p *parser) stmt() (ir.Stmt, error) {
	if p.at(tokIdent, "") {
		switch p.peek().text {
		case "jump":
			p.next()
			return &ir.Jump{}, nil
		case "return":
			p.next()
			ret := &ir.Return{}
			if p.at(tokEOF, "") {
				return ret, nil
			}
			vals, err := p.exprList()
			if err != nil {
				return nil, err
			}
			ret.Values = vals
			return ret, nil
		case "if":
			p.next()
			cond, err := p.expr()
			if err != nil {
				return nil, err
			}
			return &ir.If{Cond: cond}, nil
		case "call":
			p.next()
			return p.call()
		case "store":
			p.next()
			return p.store()
		}
	}

	dst, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	src, err := p.expr()
	if err != nil {
		return nil, err
	}
	switch dst.(type) {
	case *ir.Reg, *ir.Temp, *ir.Load:
		return &ir.Assign{Dst: dst, Src: src}, nil
	default:
		return nil, fmt.Errorf("assignment destination %s is not an lvalue", ir.FmtExpr(dst))
	}
}

func (p *parser) call() (ir.Stmt, error) {
	callee := ""
	if p.at(tokIdent, "") {
		callee = p.next().text
	}
	c := &ir.Call{Callee: callee}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if !p.accept(")") {
		args, err := p.exprList()
		if err != nil {
			return nil, err
		}
		c.Args = args
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	}
	if p.accept("->") {
		results, err := p.exprList()
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			switch r.(type) {
			case *ir.Reg, *ir.Temp, *ir.Load:
			default:
				return nil, fmt.Errorf("call result %s is not an lvalue", ir.FmtExpr(r))
			}
		}
		c.Results = results
	}
	return c, nil
}

func (p *parser) store() (ir.Stmt, error) {
	dst, err := p.primary()
	if err != nil {
		return nil, err
	}
	load, ok := dst.(*ir.Load)
	if !ok {
		return nil, fmt.Errorf("store destination %s is not a memory operand", ir.FmtExpr(dst))
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	val, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &ir.Store{Addr: load.Addr, Val: val, Size: load.Size}, nil
}

func (p *parser) exprList() ([]ir.Expr, error) {
	var list []ir.Expr
	for {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.accept(",") {
			return list, nil
		}
	}
}

var binaryOps = map[string]ir.BinaryOp{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv,
	"&": ir.OpAnd, "|": ir.OpOr, "^": ir.OpXor,
	"<<": ir.OpShl, ">>": ir.OpShr,
	"==": ir.OpEq, "!=": ir.OpNe, "<": ir.OpLt, "<=": ir.OpLe,
}

// precedence levels, loosest first
var precLevels = [][]string{
	{"==", "!=", "<", "<="},
	{"|", "^"},
	{"&"},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/"},
}

func (p *parser) expr() (ir.Expr, error) {
	return p.binary(0)
}

func (p *parser) binary(level int) (ir.Expr, error) {
	if level >= len(precLevels) {
		return p.unary()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		matched := false
		for _, op := range precLevels[level] {
			if p.at(tokSym, op) {
				p.next()
				right, err := p.binary(level + 1)
				if err != nil {
					return nil, err
				}
				left = &ir.Binary{Op: binaryOps[op], X: left, Y: right, Size: left.SizeBytes()}
				matched = true
				break
			}
		}
		if !matched {
			return left, nil
		}
	}
}

func (p *parser) unary() (ir.Expr, error) {
	if p.accept("-") {
		// constant-fold a negated literal so frame offsets stay constants
		if p.at(tokInt, "") {
			c, err := p.constant()
			if err != nil {
				return nil, err
			}
			c.Value = -c.Value
			return c, nil
		}
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: ir.OpNeg, X: x, Size: x.SizeBytes()}, nil
	}
	if p.accept("!") {
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: ir.OpNot, X: x, Size: x.SizeBytes()}, nil
	}
	return p.primary()
}

func (p *parser) primary() (ir.Expr, error) {
	t := p.peek()
	switch {
	case t.kind == tokInt:
		return p.constant()

	case t.kind == tokIdent:
		p.next()
		size, err := p.sizeSuffix()
		if err != nil {
			return nil, err
		}
		if id, ok := tempID(t.text); ok {
			return &ir.Temp{ID: id, Size: size}, nil
		}
		reg, ok := p.regIDs[t.text]
		if !ok {
			return nil, fmt.Errorf("unknown register %q", t.text)
		}
		return &ir.Reg{ID: reg, Size: size}, nil

	case p.accept("["):
		addr, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		size, err := p.sizeSuffix()
		if err != nil {
			return nil, err
		}
		return &ir.Load{Addr: addr, Size: size}, nil

	case p.accept("("):
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unexpected %q in expression", t.text)
	}
}

func (p *parser) constant() (*ir.Const, error) {
	t := p.next()
	v, err := strconv.ParseInt(t.text, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("bad constant %q", t.text)
	}
	size, err := p.sizeSuffix()
	if err != nil {
		return nil, err
	}
	return &ir.Const{Value: v, Size: size}, nil
}

// sizeSuffix consumes an optional :N width annotation; absent, the word size
// applies.
func (p *parser) sizeSuffix() (int, error) {
	if !p.accept(":") {
		return p.wordSz, nil
	}
	t := p.next()
	if t.kind != tokInt {
		return 0, fmt.Errorf("expected size after ':', found %q", t.text)
	}
	n, err := strconv.Atoi(t.text)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad size %q", t.text)
	}
	return n, nil
}

// tempID recognizes tN temporaries.
func tempID(name string) (ir.TempID, bool) {
	if len(name) < 2 || name[0] != 't' {
		return 0, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil {
		return 0, false
	}
	return ir.TempID(n), true
}
