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
	"testing"

	"github.com/decompkit/varrec/analysis/ir"
)

var testRegs = map[string]ir.RegID{"sp": 0, "bp": 1, "ax": 2, "bx": 3}

func mustParse(t *testing.T, text string) ir.Stmt {
	t.Helper()
	stmt, err := parseStmt(text, testRegs, 8)
	if err != nil {
		t.Fatalf("parse %q: %v", text, err)
	}
	return stmt
}

func TestParseStmtForms(t *testing.T) {
	tests := []struct {
		text string
		want string // FmtStmt form
	}{
		{"ax = 1", "[r2 = 1]"},
		{"ax = bx + 1", "[r2 = (r3 add 1)]"},
		{"t0 = ax * bx", "[t0 = (r2 mul r3)]"},
		{"sp = sp - 16", "[r0 = (r0 sub 16)]"},
		{"ax = [sp + 8]:4", "[r2 = *((r0 add 8))<4>]"},
		{"[bp - 8]:8 = ax", "[*((r1 sub 8))<8> = r2]"},
		{"store [sp]:8, ax", "[*(r0)<8> = r2]"},
		{"ax = -5", "[r2 = -5]"},
		{"ax = !bx", "[r2 = not(r3)]"},
		{"ax = bx + t1 * 8", "[r2 = (r3 add (t1 mul 8))]"},
		{"ax = (bx + 1) * 2", "[r2 = ((r3 add 1) mul 2)]"},
		{"if ax <= 10", "[if (r2 le 10)]"},
		{"jump", "[jump]"},
		{"return", "[return/0]"},
		{"return ax, bx", "[return/2]"},
		{"call memcpy(ax, bx)", "[call memcpy/2]"},
		{"call memcpy(ax) -> bx", "[call memcpy/1]"},
		{"unknown prefetchnta", `[unknown "prefetchnta"]`},
		{"ax = 0x10", "[r2 = 16]"},
		{"ax:4 = bx:4", "[r2 = r3]"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			stmt := mustParse(t, tt.text)
			if got := ir.FmtStmt(stmt); got != tt.want {
				t.Errorf("parse %q = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestParsePrecedence(t *testing.T) {
	// multiplication binds tighter than addition, comparison loosest
	stmt := mustParse(t, "if ax + bx * 8 < 100")
	cond := stmt.(*ir.If).Cond.(*ir.Binary)
	if cond.Op != ir.OpLt {
		t.Fatalf("top operator should be lt, got %s", cond.Op)
	}
	sum := cond.X.(*ir.Binary)
	if sum.Op != ir.OpAdd {
		t.Fatalf("left of lt should be add, got %s", sum.Op)
	}
	if prod := sum.Y.(*ir.Binary); prod.Op != ir.OpMul {
		t.Fatalf("right of add should be mul, got %s", prod.Op)
	}
}

func TestParseCallResults(t *testing.T) {
	stmt := mustParse(t, "call memcpy(ax, bx, 8) -> ax, [sp]:8")
	call := stmt.(*ir.Call)
	if call.Callee != "memcpy" || len(call.Args) != 3 || len(call.Results) != 2 {
		t.Fatalf("unexpected call shape: %s", ir.FmtStmt(stmt))
	}
	if _, ok := call.Results[1].(*ir.Load); !ok {
		t.Errorf("memory call result should parse as a load")
	}
}

func TestParseSizes(t *testing.T) {
	stmt := mustParse(t, "ax:4 = [sp + 8]:2")
	a := stmt.(*ir.Assign)
	if a.Dst.SizeBytes() != 4 {
		t.Errorf("destination size = %d, want 4", a.Dst.SizeBytes())
	}
	if a.Src.SizeBytes() != 2 {
		t.Errorf("load size = %d, want 2", a.Src.SizeBytes())
	}
	if mustParse(t, "ax = bx").(*ir.Assign).Src.SizeBytes() != 8 {
		t.Errorf("word size should apply when no suffix is given")
	}
}

func TestParseStmtErrors(t *testing.T) {
	tests := []string{
		"ax",                 // no assignment
		"1 = ax",             // constant is not an lvalue
		"ax + bx = 1",        // compound is not an lvalue
		"ax = zz",            // unknown register
		"ax = [sp",           // unterminated load
		"ax = 1 +",           // dangling operator
		"store ax, 1",        // store needs a memory operand
		"call memcpy(ax",     // unterminated args
		"call memcpy() -> 1", // constant call result
		"ax = 1 extra",       // trailing input
		"ax = 1 @ 2",         // bad character
		"ax = bx:zz",         // bad size suffix
	}
	for _, text := range tests {
		if _, err := parseStmt(text, testRegs, 8); err == nil {
			t.Errorf("parse %q should fail", text)
		}
	}
}
