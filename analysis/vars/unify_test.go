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

	"github.com/decompkit/varrec/analysis/ir"
)

// unifyFixture indexes a function with enough statements to give distinct
// allocation sites, then lets the caller allocate variables by hand.
func unifyFixture(t *testing.T, numSites int) (*ir.FuncIndex, *Allocator, []ir.NodeRef) {
	t.Helper()
	stmts := make([]ir.Stmt, numSites)
	for i := range stmts {
		stmts[i] = &ir.Jump{}
	}
	b := &ir.Block{ID: 0, Stmts: stmts}
	ix, err := ir.IndexFunction(&ir.Function{Name: "fixture", Entry: 0, Blocks: []*ir.Block{b}})
	if err != nil {
		t.Fatalf("indexing fixture: %v", err)
	}
	refs := make([]ir.NodeRef, numSites)
	for i := range refs {
		refs[i] = ref(0, i, 0)
	}
	return ix, NewAllocator(), refs
}

func TestUnifyStackWindows(t *testing.T) {
	tests := []struct {
		name       string
		windows    [][2]int64 // offset, size
		classes    int
		conflicted bool
	}{
		{"disjoint", [][2]int64{{-16, 8}, {0, 8}}, 2, false},
		{"identical", [][2]int64{{-16, 8}, {-16, 8}}, 1, false},
		{"unequal size, same base", [][2]int64{{-8, 4}, {-8, 8}}, 1, true},
		{"nested", [][2]int64{{-16, 16}, {-12, 4}}, 1, true},
		{"partial overlap", [][2]int64{{-16, 8}, {-12, 8}}, 1, true},
		{"chained overlap", [][2]int64{{-24, 8}, {-20, 8}, {-16, 8}}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, alloc, refs := unifyFixture(t, len(tt.windows))
			for i, w := range tt.windows {
				key := StackKey(w[0], int(w[1]))
				alloc.Alloc(StackVar, key, refs[i], int(w[1]))
			}
			u := Unify(ix, alloc)
			if u.NumClasses() != tt.classes {
				t.Fatalf("expected %d classes, got %d", tt.classes, u.NumClasses())
			}
			if tt.classes == 1 {
				uv := u.Lookup(0)
				if uv.Conflicted != tt.conflicted {
					t.Errorf("conflicted = %v, expected %v", uv.Conflicted, tt.conflicted)
				}
			}
		})
	}
}

// A narrow write and a wide read of the same slot merge into the widest
// covering window, and the size disagreement is flagged, not dropped.
func TestUnifyUnequalSizesFlagConflict(t *testing.T) {
	ix, alloc, refs := unifyFixture(t, 2)
	alloc.Alloc(StackVar, StackKey(-8, 4), refs[0], 4)
	alloc.Alloc(StackVar, StackKey(-8, 8), refs[1], 8)
	u := Unify(ix, alloc)
	if u.NumClasses() != 1 {
		t.Fatalf("expected 1 class, got %d", u.NumClasses())
	}
	uv := u.Lookup(0)
	if uv.Off != -8 || uv.Size != 8 {
		t.Errorf("expected merged window stack[-8:8], got stack[%d:%d]", uv.Off, uv.Size)
	}
	if !uv.Conflicted {
		t.Errorf("overlapping accesses of unequal size must flag a conflict")
	}
}

func TestUnifyMergedWindowExtent(t *testing.T) {
	ix, alloc, refs := unifyFixture(t, 2)
	alloc.Alloc(StackVar, StackKey(-16, 8), refs[0], 8)
	alloc.Alloc(StackVar, StackKey(-12, 8), refs[1], 8)
	u := Unify(ix, alloc)
	uv := u.Lookup(0)
	if uv.Off != -16 || uv.Size != 12 {
		t.Errorf("expected merged window stack[-16:12], got stack[%d:%d]", uv.Off, uv.Size)
	}
}

func TestUnifyRepresentativeIsEarliestSite(t *testing.T) {
	ix, alloc, refs := unifyFixture(t, 3)
	// allocate out of site order; the canonical member must still be the one
	// defined earliest
	late := alloc.Alloc(RegisterVar, RegKey(rAX), refs[2], 8)
	early := alloc.Alloc(RegisterVar, RegKey(rAX), refs[0], 8)
	mid := alloc.Alloc(RegisterVar, RegKey(rAX), refs[1], 8)
	u := Unify(ix, alloc)
	uv := u.Lookup(late)
	if uv.Canon != early {
		t.Errorf("expected canonical v%d, got v%d", early, uv.Canon)
	}
	if u.Lookup(mid) != uv || u.Lookup(early) != uv {
		t.Errorf("members of one class should share the same lookup result")
	}
}

func TestUnifyLookupIsTotalAndIdempotent(t *testing.T) {
	ix, alloc, refs := unifyFixture(t, 4)
	alloc.Alloc(RegisterVar, RegKey(rAX), refs[0], 8)
	alloc.Alloc(RegisterVar, RegKey(rAX), refs[1], 8)
	alloc.Alloc(TempVar, TempKey(7), refs[2], 8)
	alloc.Alloc(StackVar, StackKey(-8, 8), refs[3], 8)

	u := Unify(ix, alloc)
	for _, v := range alloc.All() {
		uv := u.Lookup(v.ID)
		if uv == nil {
			t.Fatalf("lookup of v%d returned nil", v.ID)
		}
		if again := u.Lookup(v.ID); again != uv {
			t.Errorf("repeated lookup of v%d disagrees", v.ID)
		}
		if !uv.Members.Contains(v.ID) {
			t.Errorf("v%d is missing from its own class", v.ID)
		}
	}
	if u.NumClasses() != 3 {
		t.Errorf("expected 3 classes, got %d", u.NumClasses())
	}
}

// Every variable id appearing in a result's bindings and constraints must
// resolve to a canonical variable.
func TestResultResolvesEveryVariable(t *testing.T) {
	fn := fun("f", 0,
		block(0, []ir.BlockID{1, 2}, assign(reg(rAX), cst(1)), &ir.If{Cond: reg(rAX)}),
		block(1, []ir.BlockID{3}, assign(reg(rBX), reg(rAX)), &ir.Jump{}),
		block(2, []ir.BlockID{3}, assign(reg(rBX), cst(0)), &ir.Jump{}),
		block(3, nil, &ir.Return{Values: []ir.Expr{reg(rBX)}}),
	)
	res := analyze(t, fn)
	if res.Status != StatusConverged {
		t.Fatalf("expected converged, got %s (%v)", res.Status, res.Err)
	}
	check := func(id VarID) {
		if id == NoVar {
			return
		}
		if res.Unified.Lookup(id) == nil {
			t.Errorf("v%d has no canonical variable", id)
		}
	}
	for _, b := range res.Bindings {
		check(b.Def)
		for _, id := range b.Uses {
			check(id)
		}
	}
	for _, c := range res.Constraints {
		check(c.Var)
		if c.Relation == RelEqualsType {
			check(c.OtherVar)
		}
	}
}

func TestUnifyTempsDoNotCrossIDs(t *testing.T) {
	ix, alloc, refs := unifyFixture(t, 3)
	a := alloc.Alloc(TempVar, TempKey(1), refs[0], 8)
	b := alloc.Alloc(TempVar, TempKey(1), refs[1], 8)
	c := alloc.Alloc(TempVar, TempKey(2), refs[2], 8)
	u := Unify(ix, alloc)
	if u.Lookup(a) != u.Lookup(b) {
		t.Errorf("variables of one temp should unify")
	}
	if u.Lookup(a) == u.Lookup(c) {
		t.Errorf("distinct temps must not unify")
	}
}
