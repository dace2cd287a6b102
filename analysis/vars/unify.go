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
	"sort"

	"github.com/decompkit/varrec/analysis/ir"
)

// UnifiedVar is a canonical recovered variable: an equivalence class of SSA
// variables that occupy the same storage.
type UnifiedVar struct {
	// Canon is the class representative, the member with the earliest
	// definition site in block order.
	Canon   VarID
	Kind    VarKind
	Members VarSet

	// Off and Size describe the merged frame window for stack classes; zero
	// for register and temp classes.
	Off  int64
	Size int

	// Conflicted marks a stack class merged from non-identical windows:
	// unequal access sizes at one offset, nested windows, or partial
	// overlaps. Typically a reused slot or a wrong frame layout guess; the
	// class is still usable, the size conflict is the solver's to settle.
	Conflicted bool

	// Param marks a class observed as flowing in from the caller: a member
	// was read before any definition, in argument-convention storage.
	Param bool
}

// UnifyResult maps every SSA variable of a function to its canonical class.
// Lookup is total over the ids allocated by the analysis.
type UnifyResult struct {
	parent  []VarID
	byRoot  map[VarID]*UnifiedVar
	classes []*UnifiedVar
}

// Unify partitions the allocated SSA variables by storage signature: all
// variables of one register unify, all variables of one temp unify, and stack
// variables unify when their frame windows overlap. Unification is pure
// bookkeeping over the allocator; it never touches the dataflow state, so it
// applies equally to converged and degraded results.
func Unify(ix *ir.FuncIndex, alloc *Allocator) *UnifyResult {
	n := alloc.NumVars()
	u := &UnifyResult{
		parent: make([]VarID, n),
		byRoot: map[VarID]*UnifiedVar{},
	}
	for i := range u.parent {
		u.parent[i] = VarID(i)
	}

	regClasses := map[int64][]VarID{}
	tempClasses := map[int64][]VarID{}
	type window struct {
		id   VarID
		off  int64
		size int
	}
	var stackVars []window

	for _, v := range alloc.All() {
		switch v.Kind {
		case RegisterVar:
			regClasses[v.Storage.ID] = append(regClasses[v.Storage.ID], v.ID)
		case TempVar:
			tempClasses[v.Storage.ID] = append(tempClasses[v.Storage.ID], v.ID)
		case StackVar:
			stackVars = append(stackVars, window{id: v.ID, off: v.Storage.Off, size: v.Storage.Size})
		}
	}

	for _, ids := range regClasses {
		u.unionAll(ids)
	}
	for _, ids := range tempClasses {
		u.unionAll(ids)
	}

	// Stack windows: sort by offset and sweep, unioning every window that
	// overlaps the one being grown. Merging any window that is not identical
	// to the extent grown so far taints the class: the members disagree on
	// the slot's size or placement.
	sort.Slice(stackVars, func(i, j int) bool {
		if stackVars[i].off != stackVars[j].off {
			return stackVars[i].off < stackVars[j].off
		}
		return stackVars[i].size < stackVars[j].size
	})
	conflicted := map[VarID]bool{}
	var lo, hi int64
	cur := NoVar
	for _, w := range stackVars {
		end := w.off + int64(w.size)
		if cur == NoVar || w.off >= hi {
			cur, lo, hi = w.id, w.off, end
			continue
		}
		// Overlap with the current window.
		if w.off != lo || end != hi {
			conflicted[u.find(cur)] = true
		}
		u.union(cur, w.id)
		if end > hi {
			hi = end
		}
	}
	// re-key conflict flags after all unions settle
	settled := map[VarID]bool{}
	for root := range conflicted {
		settled[u.find(root)] = true
	}

	// Build the classes. The representative is the member whose allocation
	// site comes first in block order, which keeps reports deterministic.
	members := map[VarID]VarSet{}
	for _, v := range alloc.All() {
		root := u.find(v.ID)
		set := members[root]
		set.Insert(v.ID)
		members[root] = set
	}
	for root, set := range members {
		canon := root
		for _, id := range set {
			if ix.RefLess(alloc.Var(id).Site, alloc.Var(canon).Site) {
				canon = id
			}
		}
		cv := alloc.Var(canon)
		uv := &UnifiedVar{
			Canon:      canon,
			Kind:       cv.Kind,
			Members:    set,
			Conflicted: settled[root],
		}
		if cv.Kind == StackVar {
			first := true
			var start, end int64
			for _, id := range set {
				st := alloc.Var(id).Storage
				if first || st.Off < start {
					start = st.Off
				}
				if e := st.Off + int64(st.Size); first || e > end {
					end = e
				}
				first = false
			}
			uv.Off = start
			uv.Size = int(end - start)
		}
		u.byRoot[root] = uv
	}

	u.classes = make([]*UnifiedVar, 0, len(u.byRoot))
	for _, uv := range u.byRoot {
		u.classes = append(u.classes, uv)
	}
	sort.Slice(u.classes, func(i, j int) bool { return u.classes[i].Canon < u.classes[j].Canon })
	return u
}

// Lookup returns the canonical class of an SSA variable. It is total: every
// id the allocator handed out maps to exactly one class.
func (u *UnifyResult) Lookup(id VarID) *UnifiedVar {
	return u.byRoot[u.find(id)]
}

// Classes returns every canonical variable, ordered by representative id.
func (u *UnifyResult) Classes() []*UnifiedVar {
	return u.classes
}

// NumClasses returns the number of canonical variables.
func (u *UnifyResult) NumClasses() int {
	return len(u.classes)
}

func (u *UnifyResult) find(id VarID) VarID {
	for u.parent[id] != id {
		u.parent[id] = u.parent[u.parent[id]]
		id = u.parent[id]
	}
	return id
}

func (u *UnifyResult) union(a, b VarID) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

func (u *UnifyResult) unionAll(ids []VarID) {
	for i := 1; i < len(ids); i++ {
		u.union(ids[0], ids[i])
	}
}
