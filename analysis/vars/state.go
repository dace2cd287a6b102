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
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/decompkit/varrec/internal/funcutil"
)

// VarSet is a sorted set of variable ids. The zero value is the empty set.
type VarSet []VarID

// Insert adds id to the set and reports whether the set changed.
// @mutates s
func (s *VarSet) Insert(id VarID) bool {
	i := sort.Search(len(*s), func(i int) bool { return (*s)[i] >= id })
	if i < len(*s) && (*s)[i] == id {
		return false
	}
	*s = append(*s, 0)
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = id
	return true
}

// UnionWith adds all elements of other and reports whether the set changed.
// @mutates s
func (s *VarSet) UnionWith(other VarSet) bool {
	changed := false
	for _, id := range other {
		if s.Insert(id) {
			changed = true
		}
	}
	return changed
}

// Contains returns true when id is in the set.
func (s VarSet) Contains(id VarID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Equal returns true when both sets hold the same ids.
func (s VarSet) Equal(other VarSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i, id := range s {
		if other[i] != id {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s VarSet) Clone() VarSet {
	if s == nil {
		return nil
	}
	c := make(VarSet, len(s))
	copy(c, s)
	return c
}

// Single returns the only element when the set has exactly one, or NoVar.
func (s VarSet) Single() VarID {
	if len(s) == 1 {
		return s[0]
	}
	return NoVar
}

// String renders the set as [v0 v1 ...].
func (s VarSet) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "v%d", id)
	}
	b.WriteByte(']')
	return b.String()
}

// AbstractState maps storage locations to the SSA variables currently bound
// there at a program point, and tracks the stack-pointer delta relative to
// the frame base at function entry. One instance exists per block boundary;
// states are owned by a single function analysis and mutated only by the
// evaluator while that block is processed.
//
// The join used at control-flow merges is pointwise set union plus delta
// widening. Because definition sites memoize their allocated variable, the
// variable space is finite and the join is monotone, commutative, associative
// and idempotent, which guarantees fixpoint termination.
type AbstractState struct {
	locs map[StorageKey]VarSet

	// delta is the stack-pointer displacement from the frame base.
	// Only meaningful while deltaKnown is true; a join of diverging deltas
	// widens to unknown and stack accesses stop being staticizable.
	delta      int64
	deltaKnown bool

	// deltaUnset marks the bottom delta of a state no path has reached yet;
	// it contributes nothing to a join.
	deltaUnset bool
}

// NewEntryState returns the initial state of an entry block: no storage bound,
// stack-pointer delta zero.
func NewEntryState() *AbstractState {
	return &AbstractState{
		locs:       map[StorageKey]VarSet{},
		deltaKnown: true,
	}
}

// newEmptyState returns a bottom state, suitable as the accumulator for a
// join over predecessor out-states.
func newEmptyState() *AbstractState {
	return &AbstractState{locs: map[StorageKey]VarSet{}, deltaKnown: true, deltaUnset: true}
}

// Copy returns an independent copy of the state.
func (s *AbstractState) Copy() *AbstractState {
	c := &AbstractState{
		locs:       make(map[StorageKey]VarSet, len(s.locs)),
		delta:      s.delta,
		deltaKnown: s.deltaKnown,
		deltaUnset: s.deltaUnset,
	}
	for k, v := range s.locs {
		c.locs[k] = v.Clone()
	}
	return c
}

// Get returns the variables bound at the storage location.
func (s *AbstractState) Get(key StorageKey) (VarSet, bool) {
	v, ok := s.locs[key]
	return v, ok
}

// SetVar strongly updates the storage location with a single variable. Used at
// definition sites: the new definition replaces any prior binding.
func (s *AbstractState) SetVar(key StorageKey, id VarID) {
	s.locs[key] = VarSet{id}
}

// AddVar weakly adds a variable at the storage location, used when a prior
// value variable is materialized on first read.
func (s *AbstractState) AddVar(key StorageKey, id VarID) {
	set := s.locs[key].Clone()
	set.Insert(id)
	s.locs[key] = set
}

// Delta returns the stack-pointer delta and whether it is known.
func (s *AbstractState) Delta() (int64, bool) {
	return s.delta, s.deltaKnown && !s.deltaUnset
}

// SetDelta sets a known stack-pointer delta.
func (s *AbstractState) SetDelta(d int64) {
	s.delta = d
	s.deltaKnown = true
	s.deltaUnset = false
}

// ForgetDelta widens the stack-pointer delta to unknown.
func (s *AbstractState) ForgetDelta() {
	s.deltaKnown = false
	s.deltaUnset = false
}

// JoinFrom joins other into s and reports whether s changed. The join is the
// pointwise union of location bindings; deltas agree or widen to unknown.
// @mutates s
func (s *AbstractState) JoinFrom(other *AbstractState) bool {
	if other == nil {
		return false
	}
	changed := false
	for key, vs := range other.locs {
		cur, ok := s.locs[key]
		if !ok {
			s.locs[key] = vs.Clone()
			changed = true
			continue
		}
		merged := cur.Clone()
		if merged.UnionWith(vs) {
			s.locs[key] = merged
			changed = true
		}
	}

	// Delta widening: two different known deltas join to unknown, and unknown
	// absorbs everything.
	switch {
	case other.deltaUnset:
		// bottom contributes nothing
	case s.deltaUnset:
		s.delta = other.delta
		s.deltaKnown = other.deltaKnown
		s.deltaUnset = false
		changed = true
	case !other.deltaKnown && s.deltaKnown:
		s.deltaKnown = false
		changed = true
	case other.deltaKnown && s.deltaKnown && other.delta != s.delta:
		s.deltaKnown = false
		changed = true
	}
	return changed
}

// Equal returns true when both states bind the same variables at the same
// locations with the same delta.
func (s *AbstractState) Equal(other *AbstractState) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.locs) != len(other.locs) {
		return false
	}
	if s.deltaKnown != other.deltaKnown || s.deltaUnset != other.deltaUnset {
		return false
	}
	if s.deltaKnown && !s.deltaUnset && s.delta != other.delta {
		return false
	}
	for key, vs := range s.locs {
		ovs, ok := other.locs[key]
		if !ok || !vs.Equal(ovs) {
			return false
		}
	}
	return true
}

// Show pretty-prints the state, one line per bound location, in a
// deterministic order.
func (s *AbstractState) Show(w io.Writer) {
	keys := map[string]bool{}
	byRepr := map[string]StorageKey{}
	for k := range s.locs {
		repr := k.String()
		keys[repr] = true
		byRepr[repr] = k
	}
	for _, repr := range funcutil.SetToOrderedSlice(keys) {
		fmt.Fprintf(w, "  %s -> %v\n", repr, s.locs[byRepr[repr]])
	}
	if d, ok := s.Delta(); ok {
		fmt.Fprintf(w, "  sp-delta = %d\n", d)
	} else {
		fmt.Fprintf(w, "  sp-delta = ?\n")
	}
}
