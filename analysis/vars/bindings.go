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

import "github.com/decompkit/varrec/analysis/ir"

// Binding records the variables attached to one statement or expression
// occurrence: at most one defined variable and the set of input variables a
// pure read resolved to. Absence of a binding for a node is an ordinary,
// expected outcome, never an error.
type Binding struct {
	// Def is the variable defined at this node, or NoVar.
	Def VarID
	// Uses are the input variables this node resolved to.
	Uses VarSet
	// Unresolved marks a node the evaluator recognized but could not resolve
	// (e.g. an unknown statement kind).
	Unresolved bool
}

// BindingTable maps node occurrences to their bindings. Entries are only ever
// added or overwritten across fixpoint iterations, never removed; a later
// rebinding of the same node simply replaces the prior value.
type BindingTable map[ir.NodeRef]Binding

// BindDef records (or overwrites) the variable defined at ref, keeping any
// recorded uses.
func (t BindingTable) BindDef(ref ir.NodeRef, def VarID, uses VarSet) {
	t[ref] = Binding{Def: def, Uses: uses}
}

// BindUses records the input variables ref resolved to.
func (t BindingTable) BindUses(ref ir.NodeRef, uses VarSet) {
	if len(uses) == 0 {
		return
	}
	t[ref] = Binding{Def: NoVar, Uses: uses}
}

// BindUnresolved marks ref as seen but unresolved.
func (t BindingTable) BindUnresolved(ref ir.NodeRef) {
	t[ref] = Binding{Def: NoVar, Unresolved: true}
}

// Get returns the binding for ref, if any.
func (t BindingTable) Get(ref ir.NodeRef) (Binding, bool) {
	b, ok := t[ref]
	return b, ok
}
