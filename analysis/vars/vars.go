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

// Package vars implements the variable recovery analysis: a forward dataflow
// analysis assigning an SSA variable identity to every register, stack-slot
// and temporary access of a lifted function, followed by a unification pass
// that folds equivalent identities into canonical variables and a constraint
// stream handed to the downstream type solver.
//
// The analysis runs to a fixpoint over the function's control-flow graph
// using a worklist driver (driver.go). Transfer functions are defined per
// statement kind in eval.go over the abstract state of state.go. Variable
// identities are minted by the allocator below and reconciled only after the
// fixpoint, in unify.go.
package vars

import (
	"fmt"

	"github.com/decompkit/varrec/analysis/ir"
)

// VarID identifies an SSA variable within one function analysis. Ids are
// indices into the owning allocator and are never shared across functions.
type VarID int32

// NoVar is the absent variable id.
const NoVar VarID = -1

// VarKind classifies the storage a variable lives in.
type VarKind int8

const (
	// RegisterVar is a variable held in a machine register.
	RegisterVar VarKind = iota
	// StackVar is a variable held in a frame slot.
	StackVar
	// TempVar is a variable held in a lifter temporary.
	TempVar
)

func (k VarKind) String() string {
	switch k {
	case RegisterVar:
		return "register"
	case StackVar:
		return "stack"
	case TempVar:
		return "temp"
	default:
		return "invalid"
	}
}

// StorageKey identifies a storage location in the abstract state. For
// register and temporary storage only Kind and ID are meaningful; for stack
// storage the key is the frame-relative offset together with the access size,
// so two accesses at the same offset with different sizes are distinct keys.
// Reconciliation across sizes happens during unification, not here.
type StorageKey struct {
	Kind VarKind
	ID   int64 // register or temporary id
	Off  int64 // frame-relative offset, stack keys only
	Size int   // access size in bytes, stack keys only
}

// RegKey returns the storage key for a register.
func RegKey(r ir.RegID) StorageKey {
	return StorageKey{Kind: RegisterVar, ID: int64(r)}
}

// TempKey returns the storage key for a temporary.
func TempKey(t ir.TempID) StorageKey {
	return StorageKey{Kind: TempVar, ID: int64(t)}
}

// StackKey returns the storage key for a frame slot access.
func StackKey(off int64, size int) StorageKey {
	return StorageKey{Kind: StackVar, Off: off, Size: size}
}

func (k StorageKey) String() string {
	switch k.Kind {
	case StackVar:
		return fmt.Sprintf("stack[%d:%d]", k.Off, k.Size)
	case TempVar:
		return fmt.Sprintf("t%d", k.ID)
	default:
		return fmt.Sprintf("r%d", k.ID)
	}
}

// SSAVar is an immutable SSA variable identity. Two variables are never equal
// unless they were returned by the same allocation call; the allocator never
// deduplicates.
type SSAVar struct {
	ID      VarID
	Kind    VarKind
	Storage StorageKey
	// Site is the statement or expression occurrence that defines this
	// variable (for unknown-prior-value variables, the first read).
	Site ir.NodeRef
	// Size is the access size in bytes.
	Size int
}

func (v SSAVar) String() string {
	return fmt.Sprintf("v%d{%s@%s}", v.ID, v.Storage, v.Site)
}

// Allocator mints SSA variable identities for one function analysis. It is
// purely additive: variables are never mutated or destroyed during the run,
// and the allocator is never shared across function analyses.
type Allocator struct {
	vars []SSAVar
}

// NewAllocator returns an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Alloc returns a fresh, distinct variable identity. It never reuses an id,
// even for repeated calls with identical arguments: deduplication is the
// caller's concern (the evaluator memoizes definition sites).
func (a *Allocator) Alloc(kind VarKind, storage StorageKey, site ir.NodeRef, size int) VarID {
	id := VarID(len(a.vars))
	a.vars = append(a.vars, SSAVar{
		ID:      id,
		Kind:    kind,
		Storage: storage,
		Site:    site,
		Size:    size,
	})
	return id
}

// Var returns the variable with the given id.
func (a *Allocator) Var(id VarID) SSAVar {
	return a.vars[id]
}

// NumVars returns the number of allocated variables.
func (a *Allocator) NumVars() int {
	return len(a.vars)
}

// All returns the allocated variables in allocation order. The returned slice
// is the allocator's backing store and must not be modified.
func (a *Allocator) All() []SSAVar {
	return a.vars
}
