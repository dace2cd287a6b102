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

import "fmt"

// Relation enumerates the kinds of typing obligations recorded against an SSA
// variable. The downstream solver merges constraints across each unified
// variable's equivalence class; this engine only records them.
type Relation int8

const (
	// RelEqualsType relates two variables that must share a type.
	RelEqualsType Relation = iota
	// RelResultOf marks the variable as the result of an operation.
	RelResultOf
	// RelHasSize fixes the variable's size in bytes.
	RelHasSize
	// RelPointerTo marks the variable as a pointer to a value of the given size.
	RelPointerTo
	// RelArrayOf marks the variable as the base of an array with the given
	// element size.
	RelArrayOf
	// RelCallSignature relates the variable to a parameter slot of a callee's
	// known signature.
	RelCallSignature
)

func (r Relation) String() string {
	switch r {
	case RelEqualsType:
		return "equals-type-of"
	case RelResultOf:
		return "result-of-operation"
	case RelHasSize:
		return "has-size"
	case RelPointerTo:
		return "is-pointer-to"
	case RelArrayOf:
		return "is-array-of"
	case RelCallSignature:
		return "call-signature"
	default:
		return "invalid"
	}
}

// Constraint is one (variable, relation, operand) record. Which operand
// fields are meaningful depends on the relation; the rest stay zero. Pure
// data, no behavior.
type Constraint struct {
	Var      VarID
	Relation Relation

	// OtherVar is the second variable of RelEqualsType.
	OtherVar VarID
	// Size is the byte size for RelHasSize, the pointee size for
	// RelPointerTo, the element size for RelArrayOf and the parameter size
	// for RelCallSignature.
	Size int
	// Op is the operation name for RelResultOf.
	Op string
	// Callee and Index identify the parameter slot for RelCallSignature.
	Callee string
	Index  int
}

func (c Constraint) String() string {
	switch c.Relation {
	case RelEqualsType:
		return fmt.Sprintf("v%d %s v%d", c.Var, c.Relation, c.OtherVar)
	case RelResultOf:
		return fmt.Sprintf("v%d %s %s", c.Var, c.Relation, c.Op)
	case RelCallSignature:
		return fmt.Sprintf("v%d %s %s#%d<%d>", c.Var, c.Relation, c.Callee, c.Index, c.Size)
	default:
		return fmt.Sprintf("v%d %s %d", c.Var, c.Relation, c.Size)
	}
}

// ConstraintSet is the append-only sink for constraints produced during
// evaluation. It performs no validation and no solving, and does not depend
// on unification having run.
type ConstraintSet struct {
	constraints []Constraint
}

// Emit appends a constraint record.
func (cs *ConstraintSet) Emit(c Constraint) {
	cs.constraints = append(cs.constraints, c)
}

// All returns the recorded constraints in emission order.
func (cs *ConstraintSet) All() []Constraint {
	return cs.constraints
}

// Len returns the number of recorded constraints.
func (cs *ConstraintSet) Len() int {
	return len(cs.constraints)
}
