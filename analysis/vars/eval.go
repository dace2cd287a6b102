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
	"github.com/decompkit/varrec/analysis/config"
	"github.com/decompkit/varrec/analysis/ir"
)

// evaluator implements the transfer functions of the analysis: it maps
// (statement, in-state) to an updated state while populating the binding
// table and the constraint stream. It implements ir.StmtOp so that statement
// dispatch is exhaustive over the closed kind set.
//
// The evaluator never fails on unresolved data. A storage location that
// cannot be resolved statically simply produces no binding; structural
// problems are caught earlier, when the function is indexed.
type evaluator struct {
	ix     *ir.FuncIndex
	frame  *ir.FrameInfo
	logger *config.LogGroup

	alloc       *Allocator
	bindings    BindingTable
	constraints *ConstraintSet

	// defs memoizes the variable allocated for each (site, storage) pair so
	// that revisiting a block during fixpoint iteration never re-allocates:
	// a site defines at most one variable per storage location.
	defs map[siteKey]VarID

	// reads memoizes the "unknown prior value" variable allocated at the
	// first read of a location no definition has reached.
	reads map[siteKey]VarID

	// cur is the working state of the block being processed. Owned by the
	// driver; the evaluator is its only mutator during the visit.
	cur *AbstractState
}

type siteKey struct {
	site    ir.NodeRef
	storage StorageKey
}

func newEvaluator(ix *ir.FuncIndex, frame *ir.FrameInfo, logger *config.LogGroup) *evaluator {
	return &evaluator{
		ix:          ix,
		frame:       frame,
		logger:      logger,
		alloc:       NewAllocator(),
		bindings:    BindingTable{},
		constraints: &ConstraintSet{},
		defs:        map[siteKey]VarID{},
		reads:       map[siteKey]VarID{},
	}
}

// processBlock runs every statement of the block against state, mutating it
// into the block's out-state.
func (e *evaluator) processBlock(block *ir.Block, state *AbstractState) {
	e.cur = state
	for _, stmt := range block.Stmts {
		ir.StmtSwitch(e, stmt)
	}
	e.cur = nil
}

// defineAt returns the variable defined at site for the storage location,
// allocating it on the first visit only.
func (e *evaluator) defineAt(site ir.NodeRef, key StorageKey, size int) VarID {
	sk := siteKey{site: site, storage: key}
	if v, ok := e.defs[sk]; ok {
		return v
	}
	v := e.alloc.Alloc(key.Kind, key, site, size)
	e.defs[sk] = v
	return v
}

// readLoc resolves a read of the storage location in the current state,
// materializing an unknown-prior-value variable on the first read of a
// location no definition has reached.
func (e *evaluator) readLoc(site ir.NodeRef, key StorageKey, size int) VarSet {
	if set, ok := e.cur.Get(key); ok && len(set) > 0 {
		return set.Clone()
	}
	sk := siteKey{site: site, storage: key}
	v, ok := e.reads[sk]
	if !ok {
		v = e.alloc.Alloc(key.Kind, key, site, size)
		e.reads[sk] = v
	}
	e.cur.AddVar(key, v)
	return VarSet{v}
}

// isFramePointer reports whether the register is the stack pointer or the
// frame-base register. Frame pointers are address-computation machinery, not
// recovered variables.
func (e *evaluator) isFramePointer(r ir.RegID) bool {
	if r == e.frame.StackReg {
		return true
	}
	return e.frame.HasFrameReg && r == e.frame.FrameReg
}

// staticize resolves an address expression to a frame-relative offset using
// the current stack-pointer delta. Addresses that cannot be expressed as
// frame base ± constant are not staticizable.
func (e *evaluator) staticize(x ir.Expr) (int64, bool) {
	switch x := x.(type) {
	case *ir.Reg:
		if x.ID == e.frame.StackReg {
			return e.cur.Delta()
		}
		if e.frame.HasFrameReg && x.ID == e.frame.FrameReg {
			// The frame register holds the frame base for the whole body.
			return 0, true
		}
		return 0, false
	case *ir.Binary:
		if c, ok := x.Y.(*ir.Const); ok {
			if base, okb := e.staticize(x.X); okb {
				switch x.Op {
				case ir.OpAdd:
					return base + c.Value, true
				case ir.OpSub:
					return base - c.Value, true
				}
			}
		}
		if c, ok := x.X.(*ir.Const); ok && x.Op == ir.OpAdd {
			if base, okb := e.staticize(x.Y); okb {
				return base + c.Value, true
			}
		}
		return 0, false
	default:
		return 0, false
	}
}

// resolveLValue resolves an assignment destination to its storage key. Load
// destinations are stores through an address; their operands are still
// evaluated for uses and constraints even when the address cannot be
// staticized.
func (e *evaluator) resolveLValue(dst ir.Expr) (StorageKey, int, bool) {
	switch dst := dst.(type) {
	case *ir.Reg:
		if e.isFramePointer(dst.ID) {
			return StorageKey{}, 0, false
		}
		return RegKey(dst.ID), dst.Size, true
	case *ir.Temp:
		return TempKey(dst.ID), dst.Size, true
	case *ir.Load:
		addrUses := e.evalExpr(dst.Addr)
		off, ok := e.staticize(dst.Addr)
		if !ok {
			if v := addrUses.Single(); v != NoVar {
				e.constraints.Emit(Constraint{Var: v, Relation: RelPointerTo, Size: dst.Size})
			}
			return StorageKey{}, 0, false
		}
		return StackKey(off, dst.Size), dst.Size, true
	default:
		return StorageKey{}, 0, false
	}
}

// evalExpr recursively resolves an expression to the set of input variables
// it reads, binding each resolved occurrence and emitting the constraints the
// operation implies. Constants and frame pointers resolve to the empty set.
func (e *evaluator) evalExpr(x ir.Expr) VarSet {
	switch x := x.(type) {
	case *ir.Const:
		return nil

	case *ir.Reg:
		if e.isFramePointer(x.ID) {
			return nil
		}
		ref := e.ix.MustRef(x)
		set := e.readLoc(ref, RegKey(x.ID), x.Size)
		e.bindings.BindUses(ref, set)
		return set

	case *ir.Temp:
		ref := e.ix.MustRef(x)
		set := e.readLoc(ref, TempKey(x.ID), x.Size)
		e.bindings.BindUses(ref, set)
		return set

	case *ir.Load:
		addrUses := e.evalExpr(x.Addr)
		ref := e.ix.MustRef(x)
		if off, ok := e.staticize(x.Addr); ok {
			set := e.readLoc(ref, StackKey(off, x.Size), x.Size)
			// A dereference constrains the loaded variable's size to the
			// access width.
			for _, v := range set {
				e.constraints.Emit(Constraint{Var: v, Relation: RelHasSize, Size: x.Size})
			}
			e.bindings.BindUses(ref, set)
			return set
		}
		// Not frame-relative: constrain the pointer and leave the read
		// unbound. This is the ordinary recoverable case.
		if v := addrUses.Single(); v != NoVar {
			e.constraints.Emit(Constraint{Var: v, Relation: RelPointerTo, Size: x.Size})
		}
		return nil

	case *ir.Unary:
		set := e.evalExpr(x.X)
		ref := e.ix.MustRef(x)
		e.bindings.BindUses(ref, set)
		return set

	case *ir.Binary:
		xs := e.evalExpr(x.X)
		ys := e.evalExpr(x.Y)
		e.emitBinaryConstraints(x, xs, ys)
		set := xs.Clone()
		set.UnionWith(ys)
		ref := e.ix.MustRef(x)
		e.bindings.BindUses(ref, set)
		return set

	default:
		return nil
	}
}

// emitBinaryConstraints records the typing obligations a compound arithmetic
// node implies for its operands.
func (e *evaluator) emitBinaryConstraints(x *ir.Binary, xs, ys VarSet) {
	switch x.Op {
	case ir.OpAdd, ir.OpSub:
		// base ± const: the base must be pointer-compatible.
		if _, ok := x.Y.(*ir.Const); ok {
			for _, v := range xs {
				e.constraints.Emit(Constraint{Var: v, Relation: RelPointerTo})
			}
		}
		if _, ok := x.X.(*ir.Const); ok && x.Op == ir.OpAdd {
			for _, v := range ys {
				e.constraints.Emit(Constraint{Var: v, Relation: RelPointerTo})
			}
		}
		// base + idx*scale: the base is an array of scale-sized elements.
		if x.Op == ir.OpAdd {
			if scaled, ok := x.Y.(*ir.Binary); ok && scaled.Op == ir.OpMul {
				if c, ok := scaled.Y.(*ir.Const); ok {
					for _, v := range xs {
						e.constraints.Emit(Constraint{Var: v, Relation: RelArrayOf, Size: int(c.Value)})
					}
				}
			}
		}
	}
}

// --- Statement handlers (ir.StmtOp) ---

// DoAssign evaluates the source, resolves the destination storage and
// allocates a new definition at this site. Definitions are never reused even
// for the same logical location; reconciliation is deferred to unification.
func (e *evaluator) DoAssign(a *ir.Assign) {
	ref := e.ix.MustRef(a)
	uses := e.evalExpr(a.Src)

	// Stack-pointer writes only move the frame delta; the stack pointer is
	// not a recovered variable.
	if reg, ok := a.Dst.(*ir.Reg); ok && reg.ID == e.frame.StackReg {
		if d, ok := e.staticize(a.Src); ok {
			e.cur.SetDelta(d)
		} else {
			e.cur.ForgetDelta()
		}
		return
	}

	key, size, ok := e.resolveLValue(a.Dst)
	if !ok {
		// Store through a non-staticizable address: no binding, no effect on
		// other locations.
		return
	}
	def := e.defineAt(ref, key, size)
	e.cur.SetVar(key, def)
	e.bindings.BindDef(ref, def, uses)

	switch src := a.Src.(type) {
	case *ir.Binary:
		e.constraints.Emit(Constraint{Var: def, Relation: RelResultOf, Op: string(src.Op)})
	case *ir.Unary:
		e.constraints.Emit(Constraint{Var: def, Relation: RelResultOf, Op: string(src.Op)})
	case *ir.Const:
		e.constraints.Emit(Constraint{Var: def, Relation: RelHasSize, Size: src.Size})
	default:
		if v := uses.Single(); v != NoVar {
			e.constraints.Emit(Constraint{Var: def, Relation: RelEqualsType, OtherVar: v})
		}
	}
}

// DoStore is an assignment through an explicit memory address.
func (e *evaluator) DoStore(s *ir.Store) {
	ref := e.ix.MustRef(s)
	uses := e.evalExpr(s.Val)
	addrUses := e.evalExpr(s.Addr)

	off, ok := e.staticize(s.Addr)
	if !ok {
		e.logger.Tracef("%s: store address %s not staticizable", ref, ir.FmtExpr(s.Addr))
		if v := addrUses.Single(); v != NoVar {
			e.constraints.Emit(Constraint{Var: v, Relation: RelPointerTo, Size: s.Size})
		}
		return
	}
	key := StackKey(off, s.Size)
	def := e.defineAt(ref, key, s.Size)
	e.cur.SetVar(key, def)
	e.bindings.BindDef(ref, def, uses)
	e.constraints.Emit(Constraint{Var: def, Relation: RelHasSize, Size: s.Size})
	if v := uses.Single(); v != NoVar {
		e.constraints.Emit(Constraint{Var: def, Relation: RelEqualsType, OtherVar: v})
	}
}

// DoCall evaluates arguments against the callee's known signature and treats
// recovered result lvalues as definitions.
func (e *evaluator) DoCall(c *ir.Call) {
	ref := e.ix.MustRef(c)
	sig, hasSig := e.frame.SignatureOf(c.Callee)

	var allUses VarSet
	for i, arg := range c.Args {
		argUses := e.evalExpr(arg)
		allUses.UnionWith(argUses)
		if hasSig && i < len(sig.Params) {
			for _, v := range argUses {
				e.constraints.Emit(Constraint{
					Var:      v,
					Relation: RelCallSignature,
					Callee:   c.Callee,
					Index:    i,
					Size:     sig.Params[i],
				})
			}
		}
	}

	firstDef := NoVar
	for ri, res := range c.Results {
		key, size, ok := e.resolveLValue(res)
		if !ok {
			continue
		}
		resRef := e.ix.MustRef(res)
		def := e.defineAt(resRef, key, size)
		e.cur.SetVar(key, def)
		e.bindings.BindDef(resRef, def, nil)
		if hasSig && ri < len(sig.Results) {
			e.constraints.Emit(Constraint{Var: def, Relation: RelHasSize, Size: sig.Results[ri]})
		}
		if firstDef == NoVar {
			firstDef = def
		}
	}

	if firstDef != NoVar {
		e.bindings.BindDef(ref, firstDef, allUses)
	} else if len(allUses) > 0 {
		e.bindings.BindUses(ref, allUses)
	}
}

// DoReturn resolves the returned values as uses.
func (e *evaluator) DoReturn(r *ir.Return) {
	var uses VarSet
	for _, v := range r.Values {
		uses.UnionWith(e.evalExpr(v))
	}
	e.bindings.BindUses(e.ix.MustRef(r), uses)
}

// DoIf resolves the branch condition as uses.
func (e *evaluator) DoIf(i *ir.If) {
	uses := e.evalExpr(i.Cond)
	e.bindings.BindUses(e.ix.MustRef(i), uses)
}

// DoJump has no dataflow effect.
func (e *evaluator) DoJump(*ir.Jump) {}

// DoUnknown treats an unrecognized statement as a no-op with an unresolved
// binding. This is an expected outcome, not an error.
func (e *evaluator) DoUnknown(u *ir.Unknown) {
	e.bindings.BindUnresolved(e.ix.MustRef(u))
}
