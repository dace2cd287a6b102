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

// Package ir defines the intermediate representation consumed by the variable
// recovery analysis. The IR is produced by upstream lifting and control-flow
// recovery stages; this package treats it as read-only input and provides
// visitors to implement analyses over statements and expressions.
package ir

import "strconv"

// BlockID identifies a block within its function. Block ids are assigned by the
// control-flow recovery stage and are not required to be contiguous.
type BlockID int

// RegID identifies a machine register in the lifted representation.
type RegID int

// TempID identifies a lifter-introduced temporary value.
type TempID int

// Program is a set of lifted functions sharing frame and calling-convention
// metadata. Programs are immutable once built.
type Program struct {
	Functions []*Function
	Frame     *FrameInfo
}

// Function is an ordered set of blocks with a designated entry block.
type Function struct {
	Name   string
	Blocks []*Block
	Entry  BlockID
}

// Block is an ordered sequence of statements with a list of successor block
// references. Blocks are owned by their function.
type Block struct {
	ID    BlockID
	Stmts []Stmt
	Succs []BlockID
}

// FrameInfo carries the frame and calling-convention metadata needed to
// resolve stack and argument storage. It is shared, immutable input for all
// function analyses.
type FrameInfo struct {
	// StackReg is the stack-pointer register, the reference point for frame
	// offsets.
	StackReg RegID

	// FrameReg is the frame-base register when the convention uses one.
	// Ignored unless HasFrameReg is true.
	FrameReg    RegID
	HasFrameReg bool

	// RegNames maps register ids to display names, for diagnostics only.
	RegNames map[RegID]string

	// ArgRegs lists the registers used to pass call arguments, in order.
	ArgRegs []RegID

	// StackArgBase is the frame offset of the first stack-passed argument.
	StackArgBase int64

	// Signatures maps callee names to their known signatures, when the
	// upstream stages could recover them.
	Signatures map[string]Signature
}

// Signature describes the parameter and result sizes of a callee, in bytes.
type Signature struct {
	Params  []int
	Results []int
}

// RegName returns the display name for a register, falling back to a numeric
// form when the metadata has no name for it.
func (fi *FrameInfo) RegName(r RegID) string {
	if fi != nil {
		if name, ok := fi.RegNames[r]; ok {
			return name
		}
	}
	return "r" + strconv.Itoa(int(r))
}

// SignatureOf returns the signature of the named callee, if known.
func (fi *FrameInfo) SignatureOf(callee string) (Signature, bool) {
	if fi == nil || callee == "" {
		return Signature{}, false
	}
	sig, ok := fi.Signatures[callee]
	return sig, ok
}
