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

// Package irload reads lifted programs from their YAML interchange form and
// builds the in-memory IR the analysis consumes. The YAML document declares
// the frame model (register names, stack and frame registers, known callee
// signatures) and the functions, whose statements are written in a compact
// textual form parsed by this package.
package irload

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/decompkit/varrec/analysis/ir"
)

// DefaultWordSize is the access width assumed when a program does not
// declare one.
const DefaultWordSize = 8

type programSpec struct {
	Frame      frameSpec                `yaml:"frame"`
	Signatures map[string]signatureSpec `yaml:"signatures"`
	Functions  []functionSpec           `yaml:"functions"`
}

type frameSpec struct {
	// Registers declares the register names; a register's id is its position
	// in this list.
	Registers    []string `yaml:"registers"`
	StackReg     string   `yaml:"stackreg"`
	FrameReg     string   `yaml:"framereg"`
	ArgRegs      []string `yaml:"argregs"`
	StackArgBase int64    `yaml:"stackargbase"`
	WordSize     int      `yaml:"wordsize"`
}

type signatureSpec struct {
	Params  []int `yaml:"params"`
	Results []int `yaml:"results"`
}

type functionSpec struct {
	Name   string      `yaml:"name"`
	Entry  int         `yaml:"entry"`
	Blocks []blockSpec `yaml:"blocks"`
}

type blockSpec struct {
	ID    int      `yaml:"id"`
	Succs []int    `yaml:"succs"`
	Stmts []string `yaml:"stmts"`
}

// LoadFile reads and parses a program from the YAML file at path.
func LoadFile(path string) (*ir.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}
	prog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// Parse builds a program from YAML bytes.
func Parse(data []byte) (*ir.Program, error) {
	spec := programSpec{}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("unmarshaling program: %w", err)
	}

	frame, regIDs, err := buildFrame(spec)
	if err != nil {
		return nil, err
	}
	wordSize := spec.Frame.WordSize
	if wordSize <= 0 {
		wordSize = DefaultWordSize
	}

	prog := &ir.Program{Frame: frame}
	for _, fs := range spec.Functions {
		fn, err := buildFunction(fs, regIDs, wordSize)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", fs.Name, err)
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

func buildFrame(spec programSpec) (*ir.FrameInfo, map[string]ir.RegID, error) {
	fs := spec.Frame
	if len(fs.Registers) == 0 {
		return nil, nil, fmt.Errorf("frame declares no registers")
	}
	regIDs := make(map[string]ir.RegID, len(fs.Registers))
	names := make(map[ir.RegID]string, len(fs.Registers))
	for i, name := range fs.Registers {
		if _, dup := regIDs[name]; dup {
			return nil, nil, fmt.Errorf("register %q declared twice", name)
		}
		regIDs[name] = ir.RegID(i)
		names[ir.RegID(i)] = name
	}

	lookup := func(role, name string) (ir.RegID, error) {
		id, ok := regIDs[name]
		if !ok {
			return 0, fmt.Errorf("%s register %q is not declared", role, name)
		}
		return id, nil
	}

	frame := &ir.FrameInfo{
		RegNames:     names,
		StackArgBase: fs.StackArgBase,
		Signatures:   map[string]ir.Signature{},
	}
	var err error
	if frame.StackReg, err = lookup("stack", fs.StackReg); err != nil {
		return nil, nil, err
	}
	if fs.FrameReg != "" {
		if frame.FrameReg, err = lookup("frame", fs.FrameReg); err != nil {
			return nil, nil, err
		}
		frame.HasFrameReg = true
	}
	for _, name := range fs.ArgRegs {
		id, err := lookup("argument", name)
		if err != nil {
			return nil, nil, err
		}
		frame.ArgRegs = append(frame.ArgRegs, id)
	}
	for callee, sig := range spec.Signatures {
		frame.Signatures[callee] = ir.Signature{Params: sig.Params, Results: sig.Results}
	}
	return frame, regIDs, nil
}

func buildFunction(fs functionSpec, regIDs map[string]ir.RegID, wordSize int) (*ir.Function, error) {
	fn := &ir.Function{Name: fs.Name, Entry: ir.BlockID(fs.Entry)}
	for _, bs := range fs.Blocks {
		block := &ir.Block{ID: ir.BlockID(bs.ID)}
		for _, succ := range bs.Succs {
			block.Succs = append(block.Succs, ir.BlockID(succ))
		}
		for i, text := range bs.Stmts {
			stmt, err := parseStmt(text, regIDs, wordSize)
			if err != nil {
				return nil, fmt.Errorf("block %d, statement %d: %w", bs.ID, i, err)
			}
			block.Stmts = append(block.Stmts, stmt)
		}
		fn.Blocks = append(fn.Blocks, block)
	}
	return fn, nil
}
