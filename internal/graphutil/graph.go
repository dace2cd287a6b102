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

// Package graphutil adapts the IR control-flow graph to existing graph
// libraries and provides cycle enumeration for convergence diagnostics.
package graphutil

import (
	"fmt"
	"sort"

	"github.com/decompkit/varrec/analysis/ir"
	"gonum.org/v1/gonum/graph"
)

// CFGraph is an abstraction over a function's control-flow graph to work with
// existing graph libraries. Node ids are block positions in the function's
// block list (0..n-1), not BlockIDs, so they satisfy the contiguous-id
// expectations of graph.Iterator. CFGraph implements the methods to satisfy
// yourbasic's graph.Iterator and Gonum's graph.Graph.
type CFGraph struct {
	// The order of the graph
	order int

	// Fn is the function the CFGraph was constructed from
	Fn *ir.Function

	// IDMap maps from node ids (block positions) to BNodes
	IDMap map[int64]BNode

	// Keys are all the node ids
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge
	// between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool
}

// NewCFGIterator returns a new control-flow graph iterator for fn, where node
// ids are block positions in fn.Blocks.
func NewCFGIterator(fn *ir.Function) CFGraph {
	n := len(fn.Blocks)
	pos := make(map[ir.BlockID]int64, n)
	for i, block := range fn.Blocks {
		pos[block.ID] = int64(i)
	}

	idmap := make(map[int64]BNode, n)
	edges := make(map[int64]map[int64]bool, n)
	keys := make([]int64, n)
	for i, block := range fn.Blocks {
		id := int64(i)
		keys[i] = id
		idmap[id] = BNode{Block: block, id: id}
		edges[id] = map[int64]bool{}
		for _, succ := range block.Succs {
			if succPos, ok := pos[succ]; ok {
				edges[id][succPos] = true
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return CFGraph{
		order: n,
		Fn:    fn,
		IDMap: idmap,
		Edges: edges,
		Keys:  keys,
	}
}

// Subgraph returns a new graph that is the original graph with only the nodes
// in include. Only the edges that have both the origin and destination nodes
// in the include nodes are kept in the resulting graph. The subgraph's order
// and IDMap are the same as in the original, so node indices stay consistent
// across subgraphs.
func Subgraph(original CFGraph, include []int64) CFGraph {
	included := make(map[int64]bool, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))

	for j, i := range include {
		keys[j] = i
		included[i] = true
	}

	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if included[e] {
				edges[i][e] = true
			}
		}
	}

	return CFGraph{
		order: original.Order(),
		Fn:    original.Fn,
		IDMap: original.IDMap,
		Edges: edges,
		Keys:  keys,
	}
}

// Order implements the order of the graph.Iterator interface for the CFGraph
func (c CFGraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the CFGraph
func (c CFGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for w := range c.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (c CFGraph) Node(v int64) graph.Node {
	return c.IDMap[v]
}

// Nodes returns the set of nodes in the graph
func (c CFGraph) Nodes() graph.Nodes {
	keys := make([]int64, len(c.IDMap))
	i := 0
	for k := range c.IDMap {
		keys[i] = k
		i++
	}
	return &NodeSet{
		nodes: c.IDMap,
		ids:   keys,
		cur:   -1,
	}
}

// From returns the set of nodes reachable from the id
func (c CFGraph) From(id int64) graph.Nodes {
	var keys []int64
	for out := range c.Edges[id] {
		keys = append(keys, out)
	}
	return &NodeSet{
		nodes: c.IDMap,
		ids:   keys,
		cur:   -1,
	}
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c CFGraph) HasEdgeBetween(xid, yid int64) bool {
	xe := c.Edges[xid]
	ye := c.Edges[yid]
	return xe[yid] || ye[xid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c CFGraph) Edge(uid, vid int64) graph.Edge {
	ue := c.Edges[uid]
	if ue != nil && ue[vid] {
		return BEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

// *************** Nodes implementation **********************

// BNode is a wrapper around an *ir.Block that implements the graph.Node interface
type BNode struct {
	Block *ir.Block
	id    int64
}

// ID returns the id of the node
func (n BNode) ID() int64 {
	return n.id
}

func (n BNode) String() string {
	if n.Block == nil {
		return ""
	}
	return fmt.Sprintf("b%d", n.Block.ID)
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]BNode

	// ids is the set of node ids in the iterator
	// invariant: len(ids) = len(nodes)
	ids []int64

	// cur is the current index of the iterator. The current node is nodes[ids[cur]];
	// cur starts at -1, before the first node.
	cur int
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the length of the node set
func (ns *NodeSet) Len() int {
	return len(ns.ids)
}

// Reset resets the id of the current node in the set
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node returns the current node in the set
func (ns *NodeSet) Node() graph.Node {
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// BEdge implements the graph.Edge interface
type BEdge struct {
	from BNode
	to   BNode
}

// From returns the origin of the edge
func (e BEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e BEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e BEdge) ReversedEdge() graph.Edge {
	return BEdge{from: e.to, to: e.from}
}
