// Copyright (c) 2018 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package gbx

// nodeTable is the auxiliary node table of a session. Readers map the 1-based
// index found in the stream to the node decoded the first time that index was
// seen; writers map node identity to the index assigned on first encounter.
//
// Like idScope, a table can be forked: the fork sees the first 'mark' entries
// of its parent (in insertion order) and keeps its own additions local.
type nodeTable struct {
	parent *nodeTable
	mark   int

	// Local entries in insertion order.
	nodes []*Node

	// Reader side: stream index -> position in 'nodes'.
	byIndex map[int32]int

	// Writer side: node -> assigned index.
	byNode map[*Node]int32
}

func newNodeTable() *nodeTable {
	return &nodeTable{
		byIndex: make(map[int32]int),
		byNode:  make(map[*Node]int32),
	}
}

func (t *nodeTable) forkAt(n int) *nodeTable {
	f := newNodeTable()
	f.parent = t
	f.mark = n
	return f
}

func (t *nodeTable) fork() *nodeTable {
	return t.forkAt(t.count())
}

// count returns the number of entries visible through this table.
func (t *nodeTable) count() int {
	return t.mark + len(t.nodes)
}

// commit publishes the fork's additions into its parent.
func (t *nodeTable) commit() {
	p := t.parent
	if p == nil || p.count() != t.mark {
		panic("gbx: committing a stale node table fork")
	}
	base := len(p.nodes)
	p.nodes = append(p.nodes, t.nodes...)
	for idx, pos := range t.byIndex {
		p.byIndex[idx] = base + pos
	}
	for n, idx := range t.byNode {
		p.byNode[n] = idx
	}
}

// get returns the node read for stream index 'idx'.
func (t *nodeTable) get(idx int32) (*Node, bool) {
	return t.getBelow(idx, t.count())
}

// getBelow only considers the first 'limit' visible entries.
func (t *nodeTable) getBelow(idx int32, limit int) (*Node, bool) {
	if pos, ok := t.byIndex[idx]; ok && t.mark+pos < limit {
		return t.nodes[pos], true
	}
	if t.parent != nil {
		bound := t.mark
		if limit < bound {
			bound = limit
		}
		return t.parent.getBelow(idx, bound)
	}
	return nil, false
}

// put records the node read for 'idx'.
func (t *nodeTable) put(idx int32, n *Node) {
	t.byIndex[idx] = len(t.nodes)
	t.nodes = append(t.nodes, n)
}

// last returns the most recently added visible node.
func (t *nodeTable) last() *Node {
	if len(t.nodes) > 0 {
		return t.nodes[len(t.nodes)-1]
	}
	if t.parent != nil && t.mark > 0 {
		return t.parent.at(t.mark - 1)
	}
	return nil
}

// at returns the visible entry at position 'i'.
func (t *nodeTable) at(i int) *Node {
	if i >= t.mark {
		return t.nodes[i-t.mark]
	}
	return t.parent.at(i)
}

// indexOf returns the index assigned to 'n' by a writer.
func (t *nodeTable) indexOf(n *Node) (int32, bool) {
	return t.indexBelow(n, t.count())
}

func (t *nodeTable) indexBelow(n *Node, limit int) (int32, bool) {
	if idx, ok := t.byNode[n]; ok && int(idx) <= limit {
		return idx, true
	}
	if t.parent != nil {
		bound := t.mark
		if limit < bound {
			bound = limit
		}
		return t.parent.indexBelow(n, bound)
	}
	return 0, false
}

// assign gives 'n' the next index.
func (t *nodeTable) assign(n *Node) int32 {
	idx := int32(t.count() + 1)
	t.byNode[n] = idx
	t.nodes = append(t.nodes, n)
	return idx
}
