/*
 * Copyright 2024 The EDDI Project Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/* Lengauer-Tarjan dominator tree construction, adapted from the
 * teacher's ssa/dominator.go (itself https://doi.org/10.1145%2F357062.357071),
 * retargeted from *ssa.BasicBlock to *ir.BasicBlock. */

package ir

type ltNode struct {
	semi     int
	node     *BasicBlock
	dom      *ltNode
	label    *ltNode
	parent   *ltNode
	ancestor *ltNode
	pred     []*ltNode
	bucket   map[*ltNode]struct{}
}

type lengauerTarjan struct {
	nodes  []*ltNode
	vertex map[*BasicBlock]int
}

func newLengauerTarjan() *lengauerTarjan {
	return &lengauerTarjan{vertex: make(map[*BasicBlock]int)}
}

func (lt *lengauerTarjan) dfs(bb *BasicBlock) {
	i := len(lt.nodes)
	lt.vertex[bb] = i

	p := &ltNode{semi: i, node: bb, bucket: make(map[*ltNode]struct{})}
	p.label = p
	lt.nodes = append(lt.nodes, p)

	for _, w := range Succs(bb) {
		idx, ok := lt.vertex[w]
		if !ok {
			lt.dfs(w)
			idx = lt.vertex[w]
			lt.nodes[idx].parent = p
		}
		q := lt.nodes[idx]
		q.pred = append(q.pred, p)
	}
}

func (lt *lengauerTarjan) eval(p *ltNode) *ltNode {
	if p.ancestor == nil {
		return p
	}
	lt.compress(p)
	return p.label
}

func (lt *lengauerTarjan) link(p, q *ltNode) { q.ancestor = p }

func (lt *lengauerTarjan) compress(p *ltNode) {
	if p.ancestor.ancestor != nil {
		lt.compress(p.ancestor)
		if p.label.semi > p.ancestor.label.semi {
			p.label = p.ancestor.label
		}
		p.ancestor = p.ancestor.ancestor
	}
}

// DominatorTree holds the immediate-dominator relation and its inverse,
// plus the dominance frontier. No pass in internal/harden or
// internal/cfc builds one; check insertion's pointer-check gate uses
// ReachabilityMatrix instead.
type DominatorTree struct {
	Root              *BasicBlock
	DominatedBy       map[*BasicBlock]*BasicBlock
	DominatorOf       map[*BasicBlock][]*BasicBlock
	DominanceFrontier map[*BasicBlock][]*BasicBlock
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// BuildDominatorTree computes the dominator tree rooted at bb.
func BuildDominatorTree(bb *BasicBlock) *DominatorTree {
	domby := make(map[*BasicBlock]*BasicBlock)
	domof := make(map[*BasicBlock][]*BasicBlock)

	lt := newLengauerTarjan()
	lt.dfs(bb)

	for i := len(lt.nodes) - 1; i > 0; i-- {
		p := lt.nodes[i]
		var q *ltNode

		for _, v := range p.pred {
			q = lt.eval(v)
			p.semi = minInt(p.semi, q.semi)
		}

		lt.link(p.parent, p)
		lt.nodes[p.semi].bucket[p] = struct{}{}

		for v := range p.parent.bucket {
			if q = lt.eval(v); q.semi < v.semi {
				v.dom = q
			} else {
				v.dom = p.parent
			}
		}
		for v := range p.parent.bucket {
			delete(p.parent.bucket, v)
		}
	}

	for _, p := range lt.nodes[1:] {
		if p.dom.node != lt.nodes[p.semi].node {
			p.dom = p.dom.dom
		}
	}

	for _, p := range lt.nodes[1:] {
		domby[p.node] = p.dom.node
		domof[p.dom.node] = append(domof[p.dom.node], p.node)
	}

	dt := &DominatorTree{
		Root:        bb,
		DominatedBy: domby,
		DominatorOf: domof,
	}
	dt.DominanceFrontier = computeDominanceFrontier(bb, dt)
	return dt
}

// computeDominanceFrontier uses the standard Cytron et al. algorithm:
// for every join node n with >= 2 predecessors, walk each predecessor up
// the dominator tree until reaching n's idom, adding n to the frontier
// of every node visited along the way.
func computeDominanceFrontier(root *BasicBlock, dt *DominatorTree) map[*BasicBlock][]*BasicBlock {
	df := make(map[*BasicBlock][]*BasicBlock)
	seen := make(map[*BasicBlock]bool)
	var all []*BasicBlock
	var walk func(*BasicBlock)
	walk = func(bb *BasicBlock) {
		if seen[bb] {
			return
		}
		seen[bb] = true
		all = append(all, bb)
		for _, s := range Succs(bb) {
			walk(s)
		}
	}
	walk(root)

	inFrontier := func(n, x *BasicBlock) bool {
		for _, b := range df[x] {
			if b == n {
				return true
			}
		}
		return false
	}

	for _, n := range all {
		if len(n.Pred) < 2 {
			continue
		}
		idom := dt.DominatedBy[n]
		for _, pred := range n.Pred {
			x := pred
			for x != idom && x != nil {
				if !inFrontier(n, x) {
					df[x] = append(df[x], n)
				}
				x = dt.DominatedBy[x]
			}
		}
	}
	return df
}

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (dt *DominatorTree) Dominates(a, b *BasicBlock) bool {
	for x := b; x != nil; x = dt.DominatedBy[x] {
		if x == a {
			return true
		}
		if x == dt.Root {
			break
		}
	}
	return a == b
}
