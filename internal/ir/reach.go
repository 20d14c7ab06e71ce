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

/* Floyd-Warshall block reachability, adapted from the teacher's
 * ssa/reachability.go. There it answers "can block A reach block B" for
 * the compiler's own optimizer; here it backs the consistency-check
 * insertion pass's pointer-check elision rule: skip the check unless the
 * pointer is used by a store reachable from the load's block along
 * forward edges. */

package ir

import "math"

// ReachabilityMatrix answers block-to-block forward reachability
// queries for a single function.
type ReachabilityMatrix struct {
	index map[*BasicBlock]int
	dist  [][]int
}

// BuildReachabilityMatrix computes all-pairs block reachability for f.
func BuildReachabilityMatrix(f *Function) *ReachabilityMatrix {
	var blocks []*BasicBlock
	PostOrder(f, func(bb *BasicBlock) { blocks = append(blocks, bb) })

	idx := make(map[*BasicBlock]int, len(blocks))
	for i, bb := range blocks {
		idx[bb] = i
	}

	n := len(blocks)
	dist := make([][]int, n)
	for i := range dist {
		dist[i] = make([]int, n)
		for j := range dist[i] {
			dist[i][j] = math.MaxInt32
		}
		dist[i][i] = 0
	}

	for _, bb := range blocks {
		i := idx[bb]
		for _, s := range Succs(bb) {
			j := idx[s]
			if dist[i][j] > 1 {
				dist[i][j] = 1
			}
		}
	}

	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if dist[i][k] == math.MaxInt32 {
				continue
			}
			for j := 0; j < n; j++ {
				if dist[k][j] == math.MaxInt32 {
					continue
				}
				if d := dist[i][k] + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
				}
			}
		}
	}

	return &ReachabilityMatrix{index: idx, dist: dist}
}

// CanReach reports whether to is reachable from from along forward
// control-flow edges (from == to counts as reachable).
func (m *ReachabilityMatrix) CanReach(from, to *BasicBlock) bool {
	i, ok := m.index[from]
	if !ok {
		return false
	}
	j, ok := m.index[to]
	if !ok {
		return false
	}
	return m.dist[i][j] != math.MaxInt32
}
