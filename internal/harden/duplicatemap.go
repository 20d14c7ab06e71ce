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

package harden

import "github.com/sword-hardening/eddi/internal/ir"

// DuplicateMap is the D relation of spec §3/§9: a single hash map storing
// both (a, b) and (b, a) for every duplicate pair, rather than two maps
// or a graph. It is the single source of truth consulted whenever an
// operand needs to be rewritten to its duplicate.
type DuplicateMap struct {
	pairs map[ir.Value]ir.Value
}

func NewDuplicateMap() *DuplicateMap {
	return &DuplicateMap{pairs: make(map[ir.Value]ir.Value)}
}

// Add registers both (a, b) and (b, a).
func (d *DuplicateMap) Add(a, b ir.Value) {
	d.pairs[a] = b
	d.pairs[b] = a
}

// Get returns the duplicate of v, if any.
func (d *DuplicateMap) Get(v ir.Value) (ir.Value, bool) {
	dup, ok := d.pairs[v]
	return dup, ok
}

// Has reports whether v has a duplicate registered.
func (d *DuplicateMap) Has(v ir.Value) bool {
	_, ok := d.pairs[v]
	return ok
}

// Remove deletes both directions of the pair involving v (if present).
// The trivial-duplication elision rule (§4.5, §8-S6) does not call it:
// duplicateStoreLike deletes an identical clone before any D entry is
// made for it.
func (d *DuplicateMap) Remove(v ir.Value) {
	dup, ok := d.pairs[v]
	if !ok {
		return
	}
	delete(d.pairs, v)
	delete(d.pairs, dup)
}

// Len reports the number of registered values (both directions counted).
func (d *DuplicateMap) Len() int { return len(d.pairs) }

// CheckSymmetric is a debug assertion, gated behind Config.Debug, that
// walks the map and panics on asymmetry — the directly testable property
// §8-2. It is never called on the hot path.
func (d *DuplicateMap) CheckSymmetric() {
	for a, b := range d.pairs {
		back, ok := d.pairs[b]
		if !ok || back != a {
			panic("harden: DuplicateMap asymmetry detected")
		}
	}
}

// Snapshot returns a fresh DuplicateMap seeded with a copy of every pair
// currently registered in d, used by the parallel fan-out in
// parallel.go to give each worker a private map it can write into
// without racing the shared one mid-pass.
func (d *DuplicateMap) Snapshot() *DuplicateMap {
	cp := NewDuplicateMap()
	for a, b := range d.pairs {
		cp.pairs[a] = b
	}
	return cp
}

// Merge copies every pair from other into d, used to fold a worker's
// private snapshot back into the shared map once its function's work
// completes. Callers are responsible for serializing concurrent calls.
func (d *DuplicateMap) Merge(other *DuplicateMap) {
	for a, b := range other.pairs {
		d.pairs[a] = b
	}
}

// Pairs returns a snapshot of every (a, b) pair, each reported once
// (lower iteration address wins arbitrarily — callers that need a stable
// order should sort the result themselves). Used by diagnostics dumps
// and by tests.
func (d *DuplicateMap) Pairs() [][2]ir.Value {
	seen := make(map[ir.Value]bool, len(d.pairs))
	var out [][2]ir.Value
	for a, b := range d.pairs {
		if seen[a] || seen[b] {
			continue
		}
		seen[a] = true
		seen[b] = true
		out = append(out, [2]ir.Value{a, b})
	}
	return out
}
