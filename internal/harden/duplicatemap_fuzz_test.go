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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sword-hardening/eddi/internal/ir"
	"github.com/sword-hardening/eddi/internal/ir/irtest"
)

// TestDuplicateMapStaysSymmetricUnderRandomInsertions builds a batch of
// randomly-named pairs and confirms D's insert-both-directions
// invariant (§9) holds no matter which names happened to be drawn.
func TestDuplicateMapStaysSymmetricUnderRandomInsertions(t *testing.T) {
	names := irtest.RandomNames(40)
	d := NewDuplicateMap()

	pairs := make([]struct{ a, b ir.Value }, 0, len(names)/2)
	for i := 0; i+1 < len(names); i += 2 {
		a := ir.Value(&ir.Global{Name: names[i]})
		b := ir.Value(&ir.Global{Name: names[i+1]})
		d.Add(a, b)
		pairs = append(pairs, struct{ a, b ir.Value }{a, b})
	}

	assert.NotPanics(t, d.CheckSymmetric)
	assert.Equal(t, len(pairs)*2, d.Len())

	for _, p := range pairs {
		got, ok := d.Get(p.a)
		assert.True(t, ok)
		assert.Same(t, p.b, got)

		got, ok = d.Get(p.b)
		assert.True(t, ok)
		assert.Same(t, p.a, got)
	}
}

// TestDuplicateMapMergeIsIdempotentUnderRandomNames confirms merging a
// snapshot into itself twice never changes the pair count, regardless
// of what the entries happen to be named.
func TestDuplicateMapMergeIsIdempotentUnderRandomNames(t *testing.T) {
	names := irtest.RandomNames(10)
	d := NewDuplicateMap()
	for i := 0; i+1 < len(names); i += 2 {
		d.Add(ir.Value(&ir.Global{Name: names[i]}), ir.Value(&ir.Global{Name: names[i+1]}))
	}

	snap := d.Snapshot()
	before := d.Len()

	d.Merge(snap)
	d.Merge(snap)

	assert.Equal(t, before, d.Len())
}
