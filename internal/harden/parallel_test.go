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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sword-hardening/eddi/internal/ir"
)

func TestRunPerFunctionSerialWritesDirectlyToSharedMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallel = false
	st := newState(cfg)

	f1 := &ir.Function{Name: "f1"}
	fns := []*ir.Function{f1}

	var committed []string
	runPerFunction(st, fns, func(f *ir.Function, d *DuplicateMap) any {
		assert.Same(t, st.Dups, d, "serial mode must hand compute the shared map directly")
		a := ir.Value(&ir.Alloca{Elem: ir.I64, Name: f.Name})
		b := ir.Value(&ir.Alloca{Elem: ir.I64, Name: f.Name + "_dup"})
		d.Add(a, b)
		return f.Name
	}, func(f *ir.Function, result any) {
		committed = append(committed, result.(string))
	})

	assert.Equal(t, []string{"f1"}, committed)
	assert.Equal(t, 2, st.Dups.Len())
}

func TestRunPerFunctionParallelMergesEveryWorkersPairsIntoSharedMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallel = true
	st := newState(cfg)

	var fns []*ir.Function
	for i := 0; i < 8; i++ {
		fns = append(fns, &ir.Function{Name: "f"})
	}

	var mu sync.Mutex
	var committed int
	runPerFunction(st, fns, func(f *ir.Function, d *DuplicateMap) any {
		a := ir.Value(&ir.Alloca{Elem: ir.I64})
		b := ir.Value(&ir.Alloca{Elem: ir.I64})
		d.Add(a, b)
		return nil
	}, func(f *ir.Function, result any) {
		mu.Lock()
		committed++
		mu.Unlock()
	})

	assert.Equal(t, len(fns), committed)
	assert.Equal(t, len(fns)*2, st.Dups.Len(), "every worker's private pair must be folded back into the shared map")
}

func TestRunPerFunctionFallsBackToSerialBelowTwoFunctions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallel = true
	st := newState(cfg)

	f1 := &ir.Function{Name: "only"}
	var sawSharedMap bool
	runPerFunction(st, []*ir.Function{f1}, func(f *ir.Function, d *DuplicateMap) any {
		sawSharedMap = d == st.Dups
		return nil
	}, func(f *ir.Function, result any) {})

	assert.True(t, sawSharedMap, "a single function is too little work to justify fan-out, even with Parallel enabled")
}
