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
	"context"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/sword-hardening/eddi/internal/ir"
)

const parallelPoolName = "eddi-harden-perfn"

var parallelPool = gopool.NewPool(parallelPoolName, 64, gopool.NewConfig())

// runPerFunction is §5's explicit parallelization escape hatch for
// C5-C7's per-function body work. compute does the actual duplication
// against a private DuplicateMap snapshot and returns whatever the
// caller needs to record (typically the new "_dup" *ir.Function);
// runPerFunction then folds that snapshot back into the shared
// DuplicateMap itself and calls commit, which applies whatever other
// bookkeeping (Report, Diags, state advance, mod.AddFunc) the caller
// needs, with the shared map already merged and a lock held for the
// duration — so commit never races another function's commit.
//
// When Config.Parallel is off (the default) both callbacks run serially
// against the pass's shared DuplicateMap directly, with no snapshotting
// or locking at all. When it is on, compute runs concurrently on a
// bounded gopool per function, each against its own Snapshot, and
// commit is serialized through mu so the merged result by the time
// runPerFunction returns is exactly what a serial run would have
// produced, modulo the order pairs were inserted.
//
// Safe only because compute never reads a pair that some other
// function's compute is responsible for producing: instruction
// duplication and call rewriting only ever look up parameters, globals,
// and that function's own values, all already present in d before the
// fan-out starts.
func runPerFunction(st *State, fns []*ir.Function, compute func(f *ir.Function, d *DuplicateMap) any, commit func(f *ir.Function, result any)) {
	if !st.Config.Parallel || len(fns) < 2 {
		for _, f := range fns {
			result := compute(f, st.Dups)
			commit(f, result)
		}
		return
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(len(fns))
	for _, f := range fns {
		f := f
		parallelPool.CtxGo(context.Background(), func() {
			defer wg.Done()

			mu.Lock()
			local := st.Dups.Snapshot()
			mu.Unlock()

			result := compute(f, local)

			mu.Lock()
			st.Dups.Merge(local)
			commit(f, result)
			mu.Unlock()
		})
	}
	wg.Wait()
}
