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

// FuncState is §4.11's per-function duplication state machine. Passes
// advance a function strictly forward through these states; re-entering
// an earlier state is a bug in the driver and returns a StructuralError
// rather than silently re-running work.
type FuncState int

const (
	StateUntouched FuncState = iota
	StateSignaturesRewritten
	StateGlobalsDuplicated
	StateBodyDuplicated
	StateConstructorsFixed
	StateCtorsFixed
)

func (s FuncState) String() string {
	switch s {
	case StateUntouched:
		return "untouched"
	case StateSignaturesRewritten:
		return "signatures-rewritten"
	case StateGlobalsDuplicated:
		return "globals-duplicated"
	case StateBodyDuplicated:
		return "body-duplicated"
	case StateConstructorsFixed:
		return "constructors-fixed"
	case StateCtorsFixed:
		return "ctors-fixed"
	default:
		return "unknown"
	}
}

// Advance moves fn from its current recorded state to next, rejecting
// any attempt to move backward or skip-repeat a state.
func (st *State) Advance(fn *ir.Function, next FuncState) error {
	cur := st.FuncStates[fn]
	if next <= cur && !(cur == StateUntouched && next == StateUntouched) {
		return &StructuralError{
			Entity: fn.Name,
			Reason: "illegal state transition " + cur.String() + " -> " + next.String(),
		}
	}
	st.FuncStates[fn] = next
	return nil
}

// State is the mutable context threaded through every pass: the
// protection sets computed by C2, the duplicate map shared by every
// later pass, per-function duplicate-function lookups, and
// diagnostics/report accumulators.
type State struct {
	Config Config

	Sets *ProtectionSets
	Dups *DuplicateMap

	// FuncDup maps an original protected function to its "_dup" sibling,
	// populated by InstructionDuplicator (C5) once a function's skeleton
	// and doubled signature have been built; consulted by CallRewriter
	// (C7), CheckInserter (C6), VTableDuplicator (C8), and CtorFixup (C9).
	FuncDup map[*ir.Function]*ir.Function

	// GlobalDup mirrors FuncDup for globals, though globals are also
	// registered symmetrically in Dups since they are ordinary Values.
	GlobalDup map[*ir.Global]*ir.Global

	FuncStates map[*ir.Function]FuncState

	Diags  *Diagnostics
	Report *Report

	// Ctors records, per constructor function, the vtable global
	// it stores into (nil if none was found), populated by C2.
	Ctors map[*ir.Function]*ir.Global
}

func newState(cfg Config) *State {
	return &State{
		Config:     cfg,
		Sets:       newProtectionSets(),
		Dups:       NewDuplicateMap(),
		FuncDup:    make(map[*ir.Function]*ir.Function),
		GlobalDup:  make(map[*ir.Global]*ir.Global),
		FuncStates: make(map[*ir.Function]FuncState),
		Diags:      &Diagnostics{},
		Report:     newReport(),
		Ctors:      make(map[*ir.Function]*ir.Global),
	}
}
