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
)

func TestFuncStateStringNamesEveryState(t *testing.T) {
	assert.Equal(t, "untouched", StateUntouched.String())
	assert.Equal(t, "signatures-rewritten", StateSignaturesRewritten.String())
	assert.Equal(t, "globals-duplicated", StateGlobalsDuplicated.String())
	assert.Equal(t, "body-duplicated", StateBodyDuplicated.String())
	assert.Equal(t, "constructors-fixed", StateConstructorsFixed.String())
	assert.Equal(t, "ctors-fixed", StateCtorsFixed.String())
	assert.Equal(t, "unknown", FuncState(99).String())
}

func TestAdvanceMovesForwardThroughEachState(t *testing.T) {
	st := newState(DefaultConfig())
	f := &ir.Function{Name: "f"}

	assert.NoError(t, st.Advance(f, StateSignaturesRewritten))
	assert.Equal(t, StateSignaturesRewritten, st.FuncStates[f])

	assert.NoError(t, st.Advance(f, StateGlobalsDuplicated))
	assert.NoError(t, st.Advance(f, StateBodyDuplicated))
	assert.Equal(t, StateBodyDuplicated, st.FuncStates[f])
}

func TestAdvanceRejectsBackwardOrRepeatedTransitions(t *testing.T) {
	st := newState(DefaultConfig())
	f := &ir.Function{Name: "f"}
	assert.NoError(t, st.Advance(f, StateBodyDuplicated))

	err := st.Advance(f, StateGlobalsDuplicated)
	assert.Error(t, err)
	var structural *StructuralError
	assert.ErrorAs(t, err, &structural)
	assert.Equal(t, StateBodyDuplicated, st.FuncStates[f], "a rejected transition must not mutate the recorded state")

	err = st.Advance(f, StateBodyDuplicated)
	assert.Error(t, err, "re-entering the current state is also rejected")
}

func TestAdvanceAllowsRedundantUntouchedToUntouched(t *testing.T) {
	st := newState(DefaultConfig())
	f := &ir.Function{Name: "f"}
	assert.NoError(t, st.Advance(f, StateUntouched))
	assert.Equal(t, StateUntouched, st.FuncStates[f])
}

func TestNewStateInitializesEveryCollection(t *testing.T) {
	st := newState(DefaultConfig())
	assert.NotNil(t, st.Sets)
	assert.NotNil(t, st.Dups)
	assert.NotNil(t, st.FuncDup)
	assert.NotNil(t, st.GlobalDup)
	assert.NotNil(t, st.FuncStates)
	assert.NotNil(t, st.Diags)
	assert.NotNil(t, st.Report)
	assert.NotNil(t, st.Ctors)
}
