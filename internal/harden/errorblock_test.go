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

func TestDataCorruptionHandlerCreatesDeclarationOnce(t *testing.T) {
	mod := ir.NewModule("m")

	h1 := dataCorruptionHandler(mod)
	assert.Equal(t, dataCorruptionHandlerName, h1.Name)
	assert.Equal(t, ir.LinkageExternal, h1.Linkage)

	h2 := dataCorruptionHandler(mod)
	assert.Same(t, h1, h2, "a second call must reuse the already-declared handler rather than redeclaring it")

	count := 0
	for _, f := range mod.Funcs {
		if f.Name == dataCorruptionHandlerName {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestErrBlockForEdgeAppendsATrapCallingBlock(t *testing.T) {
	mod := ir.NewModule("m")
	fd := &ir.Function{Name: "addOne_dup"}
	mod.AddFunc(fd)
	st := newState(DefaultConfig())

	before := len(fd.Blocks)
	blk := errBlockForEdge(mod, fd, "mismatch", st)

	assert.Len(t, fd.Blocks, before+1)
	assert.Same(t, fd, blk.Func)
	assert.Len(t, blk.Ins, 1)
	call, ok := blk.Ins[0].(*ir.Call)
	assert.True(t, ok)
	assert.Equal(t, dataCorruptionHandlerName, call.Target.Direct.Name)
	_, isRet := blk.Term.(*ir.Ret)
	assert.True(t, isRet)
}

func TestErrBlockForEdgeGivesEachEdgeItsOwnBlock(t *testing.T) {
	mod := ir.NewModule("m")
	fd := &ir.Function{Name: "addOne_dup"}
	mod.AddFunc(fd)
	st := newState(DefaultConfig())

	b1 := errBlockForEdge(mod, fd, "e1", st)
	b2 := errBlockForEdge(mod, fd, "e2", st)

	assert.NotEqual(t, b1.ID, b2.ID)
}
