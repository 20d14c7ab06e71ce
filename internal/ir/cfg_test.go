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

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostOrderVisitsEachBlockOnce(t *testing.T) {
	entry, a, b, merge := diamond(t)

	var order []*BasicBlock
	PostOrder(entry.Func, func(bb *BasicBlock) { order = append(order, bb) })

	assert.Len(t, order, 4)
	assert.Equal(t, merge, order[0], "merge block is visited first in post-order")
	assert.Contains(t, order, entry)
	assert.Contains(t, order, a)
	assert.Contains(t, order, b)
}

func TestReversePostOrderStartsAtEntry(t *testing.T) {
	entry, _, _, _ := diamond(t)

	var order []*BasicBlock
	ReversePostOrder(entry.Func, func(bb *BasicBlock) { order = append(order, bb) })

	assert.Equal(t, entry, order[0])
}

func TestReachable(t *testing.T) {
	entry, _, _, merge := diamond(t)
	dead := &BasicBlock{ID: entry.Func.NewBlockID()}
	dead.Term = &Ret{}
	entry.Func.AddBlock(dead)

	assert.True(t, Reachable(entry.Func, merge))
	assert.False(t, Reachable(entry.Func, dead))
}

