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

func TestSameTypePointers(t *testing.T) {
	a := PointerType{Elem: I64}
	b := PointerType{Elem: I64}
	c := PointerType{Elem: I32}

	assert.True(t, SameType(a, b))
	assert.False(t, SameType(a, c))
}

func TestSameTypeArrays(t *testing.T) {
	a := ArrayType{Elem: I8, Len: 4}
	b := ArrayType{Elem: I8, Len: 4}
	c := ArrayType{Elem: I8, Len: 8}

	assert.True(t, SameType(a, b))
	assert.False(t, SameType(a, c))
}

func TestSameTypeNamedStructsByName(t *testing.T) {
	a := StructType{Name: "Point", Fields: []Type{I64, I64}}
	b := StructType{Name: "Point", Fields: []Type{I32}}

	assert.True(t, SameType(a, b), "named structs compare by name only")
}

func TestVoid(t *testing.T) {
	assert.True(t, Void(VoidType{}))
	assert.False(t, Void(I64))
}
