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

// MetadataSection is the reserved section name that forces a global to
// be excluded from duplication.
const MetadataSection = "llvm.metadata"

// Global is a module-level variable. Duplicates created by the global
// duplication pass are ordinary Globals with a "_dup" name suffix;
// there is no separate "is a duplicate" bit, since the DuplicateMap is
// the single source of truth for duplicate relationships.
type Global struct {
	Name        string
	Typ         Type
	Linkage     Linkage
	Init        Constant // nil if uninitialized
	Section     string
	Align       int
	ThreadLocal bool
	DSOLocal    bool
	AddrSpace   int
	Volatile    bool
	Constant    bool
}

func (g *Global) ValueType() Type { return PointerType{Elem: g.Typ} }
func (g *Global) String() string  { return "@" + g.Name }

// GlobalCtorList is the module's reserved "llvm.global_ctors"-equivalent
// array of {priority, ctor, data} entries. The constructor-list fixup
// pass rewrites it in place so each entry points at the duplicated
// constructor where one exists.
type GlobalCtorList struct {
	Global  *Global
	Entries []CtorEntry
}

type CtorEntry struct {
	Priority int64
	Ctor     *Function
	Data     Constant
}
