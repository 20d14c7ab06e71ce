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

// Package harden implements the C1-C9 EDDI duplication pipeline.
package harden

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// StructuralError marks a precondition a single entity failed to meet
// (e.g. a vtable initializer with the wrong shape). The pass that finds
// it logs it, skips the entity, and continues — the module stays valid.
type StructuralError struct {
	Entity string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("harden: %s: %s", e.Entity, e.Reason)
}

// AnnotationConflict records a value that carried more than one
// annotation; all but the first are discarded.
type AnnotationConflict struct {
	Value     string
	Kept      string
	Discarded []string
}

func (e *AnnotationConflict) Error() string {
	return fmt.Sprintf("harden: %s has conflicting annotations, kept %q, discarded %v", e.Value, e.Kept, e.Discarded)
}

// MalformedIRError is fatal: the input module is ill-formed in a way no
// pass can locally route around. Run aborts and returns it unwrapped.
type MalformedIRError struct {
	Function    string
	Instruction string
	Reason      string
}

func (e *MalformedIRError) Error() string {
	return fmt.Sprintf("harden: malformed IR in %s at %s: %s", e.Function, e.Instruction, e.Reason)
}

// Diagnostics accumulates the non-fatal diagnostics raised while running
// the pipeline (StructuralError, AnnotationConflict). It is returned
// alongside the fatal error (if any) from Run.
type Diagnostics struct {
	entries []error
}

func (d *Diagnostics) Add(err error) {
	d.entries = append(d.entries, err)
}

func (d *Diagnostics) Errors() []error { return d.entries }

func (d *Diagnostics) Empty() bool { return len(d.entries) == 0 }

// Dump pretty-prints the diagnostics collection, for the same kind of
// ad-hoc debugging the teacher's register allocator does with spew.Sdump.
func (d *Diagnostics) Dump() string {
	return spew.Sdump(d.entries)
}
