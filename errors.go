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

package eddi

import "github.com/sword-hardening/eddi/internal/harden"

// StructuralError marks a single entity (a vtable, a constructor) that
// failed a shape precondition; the pass that found it skips the entity
// and continues, and the error is reported only through Diagnose.
type StructuralError = harden.StructuralError

// AnnotationConflict records a value or function that carried more
// than one annotation; all but the first are discarded.
type AnnotationConflict = harden.AnnotationConflict

// MalformedIRError is fatal: the input module is ill-formed in a way no
// pass can locally route around. Harden and Diagnose return it as the
// second (or third) result rather than as a diagnostic.
type MalformedIRError = harden.MalformedIRError
