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

// Package eddi hardens a module against transient data faults by
// duplicating its protected computation and globals and inserting
// comparisons between the two copies, in the style of Error Detection
// by Duplicated Instructions. The actual pass pipeline lives in
// internal/harden; this package is a thin, stable entry point over it.
package eddi

import (
	"github.com/sword-hardening/eddi/internal/harden"
	"github.com/sword-hardening/eddi/internal/ir"
)

// Harden runs the full C1-C9 pass pipeline over mod in place, applying
// every Option before the first pass runs. It returns the run's Report
// (the list of functions whose bodies were duplicated) together with
// any error; a non-nil error is always the pipeline's fatal category
// (malformed input IR) — everything else accumulates as a non-fatal
// diagnostic, which Harden does not return; Diagnose returns them.
func Harden(mod *ir.Module, opts ...Option) (*harden.Report, error) {
	cfg := harden.DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	st, err := harden.Run(mod, cfg)
	if st == nil {
		return nil, err
	}
	return st.Report, err
}

// Diagnose runs the pipeline exactly as Harden does, but returns the
// full diagnostics list alongside the report instead of discarding it,
// for callers that want to inspect non-fatal findings (skipped vtables,
// conflicting annotations, and the like).
func Diagnose(mod *ir.Module, opts ...Option) (*harden.Report, []error, error) {
	cfg := harden.DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	st, err := harden.Run(mod, cfg)
	if st == nil {
		return nil, nil, err
	}
	return st.Report, st.Diags.Errors(), err
}

// NewModule starts an empty module, re-exported from internal/ir so
// callers building IR to harden never need to import internal/ir
// themselves.
func NewModule(name string) *ir.Module { return ir.NewModule(name) }

// Annotation re-exports internal/ir's annotation kind, assigned to a
// value or function via Module.Annotate / Module.AnnotateFunc before
// Harden runs.
type Annotation = ir.Annotation

const (
	AnnotateNone        = ir.AnnotateNone
	AnnotateToHarden    = ir.AnnotateToHarden
	AnnotateToDuplicate = ir.AnnotateToDuplicate
	AnnotateExclude     = ir.AnnotateExclude
	AnnotateRuntimeSig  = ir.AnnotateRuntimeSig
	AnnotateRunAdjSig   = ir.AnnotateRunAdjSig
)
