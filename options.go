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

import (
	"fmt"

	"github.com/sword-hardening/eddi/internal/harden"
)

// Option is the property setter function for harden.Config, applied in
// order by Harden/Diagnose before the pipeline runs.
type Option func(*harden.Config)

// WithMode selects which synchronization points CheckInserter
// instruments: "eddi" (every store and branch), "seddi" (branches and
// calls only), or "fdsc" (EDDI's sync points, restricted to
// multi-predecessor blocks). The default, absent this option, is read
// from EDDI_DUPLICATION_MODE at process start.
func WithMode(mode string) Option {
	m, ok := parseModeOption(mode)
	if !ok {
		panic(fmt.Sprintf("eddi: invalid duplication mode: %q", mode))
	}
	return func(c *harden.Config) { c.Mode = m }
}

func parseModeOption(s string) (harden.DuplicationMode, bool) {
	switch s {
	case "eddi":
		return harden.ModeEDDI, true
	case "seddi":
		return harden.ModeSEDDI, true
	case "fdsc":
		return harden.ModeFDSC, true
	default:
		return harden.ModeEDDI, false
	}
}

// WithAlternateMemMap selects interleaved duplicate layout
// (orig1,dup1,orig2,dup2,...) over the default segregated layout
// (orig1..origN,dup1..dupN) for doubled globals, parameters, and call
// arguments.
func WithAlternateMemMap(v bool) Option {
	return func(c *harden.Config) { c.AlternateMemMap = v }
}

// WithDupSection names the linker section duplicated globals are placed
// into, when the target supports section placement.
func WithDupSection(section string) Option {
	return func(c *harden.Config) { c.DupSection = section }
}

// WithDebugInfo sets Config.DebugInfo. No pass reads the field: the IR
// has no debug locations, so synthesized instructions carry none either
// way.
func WithDebugInfo(v bool) Option {
	return func(c *harden.Config) { c.DebugInfo = v }
}

// WithCFCMode records which control-flow-checking scheme a downstream
// internal/cfc signature pass should target; internal/harden itself
// never reads the control-flow side of this value, only carries it.
func WithCFCMode(mode string) Option {
	return func(c *harden.Config) { c.CFCMode = mode }
}

// WithExcludeNames adds glob patterns naming functions ExcludeListPass
// should mark "exclude" before protection closure runs, in addition to
// the automatic exclusion of declaration-only and intrinsic functions.
func WithExcludeNames(patterns ...string) Option {
	return func(c *harden.Config) { c.ExcludeNames = append(c.ExcludeNames, patterns...) }
}

// WithParallel enables per-function fan-out of C5-C7's body-duplication
// work across a bounded worker pool. The default is serial.
func WithParallel(v bool) Option {
	return func(c *harden.Config) { c.Parallel = v }
}

// WithDebug enables the pipeline's internal consistency self-checks
// (DuplicateMap symmetry) after every pass, at the cost of an extra
// full-map walk per pass.
func WithDebug(v bool) Option {
	return func(c *harden.Config) { c.Debug = v }
}
