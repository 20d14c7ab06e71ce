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

// Package cfc is the thin surface a control-flow-checking collaborator
// (CFCSS, RASM, or an inter-procedural variant) plugs into. Assigning
// and verifying basic-block signatures is explicitly out of scope for
// the data-duplication core in internal/harden; this package only
// names the modes, exposes the one constant a real implementation
// needs, and gives it somewhere to register.
package cfc

import (
	"github.com/sword-hardening/eddi/internal/harden"
	"github.com/sword-hardening/eddi/internal/ir"
)

// Mode selects which control-flow-checking scheme a registered
// signature pass implements, mirroring Config.CFCMode's string values
// ("cfcss", "rasm", "interrasm").
type Mode int

const (
	CFCSS Mode = iota
	RASM
	InterRASM
)

func (m Mode) String() string {
	switch m {
	case CFCSS:
		return "cfcss"
	case RASM:
		return "rasm"
	case InterRASM:
		return "interrasm"
	default:
		return "unknown"
	}
}

// ParseMode maps a Config.CFCMode string to a Mode, defaulting to CFCSS
// on an unrecognized value rather than failing the pipeline over an
// entirely optional feature.
func ParseMode(s string) Mode {
	switch s {
	case "rasm":
		return RASM
	case "interrasm":
		return InterRASM
	default:
		return CFCSS
	}
}

// DefaultInterRASMSignature is the documented default signature value
// an inter-procedural RASM implementation assigns to a block before any
// real signature is computed for it, per §6's table.
const DefaultInterRASMSignature int64 = -0xDEAD

// NoSignatures is the default, no-op collaborator: it leaves every
// block's signature unassigned. A module run with it gets EDDI's data
// duplication and consistency checks (internal/harden) but no
// control-flow checking at all, which is a valid, documented
// configuration rather than a half-finished one.
type NoSignatures struct{}

func (NoSignatures) Apply(mod *ir.Module, st *harden.State) error { return nil }

// registry holds the signature passes a downstream tool has plugged in
// for a given mode, consulted by callers that want CFC without this
// module needing to implement CFCSS/RASM itself.
var registry = map[Mode]harden.Pass{}

// RegisterSignaturePass lets a downstream tool install a real signature
// pass for m, to be run after internal/harden's own pipeline completes
// (signature assignment needs the final, duplicated+checked CFG, not
// the pre-hardening one). Registering nil clears any existing entry.
func RegisterSignaturePass(m Mode, pass harden.Pass) {
	if pass == nil {
		delete(registry, m)
		return
	}
	registry[m] = pass
}

// SignaturePassFor returns the pass registered for m, or NoSignatures
// if none has been installed.
func SignaturePassFor(m Mode) harden.Pass {
	if pass, ok := registry[m]; ok {
		return pass
	}
	return NoSignatures{}
}
