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

import "os"

// DuplicationMode selects which synchronization points CheckInserter
// instruments, mirroring the "duplication-mode: eddi/seddi/fdsc" option.
type DuplicationMode int

const (
	ModeEDDI  DuplicationMode = iota // checks at every store and branch
	ModeSEDDI                        // checks at branches and calls only
	ModeFDSC                         // EDDI's sync points, but only at multi-predecessor blocks
)

func parseMode(s string) (DuplicationMode, bool) {
	switch s {
	case "eddi":
		return ModeEDDI, true
	case "seddi":
		return ModeSEDDI, true
	case "fdsc":
		return ModeFDSC, true
	default:
		return ModeEDDI, false
	}
}

// SyncPoints reports which instruction classes m treats as
// synchronization points.
func (m DuplicationMode) SyncPoints() (stores, calls, branches bool) {
	switch m {
	case ModeSEDDI:
		return false, true, true
	case ModeFDSC:
		return true, false, true
	default:
		return true, false, true
	}
}

// MultiPredOnly reports whether m restricts checks to blocks with more
// than one predecessor (FDSC's "selective checking").
func (m DuplicationMode) MultiPredOnly() bool { return m == ModeFDSC }

// Config holds every tunable named by spec §6. Defaults are read once
// from the environment at package init, the way the teacher's
// internal/opts package reads FRUGAL_MAX_INLINE_DEPTH once into
// opts.MaxInlineDepth; functional Options in the top-level package then
// override individual fields per call.
type Config struct {
	Mode            DuplicationMode
	AlternateMemMap bool
	DupSection      string
	DebugInfo       bool
	CFCMode         string
	ExcludeNames    []string
	Parallel        bool
	Debug           bool
}

var (
	defaultMode            = parseModeOrDefault("EDDI_DUPLICATION_MODE", ModeEDDI)
	defaultAlternateMemMap = parseBoolOrDefault("EDDI_ALTERNATE_MEMMAP", false)
	defaultDupSection      = parseStringOrDefault("EDDI_DUP_SECTION", ".dup")
	defaultDebugInfo       = parseBoolOrDefault("EDDI_DEBUG_INFO", true)
	defaultCFCMode         = parseStringOrDefault("EDDI_CFC_MODE", "cfcss")
)

func parseModeOrDefault(key string, def DuplicationMode) DuplicationMode {
	env := os.Getenv(key)
	if env == "" {
		return def
	}
	if m, ok := parseMode(env); ok {
		return m
	}
	panic("harden: invalid value for " + key)
}

func parseBoolOrDefault(key string, def bool) bool {
	switch os.Getenv(key) {
	case "":
		return def
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	default:
		panic("harden: invalid value for " + key)
	}
}

func parseStringOrDefault(key string, def string) string {
	if env := os.Getenv(key); env != "" {
		return env
	}
	return def
}

// DefaultConfig returns the package defaults (overridable at process
// start via the EDDI_* environment variables).
func DefaultConfig() Config {
	return Config{
		Mode:            defaultMode,
		AlternateMemMap: defaultAlternateMemMap,
		DupSection:      defaultDupSection,
		DebugInfo:       defaultDebugInfo,
		CFCMode:         defaultCFCMode,
	}
}
