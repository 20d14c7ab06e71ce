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

// Annotation is a user-supplied classification of a Value.
type Annotation int

const (
	AnnotateNone Annotation = iota
	AnnotateToHarden
	AnnotateToDuplicate
	AnnotateExclude
	AnnotateRuntimeSig
	AnnotateRunAdjSig
)

func (a Annotation) String() string {
	switch a {
	case AnnotateToHarden:
		return "to_harden"
	case AnnotateToDuplicate:
		return "to_duplicate"
	case AnnotateExclude:
		return "exclude"
	case AnnotateRuntimeSig:
		return "runtime_sig"
	case AnnotateRunAdjSig:
		return "run_adj_sig"
	default:
		return "none"
	}
}

// AnnotationEntry is one record of the front-end-produced annotation
// array: either a Value or a Function (never both — Function is not a
// Value in this IR, since call targets and vtable slots address it
// through its own *Function identity rather than through Value) paired
// with a string literal naming its annotation, plus an optional alias
// target. A Value entry with Aliasee set is itself an alias; the
// annotation-collection pass resolves it to Aliasee and rewrites all of
// the alias's uses to point at the aliasee directly.
type AnnotationEntry struct {
	Value   Value     // nil if Func is set
	Func    *Function // nil if Value is set
	Literal string
	Aliasee Value // non-nil if Value is an alias
}

// Annotations is the module's raw annotation array together with the
// annotation-collection pass's resolved Annotations maps. Module.Annotations
// starts out holding only Raw; the collection pass populates Resolved and
// ResolvedFuncs.
type Annotations struct {
	Raw           []AnnotationEntry
	Resolved      map[Value]Annotation
	ResolvedFuncs map[*Function]Annotation
}

func literalToAnnotation(lit string) (Annotation, bool) {
	switch lit {
	case "to_harden":
		return AnnotateToHarden, true
	case "to_duplicate":
		return AnnotateToDuplicate, true
	case "exclude":
		return AnnotateExclude, true
	case "runtime_sig":
		return AnnotateRuntimeSig, true
	case "run_adj_sig":
		return AnnotateRunAdjSig, true
	default:
		return AnnotateNone, false
	}
}

// LiteralAnnotation resolves an AnnotationEntry's string literal to its
// Annotation constant. Unrecognized literals resolve to (AnnotateNone,
// false); the annotation-collection pass treats that as "no annotation"
// rather than an error, since front ends may emit unrelated annotations
// in the same array.
func LiteralAnnotation(lit string) (Annotation, bool) {
	return literalToAnnotation(lit)
}

// Module is an ordered collection of global values and functions.
type Module struct {
	Name        string
	Globals     []*Global
	Funcs       []*Function
	Annotations *Annotations
	GlobalCtors *GlobalCtorList
}

// NewModule creates an empty Module ready for a host compiler to
// populate via AddGlobal/AddFunc before the hardening pipeline runs.
func NewModule(name string) *Module {
	return &Module{
		Name: name,
		Annotations: &Annotations{
			Resolved:      make(map[Value]Annotation),
			ResolvedFuncs: make(map[*Function]Annotation),
		},
	}
}

func (m *Module) AddGlobal(g *Global) { m.Globals = append(m.Globals, g) }
func (m *Module) AddFunc(f *Function)  { m.Funcs = append(m.Funcs, f) }

// FindFunc looks up a function by name.
func (m *Module) FindFunc(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FindGlobal looks up a global by name.
func (m *Module) FindGlobal(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Annotate records a raw annotation entry targeting a Value, prior to
// running annotation collection.
func (m *Module) Annotate(v Value, literal string) {
	m.Annotations.Raw = append(m.Annotations.Raw, AnnotationEntry{Value: v, Literal: literal})
}

// AnnotateFunc records a raw annotation entry targeting a Function.
func (m *Module) AnnotateFunc(f *Function, literal string) {
	m.Annotations.Raw = append(m.Annotations.Raw, AnnotationEntry{Func: f, Literal: literal})
}
