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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sword-hardening/eddi/internal/ir"
)

func TestAnnotationCollectorResolvesFuncAnnotation(t *testing.T) {
	mod := ir.NewModule("m")
	f := &ir.Function{Name: "f"}
	mod.AddFunc(f)
	mod.AnnotateFunc(f, "to_harden")

	st := newState(DefaultConfig())
	require := &AnnotationCollector{}
	err := require.Apply(mod, st)

	assert.NoError(t, err)
	assert.Equal(t, ir.AnnotateToHarden, mod.Annotations.ResolvedFuncs[f])
}

func TestAnnotationCollectorReportsConflictAndKeepsFirst(t *testing.T) {
	mod := ir.NewModule("m")
	f := &ir.Function{Name: "f"}
	mod.AddFunc(f)
	mod.AnnotateFunc(f, "to_harden")
	mod.AnnotateFunc(f, "exclude")

	st := newState(DefaultConfig())
	p := &AnnotationCollector{}
	err := p.Apply(mod, st)

	assert.NoError(t, err)
	assert.Equal(t, ir.AnnotateToHarden, mod.Annotations.ResolvedFuncs[f])
	assert.Len(t, st.Diags.Errors(), 1)
	var conflict *AnnotationConflict
	assert.ErrorAs(t, st.Diags.Errors()[0], &conflict)
	assert.Equal(t, "f", conflict.Value)
}

func TestAnnotationCollectorForcesExcludeOnVolatileGlobal(t *testing.T) {
	mod := ir.NewModule("m")
	g := &ir.Global{Name: "g", Typ: ir.I64, Volatile: true}
	mod.AddGlobal(g)
	mod.Annotate(ir.Value(g), "to_harden")

	st := newState(DefaultConfig())
	p := &AnnotationCollector{}
	err := p.Apply(mod, st)

	assert.NoError(t, err)
	assert.Equal(t, ir.AnnotateExclude, mod.Annotations.Resolved[ir.Value(g)])
}

func TestAnnotationCollectorResolvesAliasToAliasee(t *testing.T) {
	mod := ir.NewModule("m")
	f := &ir.Function{Name: "f"}
	bb := &ir.BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(bb)
	f.Entry = bb

	real := &ir.Alloca{Elem: ir.I64, Name: "real"}
	alias := &ir.Alloca{Elem: ir.I64, Name: "alias"}
	bb.Append(real)
	bb.Append(&ir.Load{Addr: alias, Elem: ir.I64})
	bb.Term = &ir.Ret{Val: nil}
	mod.AddFunc(f)

	mod.Annotations.Raw = append(mod.Annotations.Raw, ir.AnnotationEntry{
		Value:   ir.Value(alias),
		Literal: "to_harden",
		Aliasee: ir.Value(real),
	})

	st := newState(DefaultConfig())
	p := &AnnotationCollector{}
	err := p.Apply(mod, st)

	assert.NoError(t, err)
	assert.Equal(t, ir.AnnotateToHarden, mod.Annotations.Resolved[ir.Value(real)])
	load := bb.Ins[1].(*ir.Load)
	assert.Same(t, real, load.Addr)
}

func TestExcludeListPassMarksDeclarationsIntrinsicsAndGlobs(t *testing.T) {
	mod := ir.NewModule("m")
	decl := &ir.Function{Name: "decl"}
	intrin := &ir.Function{Name: "intrin", Intrinsic: true}
	matched := &ir.Function{Name: "internal_helper"}
	bb := &ir.BasicBlock{ID: matched.NewBlockID(), Func: matched}
	matched.AddBlock(bb)
	matched.Entry = bb
	bb.Term = &ir.Ret{Val: nil}
	// kept has internal linkage: it is never visible to another
	// translation unit, so the default-exclude-on-linkage policy leaves
	// it alone.
	kept := &ir.Function{Name: "keep_me", Linkage: ir.LinkageInternal}
	bb2 := &ir.BasicBlock{ID: kept.NewBlockID(), Func: kept}
	kept.AddBlock(bb2)
	kept.Entry = bb2
	bb2.Term = &ir.Ret{Val: nil}

	mod.AddFunc(decl)
	mod.AddFunc(intrin)
	mod.AddFunc(matched)
	mod.AddFunc(kept)

	cfg := DefaultConfig()
	cfg.ExcludeNames = []string{"internal_*"}
	st := newState(cfg)
	p := &ExcludeListPass{}
	err := p.Apply(mod, st)
	assert.NoError(t, err)

	byLiteral := func(f *ir.Function) string {
		for _, e := range mod.Annotations.Raw {
			if e.Func == f {
				return e.Literal
			}
		}
		return ""
	}
	assert.Equal(t, "exclude", byLiteral(decl))
	assert.Equal(t, "exclude", byLiteral(intrin))
	assert.Equal(t, "exclude", byLiteral(matched))
	assert.Equal(t, "", byLiteral(kept))
}

// TestExcludeListPassDefaultsExternallyVisibleDefinitionsToExcluded
// covers the actual original_source/passes/MarkToExclude.cpp:41-94
// policy: a strong, externally-visible function or global definition is
// defaulted to "exclude" unless it already opted in via "to_duplicate",
// while internal-linkage symbols and reserved "llvm."-prefixed names are
// left untouched.
func TestExcludeListPassDefaultsExternallyVisibleDefinitionsToExcluded(t *testing.T) {
	mod := ir.NewModule("m")

	strong := &ir.Function{Name: "publicApi", Linkage: ir.LinkageExternal}
	bbStrong := &ir.BasicBlock{ID: strong.NewBlockID(), Func: strong}
	strong.AddBlock(bbStrong)
	strong.Entry = bbStrong
	bbStrong.Term = &ir.Ret{Val: nil}

	optedIn := &ir.Function{Name: "publicHelper", Linkage: ir.LinkageExternal}
	bbOptedIn := &ir.BasicBlock{ID: optedIn.NewBlockID(), Func: optedIn}
	optedIn.AddBlock(bbOptedIn)
	optedIn.Entry = bbOptedIn
	bbOptedIn.Term = &ir.Ret{Val: nil}

	internalFn := &ir.Function{Name: "helper", Linkage: ir.LinkageInternal}
	bbInternal := &ir.BasicBlock{ID: internalFn.NewBlockID(), Func: internalFn}
	internalFn.AddBlock(bbInternal)
	internalFn.Entry = bbInternal
	bbInternal.Term = &ir.Ret{Val: nil}

	reserved := &ir.Function{Name: "llvm.memcpy.p0i8.p0i8.i64", Linkage: ir.LinkageExternal}
	bbReserved := &ir.BasicBlock{ID: reserved.NewBlockID(), Func: reserved}
	reserved.AddBlock(bbReserved)
	reserved.Entry = bbReserved
	bbReserved.Term = &ir.Ret{Val: nil}

	mod.AddFunc(strong)
	mod.AddFunc(optedIn)
	mod.AddFunc(internalFn)
	mod.AddFunc(reserved)
	mod.AnnotateFunc(optedIn, "to_duplicate")

	strongGlobal := &ir.Global{Name: "counter", Typ: ir.I64, Linkage: ir.LinkageExternal, Init: ir.ConstInt{Typ: ir.I64, V: 0}}
	declGlobal := &ir.Global{Name: "extern_counter", Typ: ir.I64, Linkage: ir.LinkageExternal}
	mod.AddGlobal(strongGlobal)
	mod.AddGlobal(declGlobal)

	st := newState(DefaultConfig())
	p := &ExcludeListPass{}
	err := p.Apply(mod, st)
	assert.NoError(t, err)

	funcLiterals := func(f *ir.Function) []string {
		var out []string
		for _, e := range mod.Annotations.Raw {
			if e.Func == f {
				out = append(out, e.Literal)
			}
		}
		return out
	}
	assert.Equal(t, []string{"exclude"}, funcLiterals(strong))
	assert.Equal(t, []string{"to_duplicate"}, funcLiterals(optedIn), "an explicit to_duplicate annotation suppresses the synthetic exclude")
	assert.Empty(t, funcLiterals(internalFn), "internal linkage is never externally visible, so it is left alone")
	assert.Empty(t, funcLiterals(reserved), "reserved llvm.-prefixed names are never touched")

	valLiterals := func(v ir.Value) []string {
		var out []string
		for _, e := range mod.Annotations.Raw {
			if e.Value == v {
				out = append(out, e.Literal)
			}
		}
		return out
	}
	assert.Equal(t, []string{"exclude"}, valLiterals(ir.Value(strongGlobal)))
	assert.Empty(t, valLiterals(ir.Value(declGlobal)), "a global with no initializer is a declaration, not a strong definition")
}
