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

// Uses walks every phi and instruction in the blocks reachable in f and
// returns those that reference v as an operand; terminators are not
// searched. There is no persistent
// use-list in this IR (mirroring the teacher's recompute-on-demand
// style rather than maintained def-use chains); callers that need this
// repeatedly within one pass should cache the result.
func Uses(f *Function, v Value) []Instruction {
	var out []Instruction
	PostOrder(f, func(bb *BasicBlock) {
		for _, p := range bb.Phis {
			for _, u := range p.Usages() {
				if *u == v {
					out = append(out, p)
					break
				}
			}
		}
		for _, ins := range bb.Ins {
			for _, u := range ins.Usages() {
				if *u == v {
					out = append(out, ins)
					break
				}
			}
		}
	})
	return out
}

// StripNoopCasts walks through bitcast / zero-offset-GEP chains to find
// the underlying pointer value, grounded on EDDI.cpp's getPtrFinalValue
// (original_source/passes/EDDI.cpp): two pointer values that resolve to
// the same underlying value after stripping no-op casts are provably
// the same address and a consistency check comparing them would be
// vacuous.
func StripNoopCasts(v Value) Value {
	for {
		switch x := v.(type) {
		case *Cast:
			if x.Op == CastBitcast {
				v = x.X
				continue
			}
		case *GEP:
			if allZero(x.Indices) {
				v = x.Base
				continue
			}
		case ConstGEP:
			if allZeroConst(x.Indices) {
				v = x.Base
				continue
			}
		}
		return v
	}
}

func allZero(vs []Value) bool {
	for _, v := range vs {
		c, ok := v.(ConstInt)
		if !ok || c.V != 0 {
			return false
		}
	}
	return true
}

func allZeroConst(vs []int64) bool {
	for _, v := range vs {
		if v != 0 {
			return false
		}
	}
	return true
}
