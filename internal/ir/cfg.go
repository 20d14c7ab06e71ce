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

// Succs returns bb's successor blocks in terminator order, draining a
// Successors iterator the way the teacher's dominator builder drains
// IrSuccessors (ssa/dominator.go's dfs).
func Succs(bb *BasicBlock) []*BasicBlock {
	if bb.Term == nil {
		return nil
	}
	var out []*BasicBlock
	it := bb.Term.Successors()
	for it.Next() {
		out = append(out, it.Block())
	}
	return out
}

// PostOrder walks f's reachable blocks in post-order starting at Entry,
// grounded on the teacher's CFG.PostOrder (referenced from
// ssa/pass_tdce.go, ssa/pass_copyelim.go).
func PostOrder(f *Function, visit func(*BasicBlock)) {
	seen := make(map[*BasicBlock]bool)
	var walk func(*BasicBlock)
	walk = func(bb *BasicBlock) {
		if bb == nil || seen[bb] {
			return
		}
		seen[bb] = true
		for _, s := range Succs(bb) {
			walk(s)
		}
		visit(bb)
	}
	walk(f.Entry)
}

// ReversePostOrder walks f's reachable blocks in reverse post-order,
// grounded on ssa.CFG.ReversePostOrder (ssa/pass_copyelim.go).
func ReversePostOrder(f *Function, visit func(*BasicBlock)) {
	var order []*BasicBlock
	PostOrder(f, func(bb *BasicBlock) { order = append(order, bb) })
	for i := len(order) - 1; i >= 0; i-- {
		visit(order[i])
	}
}

// Reachable reports whether to is reachable from f.Entry at all.
func Reachable(f *Function, to *BasicBlock) bool {
	found := false
	PostOrder(f, func(bb *BasicBlock) {
		if bb == to {
			found = true
		}
	})
	return found
}

// SplitBlock splits bb immediately before the instruction at index idx
// (or before the terminator if idx == len(bb.Ins)), returning the new
// successor block that inherits the tail. The predecessor bb keeps its
// ID and an unconditional Br to the new block; callers that need a
// third, empty "verification" block in between follow it with
// InsertEmptyBlock.
// This mirrors the block-splitting bookkeeping style of the
// teacher's pass_blockmerge.go (Pred list and Phi incoming-edge fixups),
// run in reverse.
func SplitBlock(bb *BasicBlock, idx int) *BasicBlock {
	f := bb.Func
	tail := &BasicBlock{ID: f.NewBlockID(), Func: f}
	tail.Ins = append(tail.Ins, bb.Ins[idx:]...)
	for _, i := range tail.Ins {
		i.setBlock(tail)
	}
	tail.Term = bb.Term
	bb.Ins = bb.Ins[:idx]

	f.AddBlock(tail)

	for _, s := range Succs(tail) {
		s.removePred(bb)
		s.addPred(tail)
		for _, p := range s.Phis {
			if v, ok := p.Incoming[bb]; ok {
				p.Incoming[tail] = v
				delete(p.Incoming, bb)
			}
		}
	}

	tail.addPred(bb)
	bb.Term = &Br{Target: tail}
	return tail
}

// InsertEmptyBlock splices a new empty block between pred and succ: pred's
// terminator is retargeted from succ to the new block, and succ's Pred/Phi
// bookkeeping is updated to point at it instead of pred. Used by the
// consistency-check inserter to place a verification block on the single
// edge SplitBlock just created, mirroring the same Pred/Phi fixup style
// SplitBlock itself uses (grounded on the teacher's
// pass_blockmerge.go/pass_splitcritical.go).
func InsertEmptyBlock(pred, succ *BasicBlock, f *Function) *BasicBlock {
	mid := &BasicBlock{ID: f.NewBlockID(), Func: f}
	f.AddBlock(mid)

	retarget(pred.Term, succ, mid)

	succ.removePred(pred)
	succ.addPred(mid)
	for _, p := range succ.Phis {
		if v, ok := p.Incoming[pred]; ok {
			p.Incoming[mid] = v
			delete(p.Incoming, pred)
		}
	}

	mid.addPred(pred)
	mid.Term = &Br{Target: succ}
	return mid
}

func retarget(term Terminator, from, to *BasicBlock) {
	switch t := term.(type) {
	case *Br:
		if t.Target == from {
			t.Target = to
		}
	case *CondBr:
		if t.True == from {
			t.True = to
		}
		if t.False == from {
			t.False = to
		}
	case *Switch:
		if t.Default == from {
			t.Default = to
		}
		for k, b := range t.Cases {
			if b == from {
				t.Cases[k] = to
			}
		}
	case *IndirectBr:
		for i, b := range t.Targets {
			if b == from {
				t.Targets[i] = to
			}
		}
	}
}
