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

// Cloner is implemented by every non-terminator instruction; terminators
// are deliberately not cloneable since control flow is shared rather
// than duplicated. The instruction duplication pass calls Clone to
// obtain a fresh, detached copy before rewriting its operands to their
// duplicates.
type Cloner interface {
	Clone() Instruction
}

func (a *Alloca) Clone() Instruction {
	return &Alloca{Elem: a.Elem, Name: a.Name + "_dup"}
}

func (l *Load) Clone() Instruction {
	return &Load{Addr: l.Addr, Elem: l.Elem}
}

func (s *Store) Clone() Instruction {
	return &Store{Val: s.Val, Addr: s.Addr}
}

func (b *BinOp) Clone() Instruction {
	return &BinOp{Op: b.Op, Typ: b.Typ, X: b.X, Y: b.Y}
}

func (u *UnOp) Clone() Instruction {
	return &UnOp{Op: u.Op, Typ: u.Typ, X: u.X}
}

func (c *Cmp) Clone() Instruction {
	return &Cmp{Pred: c.Pred, Float: c.Float, X: c.X, Y: c.Y}
}

func (g *GEP) Clone() Instruction {
	idx := make([]Value, len(g.Indices))
	copy(idx, g.Indices)
	return &GEP{Base: g.Base, Elem: g.Elem, Indices: idx}
}

func (p *Phi) Clone() Instruction {
	inc := make(map[*BasicBlock]*Value, len(p.Incoming))
	for bb, v := range p.Incoming {
		vv := *v
		inc[bb] = &vv
	}
	return &Phi{Typ: p.Typ, Incoming: inc}
}

func (s *Select) Clone() Instruction {
	return &Select{Typ: s.Typ, Cond: s.Cond, X: s.X, Y: s.Y}
}

func (c *Cast) Clone() Instruction {
	return &Cast{Op: c.Op, To: c.To, X: c.X}
}

func (c *Call) Clone() Instruction {
	args := make([]Value, len(c.Args))
	copy(args, c.Args)
	return &Call{Target: c.Target, Args: args, Typ: c.Typ, Invoke: c.Invoke, NormalDest: c.NormalDest, UnwindDest: c.UnwindDest}
}

func (n *Intrinsic) Clone() Instruction {
	args := make([]Value, len(n.Args))
	copy(args, n.Args)
	return &Intrinsic{Name: n.Name, Args: args, Typ: n.Typ}
}

func (a *AtomicRMW) Clone() Instruction {
	return &AtomicRMW{Op: a.Op, Addr: a.Addr, Val: a.Val, Typ: a.Typ}
}

func (c *CmpXchg) Clone() Instruction {
	return &CmpXchg{Addr: c.Addr, Cmp: c.Cmp, New: c.New, Typ: c.Typ}
}

// Identical reports whether two instructions of the same concrete type
// have pointer-equal operands. After rewriting a clone's operands to
// their duplicates, a clone that ends up byte-identical to the original
// carries no protection and is deleted before any DuplicateMap entry is
// made for it.
func Identical(a, b Instruction) bool {
	switch x := a.(type) {
	case *Store:
		y, ok := b.(*Store)
		return ok && x.Val == y.Val && x.Addr == y.Addr
	case *AtomicRMW:
		y, ok := b.(*AtomicRMW)
		return ok && x.Op == y.Op && x.Addr == y.Addr && x.Val == y.Val
	case *CmpXchg:
		y, ok := b.(*CmpXchg)
		return ok && x.Addr == y.Addr && x.Cmp == y.Cmp && x.New == y.New
	default:
		return false
	}
}
