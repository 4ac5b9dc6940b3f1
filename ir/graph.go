// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ir implements a data-flow graph of tensor operations
// manipulating slices and shapes of tensors.
//
// Operations are stored in an arena owned by a Graph. Each operation
// produces a single value, identified by a Value index in the arena.
// The graph keeps track of the number of uses of each value so that
// rewrites can redirect uses and remove dead operations.
package ir

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// Value is the result of an operation in a graph.
type Value int

// NoValue is the invalid value.
const NoValue Value = 0

// String representation of the value.
func (v Value) String() string {
	return fmt.Sprintf("%%%d", int(v))
}

type (
	result struct {
		def    Op
		typ    Type
		uses   int
		erased bool
	}

	// Graph is an arena of operations.
	// The order of the operations is a topological order of the graph.
	Graph struct {
		results []*result
		ops     []Op
		outputs []Value
		names   *uniqueNames

		insertBefore Op
	}
)

// NewGraph returns a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		results: []*result{nil},
		names:   newUniqueNames(),
	}
}

func (g *Graph) res(v Value) *result {
	if v <= NoValue || int(v) >= len(g.results) {
		return nil
	}
	return g.results[v]
}

func (g *Graph) checkLive(v Value) error {
	r := g.res(v)
	if r == nil {
		return errors.Errorf("value %s does not exist in the graph", v.String())
	}
	if r.erased {
		return errors.Errorf("value %s has been erased", v.String())
	}
	return nil
}

// Ops returns the live operations in topological order.
func (g *Graph) Ops() []Op {
	return slices.Clone(g.ops)
}

// NumOps returns the number of live operations.
func (g *Graph) NumOps() int {
	return len(g.ops)
}

// DefiningOp returns the operation producing a value or nil if the value does not exist.
func (g *Graph) DefiningOp(v Value) Op {
	r := g.res(v)
	if r == nil || r.erased {
		return nil
	}
	return r.def
}

// DefiningOpOf returns the operation producing a value if it is of type T.
func DefiningOpOf[T Op](g *Graph, v Value) (T, bool) {
	op, ok := g.DefiningOp(v).(T)
	return op, ok
}

// TypeOf returns the type of a value or nil if the value does not exist.
func (g *Graph) TypeOf(v Value) Type {
	r := g.res(v)
	if r == nil {
		return nil
	}
	return r.typ
}

// TensorTypeOf returns the tensor type of a value.
func (g *Graph) TensorTypeOf(v Value) (TensorType, error) {
	if err := g.checkLive(v); err != nil {
		return TensorType{}, err
	}
	return AsTensor(g.TypeOf(v))
}

// NumUses returns the number of uses of a value, graph outputs included.
func (g *Graph) NumUses(v Value) int {
	r := g.res(v)
	if r == nil {
		return 0
	}
	return r.uses
}

// HasOneUse returns true if a value is used exactly once.
func (g *Graph) HasOneUse(v Value) bool {
	return g.NumUses(v) == 1
}

// Users returns the live operations using a value.
// An operation using the value more than once is listed once.
func (g *Graph) Users(v Value) []Op {
	var users []Op
	for _, op := range g.ops {
		if slices.Contains(op.Operands(), v) {
			users = append(users, op)
		}
	}
	return users
}

// Outputs returns the values returned by the graph.
func (g *Graph) Outputs() []Value {
	return slices.Clone(g.outputs)
}

// SetOutputs sets the values returned by the graph.
// Each output counts as a use of its value.
func (g *Graph) SetOutputs(vals ...Value) error {
	for _, v := range vals {
		if err := g.checkLive(v); err != nil {
			return err
		}
	}
	g.releaseUses(g.outputs)
	g.outputs = slices.Clone(vals)
	g.acquireUses(g.outputs)
	return nil
}

// IsOutput returns true if a value is returned by the graph.
func (g *Graph) IsOutput(v Value) bool {
	return slices.Contains(g.outputs, v)
}

// SetInsertionPoint sets the operation before which new operations are inserted.
// New operations are appended at the end of the graph if op is nil.
func (g *Graph) SetInsertionPoint(op Op) {
	g.insertBefore = op
}

// InsertionPoint returns the operation before which new operations are inserted.
func (g *Graph) InsertionPoint() Op {
	return g.insertBefore
}

func (g *Graph) acquireUses(vals []Value) {
	for _, v := range vals {
		if r := g.res(v); r != nil {
			r.uses++
		}
	}
}

func (g *Graph) releaseUses(vals []Value) {
	for _, v := range vals {
		if r := g.res(v); r != nil {
			r.uses--
		}
	}
}

func (g *Graph) position(op Op) int {
	return slices.Index(g.ops, op)
}

// add verifies an operation and inserts it in the graph.
func (g *Graph) add(op Op, typ Type) (Value, error) {
	for _, operand := range op.Operands() {
		if err := g.checkLive(operand); err != nil {
			return NoValue, errors.Wrapf(err, "cannot create %s", op.Kind().String())
		}
	}
	if err := op.verify(g, typ); err != nil {
		return NoValue, err
	}
	v := Value(len(g.results))
	g.results = append(g.results, &result{def: op, typ: typ})
	op.base().result = v
	g.acquireUses(op.Operands())
	pos := len(g.ops)
	if g.insertBefore != nil {
		if p := g.position(g.insertBefore); p >= 0 {
			pos = p
		}
	}
	g.ops = slices.Insert(g.ops, pos, op)
	return v, nil
}

// ReplaceAllUsesWith redirects all the uses of old, graph outputs included, to nw.
func (g *Graph) ReplaceAllUsesWith(old, nw Value) error {
	if err := g.checkLive(old); err != nil {
		return err
	}
	if err := g.checkLive(nw); err != nil {
		return err
	}
	if old == nw {
		return nil
	}
	if oldT, nwT := g.TypeOf(old), g.TypeOf(nw); !oldT.Equal(nwT) {
		return errors.Errorf("cannot replace %s of type %s with %s of type %s", old, oldT, nw, nwT)
	}
	for _, op := range g.ops {
		for _, ref := range op.operandRefs() {
			if *ref == old {
				*ref = nw
			}
		}
	}
	for i, out := range g.outputs {
		if out == old {
			g.outputs[i] = nw
		}
	}
	oldR, nwR := g.res(old), g.res(nw)
	nwR.uses += oldR.uses
	oldR.uses = 0
	return nil
}

// ModifyOp runs a function mutating the operands of an operation in place.
// The number of uses of the operands before and after the modification are updated.
// The modification is reverted if the operation is not valid anymore.
func (g *Graph) ModifyOp(op Op, f func()) error {
	before := op.Operands()
	f()
	after := op.Operands()
	for _, v := range after {
		if err := g.checkLive(v); err != nil {
			restoreOperands(op, before)
			return err
		}
	}
	if err := op.verify(g, g.TypeOf(op.Result())); err != nil {
		restoreOperands(op, before)
		return errors.Wrapf(err, "invalid in-place modification of %s", g.OpString(op))
	}
	g.releaseUses(before)
	g.acquireUses(after)
	return nil
}

func restoreOperands(op Op, vals []Value) {
	for i, ref := range op.operandRefs() {
		*ref = vals[i]
	}
}

// Erase removes an operation from the graph.
// The result of the operation cannot have any use.
func (g *Graph) Erase(op Op) error {
	v := op.Result()
	if err := g.checkLive(v); err != nil {
		return err
	}
	if uses := g.NumUses(v); uses > 0 {
		users := g.Users(v)
		names := make([]string, len(users))
		for i, user := range users {
			names[i] = user.Kind().String()
		}
		return errors.Errorf("cannot erase %s: result still has %d use(s) (users: %v, graph output: %t)", g.OpString(op), uses, names, g.IsOutput(v))
	}
	pos := g.position(op)
	if pos < 0 {
		return errors.Errorf("operation %s not found in the graph", g.OpString(op))
	}
	g.ops = slices.Delete(g.ops, pos, pos+1)
	g.releaseUses(op.Operands())
	g.res(v).erased = true
	if g.insertBefore == op {
		g.insertBefore = nil
	}
	return nil
}

// IsDead returns true if an operation can be removed from the graph,
// that is if its result has no use and it is not an argument of the graph.
func (g *Graph) IsDead(op Op) bool {
	if op.Kind() == ArgumentKind {
		return false
	}
	return g.NumUses(op.Result()) == 0
}

// EraseDeadOps removes all dead operations until no dead operation remains.
// It returns the number of operations removed.
func (g *Graph) EraseDeadOps() (int, error) {
	n := 0
	for {
		var dead Op
		for i := len(g.ops) - 1; i >= 0; i-- {
			if g.IsDead(g.ops[i]) {
				dead = g.ops[i]
				break
			}
		}
		if dead == nil {
			return n, nil
		}
		if err := g.Erase(dead); err != nil {
			return n, err
		}
		n++
	}
}
