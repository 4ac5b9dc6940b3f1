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

package ir

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Verify checks that every operation of the graph is well-formed,
// that operations are in topological order, and that the number of uses
// recorded for each value is correct. All errors found are returned.
func Verify(g *Graph) error {
	var errs error
	p := newPrinter(g)
	defined := make(map[Value]bool)
	uses := make(map[Value]int)
	for _, op := range g.ops {
		for _, operand := range op.Operands() {
			uses[operand]++
			if !defined[operand] {
				errs = multierr.Append(errs, errors.Errorf("%s: operand %s is not defined before its use", p.op(op), p.value(operand)))
			}
		}
		if err := op.verify(g, g.TypeOf(op.Result())); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "%s", p.op(op)))
		}
		if g.DefiningOp(op.Result()) != op {
			errs = multierr.Append(errs, errors.Errorf("%s: result not owned by the operation", p.op(op)))
		}
		defined[op.Result()] = true
	}
	for _, out := range g.outputs {
		uses[out]++
		if !defined[out] {
			errs = multierr.Append(errs, errors.Errorf("output %s is not defined", p.value(out)))
		}
	}
	for _, op := range g.ops {
		v := op.Result()
		if got, want := g.NumUses(v), uses[v]; got != want {
			errs = multierr.Append(errs, internal(errors.Errorf("%s: %d use(s) recorded but found %d", p.op(op), got, want)))
		}
	}
	return errs
}

// internal marks an error as a bug in the bookkeeping of the graph.
func internal(err error) error {
	return errors.Wrap(err, "internal error in the graph bookkeeping")
}
