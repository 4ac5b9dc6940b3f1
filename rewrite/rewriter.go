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

package rewrite

import (
	"fmt"
	"log/slog"

	"github.com/gx-org/tensorfold/ir"
	"github.com/pkg/errors"
)

// Rewriter is passed to patterns to edit the graph.
// New operations are inserted before the operation being rewritten.
type Rewriter struct {
	g       *ir.Graph
	logger  *slog.Logger
	pattern string
}

// NewRewriter returns a rewriter for a graph.
func NewRewriter(g *ir.Graph, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Rewriter{g: g, logger: logger}
}

// Graph returns the graph being rewritten.
func (rw *Rewriter) Graph() *ir.Graph {
	return rw.g
}

// ReplaceOp replaces all the uses of the result of an operation with a value
// and erases the operation.
func (rw *Rewriter) ReplaceOp(op ir.Op, v ir.Value) error {
	if err := rw.g.ReplaceAllUsesWith(op.Result(), v); err != nil {
		return err
	}
	return rw.g.Erase(op)
}

// ModifyOpInPlace runs a function modifying the operands of an operation.
func (rw *Rewriter) ModifyOpInPlace(op ir.Op, f func()) error {
	return rw.g.ModifyOp(op, f)
}

// NotifyMatchFailure returns an error reporting why a pattern does not apply to an operation.
func (rw *Rewriter) NotifyMatchFailure(op ir.Op, format string, a ...any) error {
	failure := &MatchFailure{
		Pattern: rw.pattern,
		Op:      rw.g.OpString(op),
		Reason:  fmt.Sprintf(format, a...),
	}
	rw.logger.Debug("match failure", "pattern", failure.Pattern, "op", failure.Op, "reason", failure.Reason)
	return failure
}

// Rewrite applies a single pattern to an operation.
// New operations are inserted before op.
func (rw *Rewriter) Rewrite(p Pattern, op ir.Op) error {
	if op.Kind() != p.Root() {
		return errors.Wrapf(ErrNoMatch, "%s matches %s operations", p.Name(), p.Root())
	}
	prevPattern, prevInsert := rw.pattern, rw.g.InsertionPoint()
	rw.pattern = p.Name()
	rw.g.SetInsertionPoint(op)
	defer func() {
		rw.pattern = prevPattern
		rw.g.SetInsertionPoint(prevInsert)
	}()
	return p.MatchAndRewrite(op, rw)
}
