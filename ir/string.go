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
	"fmt"
	"strings"
)

type printer struct {
	g     *Graph
	names map[Value]string
}

func newPrinter(g *Graph) *printer {
	p := &printer{g: g, names: make(map[Value]string)}
	next := 0
	for _, op := range g.ops {
		if arg, ok := op.(*ArgumentOp); ok {
			p.names[op.Result()] = "%" + arg.Name
			continue
		}
		p.names[op.Result()] = fmt.Sprintf("%%%d", next)
		next++
	}
	return p
}

func (p *printer) value(v Value) string {
	if name, ok := p.names[v]; ok {
		return name
	}
	return "<" + v.String() + ">"
}

func (p *printer) indices(indices []Index) string {
	ss := make([]string, len(indices))
	for i, idx := range indices {
		if idx.IsStatic() {
			ss[i] = fmt.Sprint(idx.static)
			continue
		}
		ss[i] = p.value(idx.value)
	}
	return "[" + strings.Join(ss, ", ") + "]"
}

func (p *printer) typeOf(v Value) string {
	typ := p.g.TypeOf(v)
	if typ == nil {
		return "<nil>"
	}
	return typ.String()
}

func (p *printer) slice(params *sliceParams) string {
	return p.indices(params.offsets) + " " + p.indices(params.sizes) + " " + p.indices(params.strides)
}

func (p *printer) op(op Op) string {
	res := op.Result()
	var s strings.Builder
	s.WriteString(p.value(res))
	s.WriteString(" = ")
	s.WriteString(op.Kind().String())
	switch opT := op.(type) {
	case *ArgumentOp:
		fmt.Fprintf(&s, " : %s", p.typeOf(res))
	case *DimOp:
		fmt.Fprintf(&s, " %s, %d : index", p.value(opT.source), opT.axis)
	case *ExtractSliceOp:
		fmt.Fprintf(&s, " %s%s : %s to %s",
			p.value(opT.source), p.slice(&opT.sliceParams),
			p.typeOf(opT.source), p.typeOf(res))
	case InsertLikeOp:
		base := insertBaseOf(opT)
		fmt.Fprintf(&s, " %s into %s%s : %s into %s",
			p.value(base.source), p.value(base.dest), p.slice(&base.sliceParams),
			p.typeOf(base.source), p.typeOf(res))
	case *ExpandShapeOp:
		fmt.Fprintf(&s, " %s %s output_shape %s : %s into %s",
			p.value(opT.source), opT.reassociation, p.indices(opT.outputShape),
			p.typeOf(opT.source), p.typeOf(res))
	case *CollapseShapeOp:
		fmt.Fprintf(&s, " %s %s : %s into %s",
			p.value(opT.source), opT.reassociation,
			p.typeOf(opT.source), p.typeOf(res))
	}
	return s.String()
}

func insertBaseOf(op InsertLikeOp) *insertBase {
	switch opT := op.(type) {
	case *InsertSliceOp:
		return &opT.insertBase
	case *ParallelInsertSliceOp:
		return &opT.insertBase
	}
	return nil
}

// OpString returns a string representation of an operation using the names of the graph.
func (g *Graph) OpString(op Op) string {
	return newPrinter(g).op(op)
}

// String representation of the graph.
func (g *Graph) String() string {
	p := newPrinter(g)
	var s strings.Builder
	for _, op := range g.ops {
		s.WriteString(p.op(op))
		s.WriteString("\n")
	}
	outs := make([]string, len(g.outputs))
	for i, out := range g.outputs {
		outs[i] = p.value(out)
	}
	s.WriteString("return " + strings.Join(outs, ", ") + "\n")
	return s.String()
}
