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

package reshape

import (
	"github.com/gx-org/tensorfold/ir"
	"github.com/gx-org/tensorfold/rewrite"
)

// bubbleUpExpandThroughParallelCollapse rewrites expand_shape(collapse_shape(x))
// into collapse_shape(expand_shape(x)) when, for each axis of the collapsed
// tensor, either the collapse or the expansion leaves the axis alone.
type bubbleUpExpandThroughParallelCollapse struct{}

var _ rewrite.Pattern = bubbleUpExpandThroughParallelCollapse{}

func (bubbleUpExpandThroughParallelCollapse) Name() string {
	return "BubbleUpExpandThroughParallelCollapse"
}

func (bubbleUpExpandThroughParallelCollapse) Root() ir.Kind {
	return ir.ExpandShapeKind
}

// swapPlan describes the expansion and the collapse replacing the original pair.
type swapPlan struct {
	expandRe   ir.Reassociation
	collapseRe ir.Reassociation
	// sizes is the output shape of the new expansion.
	sizes []ir.Index
	// sourceAxes maps a position in sizes to the dynamic axis of x
	// providing its length, or -1 if sizes is already known.
	sourceAxes []int
}

func (p *swapPlan) staticSizes() []int {
	dims := ir.StaticValues(p.sizes)
	for i, axis := range p.sourceAxes {
		if axis >= 0 {
			dims[i] = ir.Dynamic
		}
	}
	return dims
}

func (p *swapPlan) addSourceAxis(srcType ir.TensorType, axis int) {
	if srcType.IsDynamicDim(axis) {
		p.sizes = append(p.sizes, ir.Index{})
		p.sourceAxes = append(p.sourceAxes, axis)
		return
	}
	p.sizes = append(p.sizes, ir.Static(srcType.Dims[axis]))
	p.sourceAxes = append(p.sourceAxes, -1)
}

func (p *swapPlan) addExpandSize(size ir.Index) {
	p.sizes = append(p.sizes, size)
	p.sourceAxes = append(p.sourceAxes, -1)
}

func planSwap(srcType ir.TensorType, collapseRe, expandRe ir.Reassociation, outputShape []ir.Index) *swapPlan {
	p := &swapPlan{}
	index := 0
	for pos, collapseGroup := range collapseRe {
		if len(collapseGroup) != 1 {
			// Keep the axes of x and merge them again after the expansion.
			var group []int
			for _, axis := range collapseGroup {
				group = append(group, index)
				p.expandRe = append(p.expandRe, []int{index})
				p.addSourceAxis(srcType, axis)
				index++
			}
			p.collapseRe = append(p.collapseRe, group)
			continue
		}
		// Split the axis of x directly and keep the resulting axes in the collapse.
		var group []int
		for _, axis := range expandRe[pos] {
			group = append(group, index)
			p.collapseRe = append(p.collapseRe, []int{index})
			p.addExpandSize(outputShape[axis])
			index++
		}
		p.expandRe = append(p.expandRe, group)
	}
	return p
}

func (bubbleUpExpandThroughParallelCollapse) MatchAndRewrite(op ir.Op, rw *rewrite.Rewriter) error {
	expand, err := asOp[*ir.ExpandShapeOp](op)
	if err != nil {
		return err
	}
	g := rw.Graph()
	collapse, ok := ir.DefiningOpOf[*ir.CollapseShapeOp](g, expand.Source())
	if !ok {
		return rewrite.ErrNoMatch
	}
	expandRe, collapseRe := expand.Reassociation(), collapse.Reassociation()
	if len(expandRe) != len(collapseRe) {
		return rw.NotifyMatchFailure(op, "reassociations %s and %s have different lengths", collapseRe, expandRe)
	}
	for pos := range collapseRe {
		if len(collapseRe[pos]) != 1 && len(expandRe[pos]) != 1 {
			return rw.NotifyMatchFailure(op, "reshapes are not parallel: collapse group %v and expand group %v", collapseRe[pos], expandRe[pos])
		}
	}
	x := collapse.Source()
	srcType, err := g.TensorTypeOf(x)
	if err != nil {
		return err
	}
	resultType, err := g.TensorTypeOf(expand.Result())
	if err != nil {
		return err
	}
	plan := planSwap(srcType, collapseRe, expandRe, expand.OutputShape())
	newExpandType := srcType.Clone(plan.staticSizes())
	if err := ir.VerifyReshape(srcType, newExpandType, plan.expandRe); err != nil {
		return rw.NotifyMatchFailure(op, "cannot expand %s: %v", srcType, err)
	}
	if collapsed := ir.InferCollapsedType(newExpandType, plan.collapseRe); !collapsed.Equal(resultType) {
		return rw.NotifyMatchFailure(op, "swapped reshapes produce %s instead of %s", collapsed, resultType)
	}
	for i, axis := range plan.sourceAxes {
		if axis < 0 {
			continue
		}
		dim, err := g.NewDim(x, axis)
		if err != nil {
			return err
		}
		plan.sizes[i] = ir.DynIndex(dim.Result())
	}
	newExpand, err := g.NewExpandShape(x, plan.expandRe, plan.sizes)
	if err != nil {
		return err
	}
	newCollapse, err := g.NewCollapseShape(newExpand.Result(), plan.collapseRe)
	if err != nil {
		return err
	}
	return rw.ReplaceOp(expand, newCollapse.Result())
}
