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

// foldExpandOfRankReducingExtract folds expand_shape(extract_slice) when the
// expansion restores exactly the axes dropped by the extraction.
type foldExpandOfRankReducingExtract struct{}

var _ rewrite.Pattern = foldExpandOfRankReducingExtract{}

func (foldExpandOfRankReducingExtract) Name() string {
	return "FoldExpandOfRankReducingExtract"
}

func (foldExpandOfRankReducingExtract) Root() ir.Kind {
	return ir.ExpandShapeKind
}

func (foldExpandOfRankReducingExtract) MatchAndRewrite(op ir.Op, rw *rewrite.Rewriter) error {
	expand, err := asOp[*ir.ExpandShapeOp](op)
	if err != nil {
		return err
	}
	g := rw.Graph()
	extract, ok := ir.DefiningOpOf[*ir.ExtractSliceOp](g, expand.Source())
	if !ok {
		return rewrite.ErrNoMatch
	}
	srcType, err := g.TensorTypeOf(extract.Source())
	if err != nil {
		return err
	}
	// Only an expansion folded away entirely into an extract_slice without
	// rank reduction is supported.
	nonReducing := ir.InferExtractSliceType(srcType, extract.StaticSizes())
	if !nonReducing.Equal(g.TypeOf(expand.Result())) {
		return rewrite.ErrNoMatch
	}
	nw, err := g.NewExtractSlice(extract.Source(), extract.Offsets(), extract.Sizes(), extract.Strides())
	if err != nil {
		return err
	}
	return rw.ReplaceOp(expand, nw.Result())
}

// foldUnPaddingCollapseIntoExtract folds a collapse_shape only removing axes
// of static length 1 into the extract_slice producing its source.
type foldUnPaddingCollapseIntoExtract struct{}

var _ rewrite.Pattern = foldUnPaddingCollapseIntoExtract{}

func (foldUnPaddingCollapseIntoExtract) Name() string {
	return "FoldUnPaddingCollapseIntoExtract"
}

func (foldUnPaddingCollapseIntoExtract) Root() ir.Kind {
	return ir.CollapseShapeKind
}

func (foldUnPaddingCollapseIntoExtract) MatchAndRewrite(op ir.Op, rw *rewrite.Rewriter) error {
	collapse, err := asOp[*ir.CollapseShapeOp](op)
	if err != nil {
		return err
	}
	g := rw.Graph()
	extract, ok := ir.DefiningOpOf[*ir.ExtractSliceOp](g, collapse.Source())
	if !ok {
		return rewrite.ErrNoMatch
	}
	// Other users would keep the extract_slice alive: replacing the collapse
	// by a second extract_slice is not necessarily beneficial.
	if !g.HasOneUse(extract.Result()) {
		return rw.NotifyMatchFailure(op, "extract_slice has %d uses", g.NumUses(extract.Result()))
	}
	srcType, err := g.TensorTypeOf(collapse.Source())
	if err != nil {
		return err
	}
	resultType, err := g.TensorTypeOf(collapse.Result())
	if err != nil {
		return err
	}
	if ir.IsRankReducedType(srcType, resultType) != ir.Success {
		return rw.NotifyMatchFailure(op, "expected unpadding collapse")
	}
	nw, err := g.NewExtractSliceWithType(resultType, extract.Source(), extract.Offsets(), extract.Sizes(), extract.Strides())
	if err != nil {
		return err
	}
	return rw.ReplaceOp(collapse, nw.Result())
}
