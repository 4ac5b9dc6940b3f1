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

// foldInsertOfRankReducingInsert folds insert(collapse_shape(x)) into insert(x)
// when x has the type of the inserted slice without rank reduction.
type foldInsertOfRankReducingInsert[T ir.InsertLikeOp] struct{}

var (
	_ rewrite.Pattern = foldInsertOfRankReducingInsert[*ir.InsertSliceOp]{}
	_ rewrite.Pattern = foldInsertOfRankReducingInsert[*ir.ParallelInsertSliceOp]{}
)

func (foldInsertOfRankReducingInsert[T]) Name() string {
	return "FoldInsertOfRankReducingInsert<" + kindOf[T]().String() + ">"
}

func (foldInsertOfRankReducingInsert[T]) Root() ir.Kind {
	return kindOf[T]()
}

func (foldInsertOfRankReducingInsert[T]) MatchAndRewrite(op ir.Op, rw *rewrite.Rewriter) error {
	insert, err := asOp[T](op)
	if err != nil {
		return err
	}
	g := rw.Graph()
	collapse, ok := ir.DefiningOpOf[*ir.CollapseShapeOp](g, insert.Source())
	if !ok {
		return rewrite.ErrNoMatch
	}
	srcType, err := g.TensorTypeOf(collapse.Source())
	if err != nil {
		return err
	}
	destType, err := g.TensorTypeOf(insert.Dest())
	if err != nil {
		return err
	}
	// Only a collapse folded away entirely into an insertion without
	// rank reduction is supported.
	nonReducing := destType.Clone(insert.StaticSizes())
	if !nonReducing.Equal(srcType) {
		return rewrite.ErrNoMatch
	}
	nw, err := g.NewInsertLike(insert.Kind(), collapse.Source(), insert.Dest(), insert.Offsets(), insert.Sizes(), insert.Strides())
	if err != nil {
		return err
	}
	return rw.ReplaceOp(insert, nw.Result())
}

// foldPaddingExpandIntoInsert folds an expand_shape only adding axes of
// static length 1 into the insertion consuming it.
type foldPaddingExpandIntoInsert[T ir.InsertLikeOp] struct{}

var (
	_ rewrite.Pattern = foldPaddingExpandIntoInsert[*ir.InsertSliceOp]{}
	_ rewrite.Pattern = foldPaddingExpandIntoInsert[*ir.ParallelInsertSliceOp]{}
)

func (foldPaddingExpandIntoInsert[T]) Name() string {
	return "FoldPaddingExpandIntoInsert<" + kindOf[T]().String() + ">"
}

func (foldPaddingExpandIntoInsert[T]) Root() ir.Kind {
	return kindOf[T]()
}

func (foldPaddingExpandIntoInsert[T]) MatchAndRewrite(op ir.Op, rw *rewrite.Rewriter) error {
	insert, err := asOp[T](op)
	if err != nil {
		return err
	}
	g := rw.Graph()
	expand, ok := ir.DefiningOpOf[*ir.ExpandShapeOp](g, insert.Source())
	if !ok {
		return rewrite.ErrNoMatch
	}
	srcType, err := g.TensorTypeOf(expand.Source())
	if err != nil {
		return err
	}
	resultType, err := g.TensorTypeOf(expand.Result())
	if err != nil {
		return err
	}
	if ir.IsRankReducedType(resultType, srcType) != ir.Success {
		return rw.NotifyMatchFailure(op, "expected rank increasing expansion")
	}
	return rw.ModifyOpInPlace(insert, func() {
		insert.SetSource(expand.Source())
	})
}
