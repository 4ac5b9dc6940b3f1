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

// Package reshape provides rewrite patterns simplifying reshapes of tensors
// next to slice operations.
//
// Folding patterns remove an expand_shape or a collapse_shape when it exactly
// undoes the rank reduction of an adjacent extract_slice or insert_slice.
// The bubble up pattern swaps an expand_shape consuming a collapse_shape
// acting on independent axes, exposing more folding opportunities.
package reshape

import (
	"github.com/gx-org/tensorfold/ir"
	"github.com/gx-org/tensorfold/rewrite"
	"github.com/pkg/errors"
)

// PopulateReassociativeReshapeFoldingPatterns adds the patterns folding
// reshapes into extract_slice, insert_slice, and parallel_insert_slice.
func PopulateReassociativeReshapeFoldingPatterns(set *rewrite.PatternSet) {
	set.Add(
		foldExpandOfRankReducingExtract{},
		foldUnPaddingCollapseIntoExtract{},
		foldInsertOfRankReducingInsert[*ir.InsertSliceOp]{},
		foldInsertOfRankReducingInsert[*ir.ParallelInsertSliceOp]{},
		foldPaddingExpandIntoInsert[*ir.InsertSliceOp]{},
		foldPaddingExpandIntoInsert[*ir.ParallelInsertSliceOp]{},
	)
}

// PopulateBubbleUpExpandShapePatterns adds the pattern moving an expand_shape
// before a collapse_shape with independent reassociations.
func PopulateBubbleUpExpandShapePatterns(set *rewrite.PatternSet) {
	set.Add(bubbleUpExpandThroughParallelCollapse{})
}

func asOp[T ir.Op](op ir.Op) (T, error) {
	opT, ok := op.(T)
	if !ok {
		return opT, errors.Wrapf(rewrite.ErrNoMatch, "unexpected operation %s", op.Kind())
	}
	return opT, nil
}

// kindOf returns the kind of the operations of type T.
// Kind does not read its receiver, so a nil operation can be used.
func kindOf[T ir.Op]() ir.Kind {
	var op T
	return op.Kind()
}
