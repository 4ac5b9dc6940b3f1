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
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Reassociation groups the axes of the higher rank shape of a reshape.
// Group i lists the axes mapped to axis i of the lower rank shape.
type Reassociation [][]int

// IdentityReassociation returns a reassociation with one singleton group per axis.
func IdentityReassociation(rank int) Reassociation {
	re := make(Reassociation, rank)
	for i := range re {
		re[i] = []int{i}
	}
	return re
}

// Clone returns a deep copy of the reassociation.
func (re Reassociation) Clone() Reassociation {
	c := make(Reassociation, len(re))
	for i, group := range re {
		c[i] = slices.Clone(group)
	}
	return c
}

// HighRank returns the rank of the expanded side of the reassociation.
func (re Reassociation) HighRank() int {
	n := 0
	for _, group := range re {
		n += len(group)
	}
	return n
}

// Valid checks that the groups are non-empty, contiguous, in order, and
// cover all axes in [0, highRank) exactly once.
func (re Reassociation) Valid(highRank int) error {
	if got := re.HighRank(); got != highRank {
		return errors.Errorf("reassociation %s covers %d axes but the expanded rank is %d", re.String(), got, highRank)
	}
	next := 0
	for i, group := range re {
		if len(group) == 0 {
			return errors.Errorf("reassociation group %d is empty", i)
		}
		for _, axis := range group {
			if axis != next {
				return errors.Errorf("reassociation %s: group %d expects axis %d but got %d", re.String(), i, next, axis)
			}
			next++
		}
	}
	return nil
}

// String representation of the reassociation.
func (re Reassociation) String() string {
	groups := make([]string, len(re))
	for i, group := range re {
		axes := make([]string, len(group))
		for j, axis := range group {
			axes[j] = fmt.Sprint(axis)
		}
		groups[i] = "[" + strings.Join(axes, ", ") + "]"
	}
	return "[" + strings.Join(groups, ", ") + "]"
}

// InferCollapsedType returns the type obtained by merging the axes of each group.
// A merged axis is dynamic if any of its factor is dynamic.
func InferCollapsedType(src TensorType, re Reassociation) TensorType {
	dims := make([]int, len(re))
	for i, group := range re {
		size := 1
		for _, axis := range group {
			if src.IsDynamicDim(axis) {
				size = Dynamic
				break
			}
			size *= src.Dims[axis]
		}
		dims[i] = size
	}
	return src.Clone(dims)
}

// InferExpandedType returns the type of an expansion given its output shape.
func InferExpandedType(src TensorType, outputShape []Index) TensorType {
	return src.Clone(StaticValues(outputShape))
}

// InferExtractSliceType returns the type of a slice extracted without rank reduction.
func InferExtractSliceType(src TensorType, staticSizes []int) TensorType {
	return src.Clone(staticSizes)
}

// SliceVerificationResult is the result of comparing a type with its rank-reduced candidate.
type SliceVerificationResult int

// Results of IsRankReducedType.
const (
	Success SliceVerificationResult = iota
	RankTooLarge
	SizeMismatch
	ElemTypeMismatch
)

// String representation of the result.
func (r SliceVerificationResult) String() string {
	switch r {
	case Success:
		return "success"
	case RankTooLarge:
		return "rank too large"
	case SizeMismatch:
		return "size mismatch"
	case ElemTypeMismatch:
		return "element type mismatch"
	}
	return "invalid"
}

// RankReductionMask returns the axes of original dropped to obtain reduced.
// Axes are matched greedily from left to right. An axis of original that
// cannot be matched must have a static length of 1. It returns false if
// reduced cannot be obtained from original by dropping unit axes.
func RankReductionMask(original, reduced []int) (map[int]bool, bool) {
	dropped := make(map[int]bool)
	reducedIdx := 0
	for origIdx, origSize := range original {
		if reducedIdx < len(reduced) && origSize == reduced[reducedIdx] {
			reducedIdx++
			continue
		}
		if origSize != 1 {
			return nil, false
		}
		dropped[origIdx] = true
	}
	if reducedIdx != len(reduced) {
		return nil, false
	}
	return dropped, true
}

// IsRankReducedType checks if candidate can be obtained from original by
// dropping axes of static length 1.
func IsRankReducedType(original, candidate TensorType) SliceVerificationResult {
	if original.Equal(candidate) {
		return Success
	}
	if candidate.Rank() > original.Rank() {
		return RankTooLarge
	}
	if _, ok := RankReductionMask(original.Dims, candidate.Dims); !ok {
		return SizeMismatch
	}
	if original.DType != candidate.DType {
		return ElemTypeMismatch
	}
	return Success
}
