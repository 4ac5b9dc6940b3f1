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

package kernels

import (
	"slices"

	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
)

// Slice describes a strided region of an array, one offset, size, and stride per axis.
type Slice struct {
	Offsets, Sizes, Strides []int
}

func (s Slice) check(dims []int) error {
	if len(s.Offsets) != len(dims) || len(s.Sizes) != len(dims) || len(s.Strides) != len(dims) {
		return errors.Errorf("slice %v does not match the rank of axes %v", s, dims)
	}
	for i, size := range s.Sizes {
		if size < 0 || s.Offsets[i] < 0 || s.Strides[i] < 0 {
			return errors.Errorf("slice %v has negative values", s)
		}
		if size == 0 {
			continue
		}
		if last := s.Offsets[i] + (size-1)*s.Strides[i]; last >= dims[i] {
			return errors.Errorf("slice %v out of bounds for axes %v", s, dims)
		}
	}
	return nil
}

// flatIndex returns the index in the source of a position in the slice.
func (s Slice) flatIndex(dims, pos []int) int {
	index := 0
	for i, p := range pos {
		index = index*dims[i] + s.Offsets[i] + p*s.Strides[i]
	}
	return index
}

// ExtractSlice returns the elements of a slice of an array.
// The result has the given axis lengths, which must have as many elements as the slice.
func ExtractSlice[T dtype.GoDataType](a *Array[T], s Slice, dims []int) (*Array[T], error) {
	src := a.shape.AxisLengths
	if err := s.check(src); err != nil {
		return nil, err
	}
	if product(dims) != product(s.Sizes) {
		return nil, errors.Errorf("cannot extract a slice of sizes %v into axes %v", s.Sizes, dims)
	}
	values := make([]T, 0, product(s.Sizes))
	if err := positions(s.Sizes, func(pos []int) error {
		values = append(values, a.values[s.flatIndex(src, pos)])
		return nil
	}); err != nil {
		return nil, err
	}
	return NewArray(values, dims)
}

// InsertSlice returns a copy of dest where a slice has been replaced by the elements of src.
func InsertSlice[T dtype.GoDataType](src, dest *Array[T], s Slice) (*Array[T], error) {
	dst := dest.shape.AxisLengths
	if err := s.check(dst); err != nil {
		return nil, err
	}
	if src.shape.Size() != product(s.Sizes) {
		return nil, errors.Errorf("cannot insert %v elements into a slice of sizes %v", src.shape.AxisLengths, s.Sizes)
	}
	values := slices.Clone(dest.values)
	next := 0
	if err := positions(s.Sizes, func(pos []int) error {
		values[s.flatIndex(dst, pos)] = src.values[next]
		next++
		return nil
	}); err != nil {
		return nil, err
	}
	return NewArray(values, dst)
}

// Reshape returns an array with the same elements in row-major order but different axis lengths.
func Reshape[T dtype.GoDataType](a *Array[T], dims []int) (*Array[T], error) {
	if product(dims) != a.shape.Size() {
		return nil, errors.Errorf("cannot reshape axes %v into %v", a.shape.AxisLengths, dims)
	}
	return NewArray(a.values, dims)
}
