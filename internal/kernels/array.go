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

// Package kernels implements slicing and reshaping kernels on host arrays.
package kernels

import (
	"fmt"
	"slices"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Array is a multi-dimensional array stored on the host in row-major order.
type Array[T dtype.GoDataType] struct {
	shape  shape.Shape
	values []T
}

// NewArray returns an array given its flat values and its axis lengths.
func NewArray[T dtype.GoDataType](values []T, dims []int) (*Array[T], error) {
	sh := shape.Shape{
		DType:       dtype.Generic[T](),
		AxisLengths: slices.Clone(dims),
	}
	if sh.Size() != len(values) {
		return nil, errors.Errorf("len(values)=%d does not match axes %v=%d", len(values), dims, sh.Size())
	}
	return &Array[T]{shape: sh, values: values}, nil
}

// Zeros returns an array filled with the zero value.
func Zeros[T dtype.GoDataType](dims []int) *Array[T] {
	a, _ := NewArray(make([]T, product(dims)), dims)
	return a
}

// Iota returns an array where each element is its flat index.
func Iota[T interface {
	dtype.GoDataType
	constraints.Integer | constraints.Float
}](dims []int) *Array[T] {
	values := make([]T, product(dims))
	for i := range values {
		values[i] = T(i)
	}
	a, _ := NewArray(values, dims)
	return a
}

// Shape of the array.
func (a *Array[T]) Shape() *shape.Shape {
	return &a.shape
}

// Dims returns the axis lengths of the array.
func (a *Array[T]) Dims() []int {
	return slices.Clone(a.shape.AxisLengths)
}

// Flat values of the array.
func (a *Array[T]) Flat() []T {
	return a.values
}

// At returns the element at a given position.
func (a *Array[T]) At(pos ...int) (T, error) {
	var zero T
	if len(pos) != len(a.shape.AxisLengths) {
		return zero, errors.Errorf("position %v has %d axes but array has %d", pos, len(pos), len(a.shape.AxisLengths))
	}
	index := 0
	for i, p := range pos {
		if p < 0 || p >= a.shape.AxisLengths[i] {
			return zero, errors.Errorf("position %v out of bounds for axes %v", pos, a.shape.AxisLengths)
		}
		index = index*a.shape.AxisLengths[i] + p
	}
	return a.values[index], nil
}

// String representation of the array.
func (a *Array[T]) String() string {
	return fmt.Sprintf("%v%v", a.shape.AxisLengths, a.values)
}

func product[T constraints.Integer](dims []T) T {
	var p T = 1
	for _, d := range dims {
		p *= d
	}
	return p
}

// positions calls f for each position of a shape in row-major order.
func positions(dims []int, f func(pos []int) error) error {
	if product(dims) == 0 {
		return nil
	}
	pos := make([]int, len(dims))
	for {
		if err := f(pos); err != nil {
			return err
		}
		axis := len(dims) - 1
		for ; axis >= 0; axis-- {
			pos[axis]++
			if pos[axis] < dims[axis] {
				break
			}
			pos[axis] = 0
		}
		if axis < 0 {
			return nil
		}
	}
}
