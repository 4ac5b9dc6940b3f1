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
	"math"
	"slices"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/pkg/errors"
)

// Dynamic marks an axis length, or a static field of an index, only known at runtime.
const Dynamic = math.MinInt

// IsDynamic returns true if an axis length or a static index is dynamic.
func IsDynamic(n int) bool {
	return n == Dynamic
}

type (
	// Type of a value in the graph.
	Type interface {
		// Equal returns true if two types are the same.
		Equal(Type) bool

		// String representation of the type.
		String() string
	}

	// TensorType is a ranked tensor type.
	TensorType struct {
		DType dtype.DataType
		Dims  []int
	}

	// IndexType is the type of scalar index values.
	IndexType struct{}
)

var (
	_ Type = TensorType{}
	_ Type = IndexType{}
)

// Tensor returns a new tensor type.
func Tensor(dt dtype.DataType, dims ...int) TensorType {
	return TensorType{DType: dt, Dims: dims}
}

// Rank returns the number of axes of the tensor.
func (t TensorType) Rank() int {
	return len(t.Dims)
}

// IsDynamicDim returns true if the length of the axis is only known at runtime.
func (t TensorType) IsDynamicDim(axis int) bool {
	return IsDynamic(t.Dims[axis])
}

// HasStaticShape returns true if all axis lengths are static.
func (t TensorType) HasStaticShape() bool {
	return !slices.Contains(t.Dims, Dynamic)
}

// Clone returns a tensor type with the same element type but different axis lengths.
func (t TensorType) Clone(dims []int) TensorType {
	return TensorType{DType: t.DType, Dims: slices.Clone(dims)}
}

// Equal returns true if other is a tensor type with the same element type and axes.
func (t TensorType) Equal(other Type) bool {
	otherT, ok := other.(TensorType)
	if !ok {
		return false
	}
	return t.DType == otherT.DType && slices.Equal(t.Dims, otherT.Dims)
}

// Shape returns the backend shape of a static tensor type.
func (t TensorType) Shape() (*shape.Shape, error) {
	if !t.HasStaticShape() {
		return nil, errors.Errorf("type %s has a dynamic shape", t.String())
	}
	return &shape.Shape{
		DType:       t.DType,
		AxisLengths: slices.Clone(t.Dims),
	}, nil
}

func dimString(n int) string {
	if IsDynamic(n) {
		return "?"
	}
	return fmt.Sprint(n)
}

// String representation of the tensor type.
func (t TensorType) String() string {
	var s strings.Builder
	s.WriteString("tensor<")
	for _, dim := range t.Dims {
		s.WriteString(dimString(dim))
		s.WriteString("x")
	}
	s.WriteString(t.DType.String())
	s.WriteString(">")
	return s.String()
}

// Equal returns true if other is an index type.
func (IndexType) Equal(other Type) bool {
	_, ok := other.(IndexType)
	return ok
}

// String representation of the index type.
func (IndexType) String() string {
	return "index"
}

// AsTensor returns the tensor type of a type or an error.
func AsTensor(typ Type) (TensorType, error) {
	tensor, ok := typ.(TensorType)
	if !ok {
		return TensorType{}, errors.Errorf("type %s is not a tensor type", typ.String())
	}
	return tensor, nil
}
