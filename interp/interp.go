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

// Package interp evaluates a graph on host arrays.
//
// The interpreter is a reference implementation of the semantic of each
// operation. It is used to check that rewrites preserve the values computed
// by a graph.
package interp

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/tensorfold/internal/kernels"
	"github.com/gx-org/tensorfold/ir"
	"github.com/pkg/errors"
)

type (
	// Args maps the arguments of a graph to their values.
	// Tensor arguments are *kernels.Array[T], index arguments are int.
	Args map[ir.Value]any

	state[T dtype.GoDataType] struct {
		g       *ir.Graph
		args    Args
		tensors map[ir.Value]*kernels.Array[T]
		indices map[ir.Value]int
	}
)

// Run evaluates all the operations of a graph and returns the values of its outputs.
func Run[T dtype.GoDataType](g *ir.Graph, args Args) ([]*kernels.Array[T], error) {
	st := &state[T]{
		g:       g,
		args:    args,
		tensors: make(map[ir.Value]*kernels.Array[T]),
		indices: make(map[ir.Value]int),
	}
	for _, op := range g.Ops() {
		if err := st.eval(op); err != nil {
			return nil, errors.Wrapf(err, "cannot evaluate %s", g.OpString(op))
		}
	}
	outs := make([]*kernels.Array[T], len(g.Outputs()))
	for i, out := range g.Outputs() {
		array, ok := st.tensors[out]
		if !ok {
			return nil, errors.Errorf("output %d is not a tensor", i)
		}
		outs[i] = array
	}
	return outs, nil
}

func (st *state[T]) tensor(v ir.Value) (*kernels.Array[T], error) {
	array, ok := st.tensors[v]
	if !ok {
		return nil, errors.Errorf("tensor %s has not been computed", v)
	}
	return array, nil
}

func (st *state[T]) index(idx ir.Index) (int, error) {
	if idx.IsStatic() {
		return idx.StaticValue(), nil
	}
	val, ok := st.indices[idx.Value()]
	if !ok {
		return 0, errors.Errorf("index %s has not been computed", idx.Value())
	}
	return val, nil
}

func (st *state[T]) indexList(indices []ir.Index) ([]int, error) {
	vals := make([]int, len(indices))
	for i, idx := range indices {
		var err error
		if vals[i], err = st.index(idx); err != nil {
			return nil, err
		}
	}
	return vals, nil
}

func (st *state[T]) slice(offsets, sizes, strides []ir.Index) (s kernels.Slice, err error) {
	if s.Offsets, err = st.indexList(offsets); err != nil {
		return
	}
	if s.Sizes, err = st.indexList(sizes); err != nil {
		return
	}
	s.Strides, err = st.indexList(strides)
	return
}

func (st *state[T]) eval(op ir.Op) error {
	res := op.Result()
	switch opT := op.(type) {
	case *ir.ArgumentOp:
		return st.evalArgument(opT)
	case *ir.DimOp:
		src, err := st.tensor(opT.Source())
		if err != nil {
			return err
		}
		st.indices[res] = src.Dims()[opT.Axis()]
		return nil
	case *ir.ExtractSliceOp:
		return st.evalExtractSlice(opT)
	case ir.InsertLikeOp:
		src, err := st.tensor(opT.Source())
		if err != nil {
			return err
		}
		dest, err := st.tensor(opT.Dest())
		if err != nil {
			return err
		}
		s, err := st.slice(opT.Offsets(), opT.Sizes(), opT.Strides())
		if err != nil {
			return err
		}
		st.tensors[res], err = kernels.InsertSlice(src, dest, s)
		return err
	case *ir.ExpandShapeOp:
		src, err := st.tensor(opT.Source())
		if err != nil {
			return err
		}
		dims, err := st.indexList(opT.OutputShape())
		if err != nil {
			return err
		}
		st.tensors[res], err = kernels.Reshape(src, dims)
		return err
	case *ir.CollapseShapeOp:
		src, err := st.tensor(opT.Source())
		if err != nil {
			return err
		}
		srcDims := src.Dims()
		re := opT.Reassociation()
		dims := make([]int, len(re))
		for i, group := range re {
			dims[i] = 1
			for _, axis := range group {
				dims[i] *= srcDims[axis]
			}
		}
		st.tensors[res], err = kernels.Reshape(src, dims)
		return err
	}
	return errors.Errorf("operation %s not supported", op.Kind())
}

func (st *state[T]) evalArgument(op *ir.ArgumentOp) error {
	res := op.Result()
	val, ok := st.argValue(res)
	if !ok {
		return errors.Errorf("missing value for argument %s", op.Name)
	}
	switch typ := st.g.TypeOf(res).(type) {
	case ir.IndexType:
		n, ok := val.(int)
		if !ok {
			return errors.Errorf("argument %s: got %T but want int", op.Name, val)
		}
		st.indices[res] = n
	case ir.TensorType:
		array, ok := val.(*kernels.Array[T])
		if !ok {
			return errors.Errorf("argument %s: got %T but want %T", op.Name, val, array)
		}
		if !matchDims(typ.Dims, array.Dims()) {
			return errors.Errorf("argument %s: array of axes %v does not match type %s", op.Name, array.Dims(), typ)
		}
		st.tensors[res] = array
	default:
		return errors.Errorf("argument %s: type %s not supported", op.Name, typ)
	}
	return nil
}

func (st *state[T]) argValue(v ir.Value) (any, bool) {
	val, ok := st.args[v]
	return val, ok
}

func (st *state[T]) evalExtractSlice(op *ir.ExtractSliceOp) error {
	src, err := st.tensor(op.Source())
	if err != nil {
		return err
	}
	s, err := st.slice(op.Offsets(), op.Sizes(), op.Strides())
	if err != nil {
		return err
	}
	resultType, err := st.g.TensorTypeOf(op.Result())
	if err != nil {
		return err
	}
	dropped, ok := ir.RankReductionMask(op.StaticSizes(), resultType.Dims)
	if !ok {
		return errors.Errorf("cannot reduce sizes %v to %s", op.StaticSizes(), resultType)
	}
	var dims []int
	for axis, size := range s.Sizes {
		if dropped[axis] {
			continue
		}
		dims = append(dims, size)
	}
	st.tensors[op.Result()], err = kernels.ExtractSlice(src, s, dims)
	return err
}

func matchDims(static, dims []int) bool {
	if len(static) != len(dims) {
		return false
	}
	for i, dim := range static {
		if !ir.IsDynamic(dim) && dim != dims[i] {
			return false
		}
	}
	return true
}
