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

package interp_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/tensorfold/internal/kernels"
	"github.com/gx-org/tensorfold/interp"
	"github.com/gx-org/tensorfold/ir"
)

func TestRun(t *testing.T) {
	g := ir.NewGraph()
	x, err := g.NewArgument("x", ir.Tensor(dtype.Int32, 2, ir.Dynamic))
	if err != nil {
		t.Fatal(err)
	}
	dest, err := g.NewArgument("dest", ir.Tensor(dtype.Int32, 3, 1, 3))
	if err != nil {
		t.Fatal(err)
	}
	off, err := g.NewArgument("off", ir.IndexType{})
	if err != nil {
		t.Fatal(err)
	}
	// Extract the column off of x as a vector.
	col, err := g.NewExtractSliceWithType(ir.Tensor(dtype.Int32, 2), x.Result(),
		[]ir.Index{ir.Static(0), ir.DynIndex(off.Result())},
		ir.StaticIndices(2, 1),
		ir.StaticIndices(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	expanded, err := g.NewExpandShape(col.Result(), ir.Reassociation{{0, 1}}, ir.StaticIndices(2, 1))
	if err != nil {
		t.Fatal(err)
	}
	inserted, err := g.NewParallelInsertSlice(expanded.Result(), dest.Result(),
		ir.StaticIndices(1, 0, 1),
		ir.StaticIndices(2, 1, 1),
		ir.StaticIndices(1, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	collapsed, err := g.NewCollapseShape(inserted.Result(), ir.Reassociation{{0, 1}, {2}})
	if err != nil {
		t.Fatal(err)
	}
	n, err := g.NewDim(x.Result(), 1)
	if err != nil {
		t.Fatal(err)
	}
	row, err := g.NewExtractSlice(x.Result(), ir.StaticIndices(1, 0), []ir.Index{ir.Static(1), ir.DynIndex(n.Result())}, ir.StaticIndices(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := g.SetOutputs(collapsed.Result(), row.Result()); err != nil {
		t.Fatal(err)
	}
	outs, err := interp.Run[int32](g, interp.Args{
		x.Result():    kernels.Iota[int32]([]int{2, 4}),
		dest.Result(): kernels.Zeros[int32]([]int{3, 1, 3}),
		off.Result():  2,
	})
	if err != nil {
		t.Fatalf("%s\n%+v", g.String(), err)
	}
	type value struct {
		Dims []int
		Flat []int32
	}
	got := make([]value, len(outs))
	for i, out := range outs {
		got[i] = value{Dims: out.Dims(), Flat: out.Flat()}
	}
	want := []value{
		{Dims: []int{3, 3}, Flat: []int32{
			0, 0, 0,
			0, 2, 0,
			0, 6, 0,
		}},
		{Dims: []int{1, 4}, Flat: []int32{4, 5, 6, 7}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected outputs: (-want +got)\n%s", diff)
	}
}

func TestRunErrors(t *testing.T) {
	g := ir.NewGraph()
	x, err := g.NewArgument("x", ir.Tensor(dtype.Float32, 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	if err := g.SetOutputs(x.Result()); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		args interp.Args
	}{
		{"missing argument", interp.Args{}},
		{"wrong axes", interp.Args{x.Result(): kernels.Zeros[float32]([]int{3, 2})}},
		{"wrong element type", interp.Args{x.Result(): kernels.Zeros[int32]([]int{2, 3})}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := interp.Run[float32](g, test.args); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}
