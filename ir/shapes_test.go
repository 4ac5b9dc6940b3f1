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

package ir_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/tensorfold/ir"
)

const dyn = ir.Dynamic

func TestRankReductionMask(t *testing.T) {
	tests := []struct {
		original, reduced []int
		want              map[int]bool
		ok                bool
	}{
		{
			original: []int{4, 1, 4},
			reduced:  []int{4, 4},
			want:     map[int]bool{1: true},
			ok:       true,
		},
		{
			original: []int{1, 4, 1},
			reduced:  []int{4},
			want:     map[int]bool{0: true, 2: true},
			ok:       true,
		},
		{
			original: []int{1, 1},
			reduced:  []int{1},
			want:     map[int]bool{1: true},
			ok:       true,
		},
		{
			original: []int{4, 2},
			reduced:  []int{8},
		},
		{
			original: []int{4, 1},
			reduced:  []int{4, 1, 1},
		},
		{
			original: []int{dyn, 1, 3},
			reduced:  []int{dyn, 3},
			want:     map[int]bool{1: true},
			ok:       true,
		},
		{
			original: []int{dyn, 3},
			reduced:  []int{3},
		},
		{
			original: []int{2, 3},
			reduced:  []int{2, 3},
			want:     map[int]bool{},
			ok:       true,
		},
	}
	for i, test := range tests {
		got, ok := ir.RankReductionMask(test.original, test.reduced)
		if ok != test.ok {
			t.Errorf("test %d: mask of %v to %v: got ok=%v but want %v", i, test.original, test.reduced, ok, test.ok)
			continue
		}
		if !ok {
			continue
		}
		if !cmp.Equal(got, test.want) {
			t.Errorf("test %d: mask of %v to %v: got %v but want %v", i, test.original, test.reduced, got, test.want)
		}
	}
}

func TestIsRankReducedType(t *testing.T) {
	tests := []struct {
		original, candidate ir.TensorType
		want                ir.SliceVerificationResult
	}{
		{
			original:  ir.Tensor(dtype.Float32, 4, 1, 4),
			candidate: ir.Tensor(dtype.Float32, 4, 1, 4),
			want:      ir.Success,
		},
		{
			original:  ir.Tensor(dtype.Float32, 4, 1, 4),
			candidate: ir.Tensor(dtype.Float32, 4, 4),
			want:      ir.Success,
		},
		{
			original:  ir.Tensor(dtype.Float32, 4, 4),
			candidate: ir.Tensor(dtype.Float32, 4, 1, 4),
			want:      ir.RankTooLarge,
		},
		{
			original:  ir.Tensor(dtype.Float32, 2, 8),
			candidate: ir.Tensor(dtype.Float32, 16),
			want:      ir.SizeMismatch,
		},
		{
			original:  ir.Tensor(dtype.Float32, 4, 1, 4),
			candidate: ir.Tensor(dtype.Int32, 4, 4),
			want:      ir.ElemTypeMismatch,
		},
	}
	for i, test := range tests {
		got := ir.IsRankReducedType(test.original, test.candidate)
		if got != test.want {
			t.Errorf("test %d: %s to %s: got %s but want %s", i, test.original, test.candidate, got, test.want)
		}
	}
}

func TestReassociationValid(t *testing.T) {
	tests := []struct {
		re       ir.Reassociation
		highRank int
		wantErr  bool
	}{
		{re: ir.Reassociation{{0, 1}, {2}}, highRank: 3},
		{re: ir.IdentityReassociation(4), highRank: 4},
		{re: ir.Reassociation{{0}, {}}, highRank: 1, wantErr: true},
		{re: ir.Reassociation{{1, 0}}, highRank: 2, wantErr: true},
		{re: ir.Reassociation{{0}, {2}}, highRank: 3, wantErr: true},
		{re: ir.Reassociation{{0, 1}}, highRank: 3, wantErr: true},
	}
	for i, test := range tests {
		if got := test.re.HighRank(); !test.wantErr && got != test.highRank {
			t.Errorf("test %d: reassociation %s: got high rank %d but want %d", i, test.re, got, test.highRank)
		}
		err := test.re.Valid(test.highRank)
		if (err != nil) != test.wantErr {
			t.Errorf("test %d: reassociation %s with rank %d: got error %v but want error=%v", i, test.re, test.highRank, err, test.wantErr)
		}
	}
}

func TestInferCollapsedType(t *testing.T) {
	tests := []struct {
		src  ir.TensorType
		re   ir.Reassociation
		want []int
	}{
		{
			src:  ir.Tensor(dtype.Float32, 2, 3, 4),
			re:   ir.Reassociation{{0, 1}, {2}},
			want: []int{6, 4},
		},
		{
			src:  ir.Tensor(dtype.Float32, 2, dyn, 4),
			re:   ir.Reassociation{{0, 1}, {2}},
			want: []int{dyn, 4},
		},
		{
			src:  ir.Tensor(dtype.Float32, 2, 3, 4),
			re:   ir.Reassociation{{0, 1, 2}},
			want: []int{24},
		},
	}
	for i, test := range tests {
		got := ir.InferCollapsedType(test.src, test.re)
		if !cmp.Equal(got.Dims, test.want) {
			t.Errorf("test %d: collapsing %s with %s: got %v but want %v", i, test.src, test.re, got.Dims, test.want)
		}
	}
}

func TestTensorTypeEqual(t *testing.T) {
	a := ir.Tensor(dtype.Float32, 4, dyn)
	if !a.Equal(ir.Tensor(dtype.Float32, 4, dyn)) {
		t.Errorf("%s should be equal to itself", a)
	}
	for _, other := range []ir.Type{
		ir.Tensor(dtype.Float32, 4, 4),
		ir.Tensor(dtype.Float64, 4, dyn),
		ir.Tensor(dtype.Float32, 4),
		ir.IndexType{},
	} {
		if a.Equal(other) {
			t.Errorf("%s should not be equal to %s", a, other)
		}
	}
	if _, err := a.Shape(); err == nil {
		t.Errorf("expected an error when converting %s to a static shape", a)
	}
	sh, err := ir.Tensor(dtype.Float32, 2, 3).Shape()
	if err != nil {
		t.Fatal(err)
	}
	if sh.Size() != 6 {
		t.Errorf("got size %d but want 6", sh.Size())
	}
}
