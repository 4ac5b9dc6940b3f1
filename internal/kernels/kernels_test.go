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

package kernels_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/tensorfold/internal/kernels"
)

func TestExtractSlice(t *testing.T) {
	tests := []struct {
		dims  []int
		slice kernels.Slice
		out   []int
		want  []int32
	}{
		{
			dims: []int{2, 3},
			slice: kernels.Slice{
				Offsets: []int{0, 1},
				Sizes:   []int{2, 2},
				Strides: []int{1, 1},
			},
			out:  []int{2, 2},
			want: []int32{1, 2, 4, 5},
		},
		{
			dims: []int{6},
			slice: kernels.Slice{
				Offsets: []int{1},
				Sizes:   []int{3},
				Strides: []int{2},
			},
			out:  []int{3},
			want: []int32{1, 3, 5},
		},
		{
			dims: []int{3, 1, 2},
			slice: kernels.Slice{
				Offsets: []int{2, 0, 0},
				Sizes:   []int{1, 1, 2},
				Strides: []int{1, 1, 1},
			},
			out:  []int{2},
			want: []int32{4, 5},
		},
	}
	for i, test := range tests {
		got, err := kernels.ExtractSlice(kernels.Iota[int32](test.dims), test.slice, test.out)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		if !cmp.Equal(got.Flat(), test.want) {
			t.Errorf("test %d: got %v but want %v", i, got.Flat(), test.want)
		}
		if !cmp.Equal(got.Dims(), test.out) {
			t.Errorf("test %d: got axes %v but want %v", i, got.Dims(), test.out)
		}
	}
}

func TestExtractSliceOutOfBounds(t *testing.T) {
	_, err := kernels.ExtractSlice(kernels.Iota[int32]([]int{4}), kernels.Slice{
		Offsets: []int{2},
		Sizes:   []int{2},
		Strides: []int{2},
	}, []int{2})
	if err == nil {
		t.Errorf("expected an out of bounds error")
	}
}

func TestInsertSlice(t *testing.T) {
	src := kernels.Iota[int32]([]int{2})
	dest := kernels.Zeros[int32]([]int{2, 3})
	got, err := kernels.InsertSlice(src, dest, kernels.Slice{
		Offsets: []int{1, 0},
		Sizes:   []int{1, 2},
		Strides: []int{1, 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []int32{0, 0, 0, 0, 0, 1}
	if !cmp.Equal(got.Flat(), want) {
		t.Errorf("got %v but want %v", got.Flat(), want)
	}
	if !cmp.Equal(dest.Flat(), make([]int32, 6)) {
		t.Errorf("destination has been modified: %v", dest.Flat())
	}
}

func TestReshape(t *testing.T) {
	a := kernels.Iota[float32]([]int{2, 3})
	got, err := kernels.Reshape(a, []int{3, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	v, err := got.At(2, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v != 5 {
		t.Errorf("got %v but want 5", v)
	}
	if _, err := kernels.Reshape(a, []int{4}); err == nil {
		t.Errorf("expected an error when the number of elements changes")
	}
}
