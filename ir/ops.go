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
	"slices"

	"github.com/pkg/errors"
)

// Kind of an operation.
type Kind uint

// Kinds of operations supported by the graph.
const (
	InvalidKind Kind = iota
	ArgumentKind
	DimKind
	ExtractSliceKind
	InsertSliceKind
	ParallelInsertSliceKind
	ExpandShapeKind
	CollapseShapeKind
)

// String returns the mnemonic of the kind.
func (k Kind) String() string {
	switch k {
	case ArgumentKind:
		return "argument"
	case DimKind:
		return "dim"
	case ExtractSliceKind:
		return "extract_slice"
	case InsertSliceKind:
		return "insert_slice"
	case ParallelInsertSliceKind:
		return "parallel_insert_slice"
	case ExpandShapeKind:
		return "expand_shape"
	case CollapseShapeKind:
		return "collapse_shape"
	}
	return "invalid"
}

type (
	// Op is an operation in a graph.
	Op interface {
		// Kind of the operation.
		Kind() Kind
		// Result returns the value produced by the operation.
		Result() Value
		// Operands returns all the values used by the operation.
		Operands() []Value

		operandRefs() []*Value
		base() *opBase
		verify(g *Graph, typ Type) error
	}

	opBase struct {
		result Value
	}
)

// Result returns the value produced by the operation.
func (op *opBase) Result() Value {
	return op.result
}

func (op *opBase) base() *opBase {
	return op
}

func operands(op Op) []Value {
	refs := op.operandRefs()
	vals := make([]Value, len(refs))
	for i, ref := range refs {
		vals[i] = *ref
	}
	return vals
}

// ArgumentOp is an input of the graph.
type ArgumentOp struct {
	opBase
	Name string
}

var _ Op = (*ArgumentOp)(nil)

// NewArgument adds an input to the graph.
func (g *Graph) NewArgument(name string, typ Type) (*ArgumentOp, error) {
	op := &ArgumentOp{Name: g.names.name(name)}
	if _, err := g.add(op, typ); err != nil {
		return nil, err
	}
	return op, nil
}

// Kind of the operation.
func (*ArgumentOp) Kind() Kind { return ArgumentKind }

// Operands returns all the values used by the operation.
func (op *ArgumentOp) Operands() []Value { return nil }

func (op *ArgumentOp) operandRefs() []*Value { return nil }

func (op *ArgumentOp) verify(g *Graph, typ Type) error {
	if typ == nil {
		return errors.Errorf("argument %s has no type", op.Name)
	}
	return nil
}

// DimOp returns the length of an axis of a tensor.
type DimOp struct {
	opBase
	source Value
	axis   int
}

var _ Op = (*DimOp)(nil)

// NewDim returns an operation computing the length of an axis of a tensor.
func (g *Graph) NewDim(source Value, axis int) (*DimOp, error) {
	op := &DimOp{source: source, axis: axis}
	if _, err := g.add(op, IndexType{}); err != nil {
		return nil, err
	}
	return op, nil
}

// Kind of the operation.
func (*DimOp) Kind() Kind { return DimKind }

// Source returns the tensor of which the axis length is computed.
func (op *DimOp) Source() Value { return op.source }

// Axis returns the index of the axis.
func (op *DimOp) Axis() int { return op.axis }

// Operands returns all the values used by the operation.
func (op *DimOp) Operands() []Value { return operands(op) }

func (op *DimOp) operandRefs() []*Value { return []*Value{&op.source} }

func (op *DimOp) verify(g *Graph, typ Type) error {
	src, err := g.TensorTypeOf(op.source)
	if err != nil {
		return err
	}
	if op.axis < 0 || op.axis >= src.Rank() {
		return errors.Errorf("axis %d out of range for %s", op.axis, src.String())
	}
	if !typ.Equal(IndexType{}) {
		return errors.Errorf("dim result type is %s but want index", typ.String())
	}
	return nil
}

// sliceParams are the offsets, sizes, and strides of a slice, one per axis.
type sliceParams struct {
	offsets, sizes, strides []Index
}

func newSliceParams(offsets, sizes, strides []Index) sliceParams {
	return sliceParams{
		offsets: slices.Clone(offsets),
		sizes:   slices.Clone(sizes),
		strides: slices.Clone(strides),
	}
}

// Offsets of the slice, one per axis.
func (p *sliceParams) Offsets() []Index { return slices.Clone(p.offsets) }

// Sizes of the slice, one per axis.
func (p *sliceParams) Sizes() []Index { return slices.Clone(p.sizes) }

// Strides of the slice, one per axis.
func (p *sliceParams) Strides() []Index { return slices.Clone(p.strides) }

// StaticOffsets returns the offsets of the slice known statically.
func (p *sliceParams) StaticOffsets() []int { return StaticValues(p.offsets) }

// StaticSizes returns the sizes of the slice known statically.
func (p *sliceParams) StaticSizes() []int { return StaticValues(p.sizes) }

func (p *sliceParams) refs() []*Value {
	refs := indexRefs(p.offsets)
	refs = append(refs, indexRefs(p.sizes)...)
	return append(refs, indexRefs(p.strides)...)
}

func (p *sliceParams) verify(g *Graph, rank int) error {
	for _, field := range []struct {
		name    string
		indices []Index
	}{
		{"offsets", p.offsets},
		{"sizes", p.sizes},
		{"strides", p.strides},
	} {
		if len(field.indices) != rank {
			return errors.Errorf("got %d %s but want %d", len(field.indices), field.name, rank)
		}
		for _, idx := range field.indices {
			if idx.IsStatic() {
				if idx.static < 0 {
					return errors.Errorf("%s contains a negative static value %d", field.name, idx.static)
				}
				continue
			}
			if typ := g.TypeOf(idx.value); typ == nil || !typ.Equal(IndexType{}) {
				return errors.Errorf("%s value %s is not an index", field.name, idx.value)
			}
		}
	}
	return nil
}

// ExtractSliceOp extracts a slice of a tensor.
// The result may drop axes of static length 1 (rank-reducing slice).
type ExtractSliceOp struct {
	opBase
	sliceParams
	source Value
}

var _ Op = (*ExtractSliceOp)(nil)

// NewExtractSlice extracts a slice of a tensor without rank reduction.
func (g *Graph) NewExtractSlice(source Value, offsets, sizes, strides []Index) (*ExtractSliceOp, error) {
	src, err := g.TensorTypeOf(source)
	if err != nil {
		return nil, err
	}
	return g.NewExtractSliceWithType(InferExtractSliceType(src, StaticValues(sizes)), source, offsets, sizes, strides)
}

// NewExtractSliceWithType extracts a slice of a tensor given the type of the result.
// The type may be rank-reduced, that is axes of static length 1 may be dropped.
func (g *Graph) NewExtractSliceWithType(typ TensorType, source Value, offsets, sizes, strides []Index) (*ExtractSliceOp, error) {
	op := &ExtractSliceOp{
		sliceParams: newSliceParams(offsets, sizes, strides),
		source:      source,
	}
	if _, err := g.add(op, typ); err != nil {
		return nil, err
	}
	return op, nil
}

// Kind of the operation.
func (*ExtractSliceOp) Kind() Kind { return ExtractSliceKind }

// Source returns the tensor from which the slice is extracted.
func (op *ExtractSliceOp) Source() Value { return op.source }

// Operands returns all the values used by the operation.
func (op *ExtractSliceOp) Operands() []Value { return operands(op) }

func (op *ExtractSliceOp) operandRefs() []*Value {
	return append([]*Value{&op.source}, op.sliceParams.refs()...)
}

func (op *ExtractSliceOp) verify(g *Graph, typ Type) error {
	src, err := g.TensorTypeOf(op.source)
	if err != nil {
		return err
	}
	if err := op.sliceParams.verify(g, src.Rank()); err != nil {
		return errors.Wrapf(err, "invalid extract_slice of %s", src.String())
	}
	resultType, err := AsTensor(typ)
	if err != nil {
		return err
	}
	inferred := InferExtractSliceType(src, op.StaticSizes())
	if res := IsRankReducedType(inferred, resultType); res != Success {
		return errors.Errorf("extract_slice result type %s is not compatible with %s: %s", resultType, inferred, res)
	}
	return nil
}

type (
	// InsertLikeOp is an operation inserting a source tensor in a slice of a destination tensor.
	InsertLikeOp interface {
		Op

		// Source returns the tensor being inserted.
		Source() Value
		// SetSource replaces the source being inserted.
		// It should only be called inside Graph.ModifyOp.
		SetSource(Value)
		// Dest returns the tensor in which the source is inserted.
		Dest() Value
		// Offsets of the slice, one per axis of the destination.
		Offsets() []Index
		// Sizes of the slice, one per axis of the destination.
		Sizes() []Index
		// Strides of the slice, one per axis of the destination.
		Strides() []Index
		// StaticSizes returns the sizes known statically.
		StaticSizes() []int
	}

	insertBase struct {
		opBase
		sliceParams
		source, dest Value
	}

	// InsertSliceOp inserts a tensor in a slice of another tensor.
	// The source may drop axes of static length 1 of the slice (rank-reducing insert).
	InsertSliceOp struct {
		insertBase
	}

	// ParallelInsertSliceOp inserts a tensor in a slice of a tensor shared by
	// parallel iterations. It has the same semantic as InsertSliceOp.
	ParallelInsertSliceOp struct {
		insertBase
	}
)

var (
	_ InsertLikeOp = (*InsertSliceOp)(nil)
	_ InsertLikeOp = (*ParallelInsertSliceOp)(nil)
)

func (g *Graph) newInsertBase(source, dest Value, offsets, sizes, strides []Index) insertBase {
	return insertBase{
		sliceParams: newSliceParams(offsets, sizes, strides),
		source:      source,
		dest:        dest,
	}
}

func (g *Graph) addInsert(op InsertLikeOp) error {
	dest, err := g.TensorTypeOf(op.Dest())
	if err != nil {
		return err
	}
	_, err = g.add(op, dest)
	return err
}

// NewInsertSlice inserts a tensor into a slice of another tensor.
func (g *Graph) NewInsertSlice(source, dest Value, offsets, sizes, strides []Index) (*InsertSliceOp, error) {
	op := &InsertSliceOp{insertBase: g.newInsertBase(source, dest, offsets, sizes, strides)}
	if err := g.addInsert(op); err != nil {
		return nil, err
	}
	return op, nil
}

// NewParallelInsertSlice inserts a tensor into a slice of a tensor shared by parallel iterations.
func (g *Graph) NewParallelInsertSlice(source, dest Value, offsets, sizes, strides []Index) (*ParallelInsertSliceOp, error) {
	op := &ParallelInsertSliceOp{insertBase: g.newInsertBase(source, dest, offsets, sizes, strides)}
	if err := g.addInsert(op); err != nil {
		return nil, err
	}
	return op, nil
}

// NewInsertLike creates an insert operation given its kind.
func (g *Graph) NewInsertLike(kind Kind, source, dest Value, offsets, sizes, strides []Index) (InsertLikeOp, error) {
	switch kind {
	case InsertSliceKind:
		return g.NewInsertSlice(source, dest, offsets, sizes, strides)
	case ParallelInsertSliceKind:
		return g.NewParallelInsertSlice(source, dest, offsets, sizes, strides)
	}
	return nil, errors.Errorf("%s is not an insert operation", kind.String())
}

// Kind of the operation.
func (*InsertSliceOp) Kind() Kind { return InsertSliceKind }

// Kind of the operation.
func (*ParallelInsertSliceOp) Kind() Kind { return ParallelInsertSliceKind }

// Source returns the tensor being inserted.
func (op *insertBase) Source() Value { return op.source }

// SetSource replaces the source being inserted.
func (op *insertBase) SetSource(v Value) { op.source = v }

// Dest returns the tensor in which the source is inserted.
func (op *insertBase) Dest() Value { return op.dest }

func (op *insertBase) operandRefs() []*Value {
	return append([]*Value{&op.source, &op.dest}, op.sliceParams.refs()...)
}

// Operands returns all the values used by the operation.
func (op *InsertSliceOp) Operands() []Value { return operands(op) }

// Operands returns all the values used by the operation.
func (op *ParallelInsertSliceOp) Operands() []Value { return operands(op) }

func (op *insertBase) verify(g *Graph, typ Type) error {
	src, err := g.TensorTypeOf(op.source)
	if err != nil {
		return err
	}
	dest, err := g.TensorTypeOf(op.dest)
	if err != nil {
		return err
	}
	if err := op.sliceParams.verify(g, dest.Rank()); err != nil {
		return errors.Wrapf(err, "invalid insertion in %s", dest.String())
	}
	if !dest.Equal(typ) {
		return errors.Errorf("insertion result type %s differs from destination type %s", typ, dest)
	}
	expected := dest.Clone(op.StaticSizes())
	if res := IsRankReducedType(expected, src); res != Success {
		return errors.Errorf("cannot insert %s in a slice %s: %s", src, expected, res)
	}
	return nil
}

// ExpandShapeOp increases the rank of a tensor by splitting each of its axes
// into a group of axes.
type ExpandShapeOp struct {
	opBase
	source        Value
	reassociation Reassociation
	outputShape   []Index
}

var _ Op = (*ExpandShapeOp)(nil)

// NewExpandShape expands the axes of a tensor.
// Group i of the reassociation lists the axes of the result obtained by splitting
// axis i of the source. The result type is inferred from the output shape.
func (g *Graph) NewExpandShape(source Value, re Reassociation, outputShape []Index) (*ExpandShapeOp, error) {
	src, err := g.TensorTypeOf(source)
	if err != nil {
		return nil, err
	}
	op := &ExpandShapeOp{
		source:        source,
		reassociation: re.Clone(),
		outputShape:   slices.Clone(outputShape),
	}
	if _, err := g.add(op, InferExpandedType(src, outputShape)); err != nil {
		return nil, err
	}
	return op, nil
}

// Kind of the operation.
func (*ExpandShapeOp) Kind() Kind { return ExpandShapeKind }

// Source returns the tensor being expanded.
func (op *ExpandShapeOp) Source() Value { return op.source }

// Reassociation returns the groups of result axes, one group per source axis.
func (op *ExpandShapeOp) Reassociation() Reassociation { return op.reassociation.Clone() }

// OutputShape returns the axis lengths of the result.
func (op *ExpandShapeOp) OutputShape() []Index { return slices.Clone(op.outputShape) }

// StaticOutputShape returns the axis lengths of the result known statically.
func (op *ExpandShapeOp) StaticOutputShape() []int { return StaticValues(op.outputShape) }

// Operands returns all the values used by the operation.
func (op *ExpandShapeOp) Operands() []Value { return operands(op) }

func (op *ExpandShapeOp) operandRefs() []*Value {
	return append([]*Value{&op.source}, indexRefs(op.outputShape)...)
}

func (op *ExpandShapeOp) verify(g *Graph, typ Type) error {
	src, err := g.TensorTypeOf(op.source)
	if err != nil {
		return err
	}
	resultType, err := AsTensor(typ)
	if err != nil {
		return err
	}
	if err := VerifyReshape(src, resultType, op.reassociation); err != nil {
		return errors.Wrapf(err, "invalid expand_shape")
	}
	if !resultType.Equal(InferExpandedType(src, op.outputShape)) {
		return errors.Errorf("expand_shape result type %s does not match output shape %v", resultType, op.StaticOutputShape())
	}
	for _, idx := range op.outputShape {
		if idx.IsStatic() {
			continue
		}
		if t := g.TypeOf(idx.value); t == nil || !t.Equal(IndexType{}) {
			return errors.Errorf("expand_shape output shape value %s is not an index", idx.value)
		}
	}
	return nil
}

// CollapseShapeOp decreases the rank of a tensor by merging groups of axes.
type CollapseShapeOp struct {
	opBase
	source        Value
	reassociation Reassociation
}

var _ Op = (*CollapseShapeOp)(nil)

// NewCollapseShape merges the axes of a tensor.
// Group i of the reassociation lists the axes of the source merged into axis i of the result.
func (g *Graph) NewCollapseShape(source Value, re Reassociation) (*CollapseShapeOp, error) {
	src, err := g.TensorTypeOf(source)
	if err != nil {
		return nil, err
	}
	if err := re.Valid(src.Rank()); err != nil {
		return nil, errors.Wrapf(err, "invalid collapse_shape of %s", src.String())
	}
	op := &CollapseShapeOp{
		source:        source,
		reassociation: re.Clone(),
	}
	if _, err := g.add(op, InferCollapsedType(src, re)); err != nil {
		return nil, err
	}
	return op, nil
}

// Kind of the operation.
func (*CollapseShapeOp) Kind() Kind { return CollapseShapeKind }

// Source returns the tensor being collapsed.
func (op *CollapseShapeOp) Source() Value { return op.source }

// Reassociation returns the groups of source axes, one group per result axis.
func (op *CollapseShapeOp) Reassociation() Reassociation { return op.reassociation.Clone() }

// Operands returns all the values used by the operation.
func (op *CollapseShapeOp) Operands() []Value { return operands(op) }

func (op *CollapseShapeOp) operandRefs() []*Value { return []*Value{&op.source} }

func (op *CollapseShapeOp) verify(g *Graph, typ Type) error {
	src, err := g.TensorTypeOf(op.source)
	if err != nil {
		return err
	}
	resultType, err := AsTensor(typ)
	if err != nil {
		return err
	}
	if err := VerifyReshape(resultType, src, op.reassociation); err != nil {
		return errors.Wrapf(err, "invalid collapse_shape")
	}
	return nil
}

// VerifyReshape checks that the axes of expanded grouped by the reassociation
// are consistent with the axes of collapsed.
func VerifyReshape(collapsed, expanded TensorType, re Reassociation) error {
	if collapsed.DType != expanded.DType {
		return errors.Errorf("element types %s and %s differ", collapsed.DType, expanded.DType)
	}
	if len(re) != collapsed.Rank() {
		return errors.Errorf("reassociation %s has %d groups but the collapsed type %s has rank %d", re, len(re), collapsed, collapsed.Rank())
	}
	if err := re.Valid(expanded.Rank()); err != nil {
		return err
	}
	inferred := InferCollapsedType(expanded, re)
	for i, want := range collapsed.Dims {
		got := inferred.Dims[i]
		if IsDynamic(got) {
			if !IsDynamic(want) {
				return errors.Errorf("axis %d of %s is static but the group %v of %s has a dynamic axis", i, collapsed, re[i], expanded)
			}
			continue
		}
		if IsDynamic(want) {
			continue
		}
		if got != want {
			return errors.Errorf("axis %d of %s has length %d but the group %v of %s has %d elements", i, collapsed, want, re[i], expanded, got)
		}
	}
	return nil
}
