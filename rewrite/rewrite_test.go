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

package rewrite_test

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/tensorfold/ir"
	"github.com/gx-org/tensorfold/rewrite"
	"github.com/pkg/errors"
)

// removeIdentityCollapse replaces a collapse_shape not merging any axis by its source.
type removeIdentityCollapse struct{}

func (removeIdentityCollapse) Name() string { return "RemoveIdentityCollapse" }

func (removeIdentityCollapse) Root() ir.Kind { return ir.CollapseShapeKind }

func (removeIdentityCollapse) MatchAndRewrite(op ir.Op, rw *rewrite.Rewriter) error {
	collapse := op.(*ir.CollapseShapeOp)
	for _, group := range collapse.Reassociation() {
		if len(group) != 1 {
			return rw.NotifyMatchFailure(op, "group %v merges axes", group)
		}
	}
	return rw.ReplaceOp(op, collapse.Source())
}

// recreateCollapse always replaces a collapse_shape by an identical one.
type recreateCollapse struct{}

func (recreateCollapse) Name() string { return "RecreateCollapse" }

func (recreateCollapse) Root() ir.Kind { return ir.CollapseShapeKind }

func (recreateCollapse) MatchAndRewrite(op ir.Op, rw *rewrite.Rewriter) error {
	collapse := op.(*ir.CollapseShapeOp)
	nw, err := rw.Graph().NewCollapseShape(collapse.Source(), collapse.Reassociation())
	if err != nil {
		return err
	}
	return rw.ReplaceOp(op, nw.Result())
}

var errBroken = errors.New("broken pattern")

type brokenPattern struct{}

func (brokenPattern) Name() string { return "Broken" }

func (brokenPattern) Root() ir.Kind { return ir.CollapseShapeKind }

func (brokenPattern) MatchAndRewrite(op ir.Op, rw *rewrite.Rewriter) error {
	return errBroken
}

var discard = rewrite.WithLogger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

func newGraph(t *testing.T) (*ir.Graph, ir.Value) {
	t.Helper()
	g := ir.NewGraph()
	x, err := g.NewArgument("x", ir.Tensor(dtype.Float32, 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	identity, err := g.NewCollapseShape(x.Result(), ir.Reassociation{{0}, {1}})
	if err != nil {
		t.Fatal(err)
	}
	merged, err := g.NewCollapseShape(identity.Result(), ir.Reassociation{{0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.SetOutputs(merged.Result()); err != nil {
		t.Fatal(err)
	}
	return g, x.Result()
}

func TestPatternSet(t *testing.T) {
	set := rewrite.NewPatternSet().
		Add(removeIdentityCollapse{}, recreateCollapse{}).
		Add(removeIdentityCollapse{})
	if got, want := set.Len(), 2; got != want {
		t.Errorf("got %d patterns but want %d", got, want)
	}
	if diff := cmp.Diff([]string{"RemoveIdentityCollapse", "RecreateCollapse"}, set.Names()); diff != "" {
		t.Errorf("unexpected names: (-want +got)\n%s", diff)
	}
}

func TestApplyPatternsGreedily(t *testing.T) {
	g, x := newGraph(t)
	set := rewrite.NewPatternSet().Add(removeIdentityCollapse{})
	stats, err := rewrite.ApplyPatternsGreedily(g, set, discard)
	if err != nil {
		t.Fatal(err)
	}
	want := &rewrite.Stats{
		Iterations: 2,
		Rewrites:   map[string]int{"RemoveIdentityCollapse": 1},
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("unexpected stats: (-want +got)\n%s", diff)
	}
	if err := ir.Verify(g); err != nil {
		t.Fatalf("invalid graph:\n%+v", err)
	}
	merged, ok := ir.DefiningOpOf[*ir.CollapseShapeOp](g, g.Outputs()[0])
	if !ok {
		t.Fatalf("output is not a collapse_shape:\n%s", g.String())
	}
	if merged.Source() != x {
		t.Errorf("collapse_shape source is %s but want %s", merged.Source(), x)
	}
	if got, want := g.NumOps(), 2; got != want {
		t.Errorf("got %d operations but want %d:\n%s", got, want, g.String())
	}
}

func TestDeadOps(t *testing.T) {
	for _, keep := range []bool{false, true} {
		g, x := newGraph(t)
		if _, err := g.NewCollapseShape(x, ir.Reassociation{{0, 1}}); err != nil {
			t.Fatal(err)
		}
		stats, err := rewrite.ApplyPatternsGreedily(g, rewrite.NewPatternSet(), discard, rewrite.KeepDeadOps(keep))
		if err != nil {
			t.Fatal(err)
		}
		wantErased, wantOps := 1, 3
		if keep {
			wantErased, wantOps = 0, 4
		}
		if stats.Erased != wantErased {
			t.Errorf("keep=%t: got %d erased operations but want %d", keep, stats.Erased, wantErased)
		}
		if got := g.NumOps(); got != wantOps {
			t.Errorf("keep=%t: got %d operations but want %d:\n%s", keep, got, wantOps, g.String())
		}
	}
}

func TestNotConverged(t *testing.T) {
	g, _ := newGraph(t)
	set := rewrite.NewPatternSet().Add(recreateCollapse{})
	stats, err := rewrite.ApplyPatternsGreedily(g, set, discard, rewrite.MaxIterations(3))
	if !errors.Is(err, rewrite.ErrNotConverged) {
		t.Fatalf("got error %v but want %v", err, rewrite.ErrNotConverged)
	}
	if got, want := stats.Iterations, 3; got != want {
		t.Errorf("got %d iterations but want %d", got, want)
	}
	// Both collapses are recreated at each iteration.
	if got, want := stats.NumRewrites(), 6; got != want {
		t.Errorf("got %d rewrites but want %d", got, want)
	}
}

func TestPatternError(t *testing.T) {
	g, _ := newGraph(t)
	set := rewrite.NewPatternSet().Add(brokenPattern{})
	_, err := rewrite.ApplyPatternsGreedily(g, set, discard)
	if !errors.Is(err, errBroken) {
		t.Fatalf("got error %v but want %v", err, errBroken)
	}
	if rewrite.IsNoMatch(err) {
		t.Errorf("error %v should not be a no-match", err)
	}
}

func TestInvalidOptions(t *testing.T) {
	g, _ := newGraph(t)
	set := rewrite.NewPatternSet()
	if _, err := rewrite.ApplyPatternsGreedily(g, set, rewrite.MaxIterations(0)); err == nil {
		t.Errorf("expected an error for a zero maximum number of iterations")
	}
}

func TestMatchFailure(t *testing.T) {
	g, _ := newGraph(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rw := rewrite.NewRewriter(g, logger)
	merged := g.DefiningOp(g.Outputs()[0])
	err := rw.Rewrite(removeIdentityCollapse{}, merged)
	if !rewrite.IsNoMatch(err) {
		t.Fatalf("got error %v but want a no-match", err)
	}
	var failure *rewrite.MatchFailure
	if !errors.As(err, &failure) {
		t.Fatalf("error %T is not a match failure", err)
	}
	if got, want := failure.Pattern, "RemoveIdentityCollapse"; got != want {
		t.Errorf("got pattern %q but want %q", got, want)
	}
	if !strings.Contains(failure.Reason, "merges axes") {
		t.Errorf("unexpected reason %q", failure.Reason)
	}
	if !strings.Contains(buf.String(), "match failure") {
		t.Errorf("match failure not logged:\n%s", buf.String())
	}
	if g.InsertionPoint() != nil {
		t.Errorf("insertion point not restored after rewrite")
	}
	x := g.Ops()[0]
	if err := rw.Rewrite(removeIdentityCollapse{}, x); !rewrite.IsNoMatch(err) {
		t.Errorf("pattern applied to an operation of the wrong kind: %v", err)
	}
}
