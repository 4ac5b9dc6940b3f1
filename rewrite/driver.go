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

package rewrite

import (
	"log/slog"
	"os"

	"github.com/gx-org/tensorfold/internal/envconfig"
	"github.com/gx-org/tensorfold/ir"
	"github.com/pkg/errors"
)

// ErrNotConverged is returned when patterns still apply after the maximum number of iterations.
var ErrNotConverged = errors.New("rewrite did not converge")

type (
	// Option configures the greedy driver.
	Option interface {
		driverOption()
	}

	// MaxIterations sets the maximum number of passes over the graph.
	MaxIterations int

	// WithLogger sets the logger tracing the rewrites.
	WithLogger struct {
		Logger *slog.Logger
	}

	// KeepDeadOps disables the removal of operations without uses.
	KeepDeadOps bool
)

func (MaxIterations) driverOption() {}
func (WithLogger) driverOption()    {}
func (KeepDeadOps) driverOption()   {}

// Stats reports what the driver did.
type Stats struct {
	// Iterations is the number of passes over the graph.
	Iterations int
	// Rewrites counts the number of successful rewrites per pattern.
	Rewrites map[string]int
	// Erased is the number of dead operations removed.
	Erased int
}

// NumRewrites returns the total number of successful rewrites.
func (s *Stats) NumRewrites() int {
	n := 0
	for _, c := range s.Rewrites {
		n += c
	}
	return n
}

type driver struct {
	g           *ir.Graph
	set         *PatternSet
	maxIter     int
	keepDeadOps bool
	logger      *slog.Logger
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: envconfig.LogLevel()}))
}

func (d *driver) processOptions(opts []Option) error {
	for _, opt := range opts {
		switch optT := opt.(type) {
		case MaxIterations:
			if optT <= 0 {
				return errors.Errorf("maximum number of iterations must be positive: got %d", optT)
			}
			d.maxIter = int(optT)
		case WithLogger:
			if optT.Logger != nil {
				d.logger = optT.Logger
			}
		case KeepDeadOps:
			d.keepDeadOps = bool(optT)
		default:
			return errors.Errorf("option of type %T not supported", optT)
		}
	}
	return nil
}

// ApplyPatternsGreedily applies the patterns of a set to the operations of a graph
// until no pattern applies. Each pass visits the operations in order and applies
// the first matching pattern to each operation. Dead operations are removed after
// each pass.
func ApplyPatternsGreedily(g *ir.Graph, set *PatternSet, opts ...Option) (*Stats, error) {
	d := &driver{
		g:       g,
		set:     set,
		maxIter: int(envconfig.MaxIterations()),
	}
	if err := d.processOptions(opts); err != nil {
		return nil, err
	}
	if d.logger == nil {
		d.logger = defaultLogger()
	}
	return d.run()
}

func (d *driver) run() (*Stats, error) {
	stats := &Stats{Rewrites: make(map[string]int)}
	rw := NewRewriter(d.g, d.logger)
	for stats.Iterations < d.maxIter {
		stats.Iterations++
		changed, err := d.pass(rw, stats)
		if err != nil {
			return stats, err
		}
		if !d.keepDeadOps {
			n, err := d.g.EraseDeadOps()
			stats.Erased += n
			if err != nil {
				return stats, err
			}
		}
		if !changed {
			return stats, nil
		}
	}
	return stats, errors.Wrapf(ErrNotConverged, "patterns still apply after %d iterations", d.maxIter)
}

func (d *driver) pass(rw *Rewriter, stats *Stats) (bool, error) {
	changed := false
	for _, op := range d.g.Ops() {
		for _, p := range d.set.forKind(op.Kind()) {
			if d.g.DefiningOp(op.Result()) != op {
				// Erased by a previous rewrite.
				break
			}
			err := rw.Rewrite(p, op)
			if err == nil {
				d.logger.Debug("rewrite", "pattern", p.Name(), "op", op.Kind().String())
				stats.Rewrites[p.Name()]++
				changed = true
				break
			}
			if IsNoMatch(err) {
				continue
			}
			return changed, errors.Wrapf(err, "pattern %s failed", p.Name())
		}
	}
	return changed, nil
}
