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

// Package rewrite applies local rewrite patterns to a graph until a fixed point is reached.
package rewrite

import (
	"fmt"

	"github.com/gx-org/tensorfold/ir"
	"github.com/pkg/errors"
)

// ErrNoMatch is returned by a pattern when it does not apply to an operation.
var ErrNoMatch = errors.New("pattern does not match")

type (
	// Pattern matches an operation and its producers and rewrites them.
	Pattern interface {
		// Name of the pattern, used for tracing.
		Name() string

		// Root returns the kind of operations the pattern matches.
		Root() ir.Kind

		// MatchAndRewrite rewrites an operation of the root kind.
		// It returns nil if the graph has been rewritten or an error wrapping
		// ErrNoMatch if the pattern does not apply, in which case the graph
		// is left unmodified.
		MatchAndRewrite(op ir.Op, rw *Rewriter) error
	}

	// MatchFailure gives the reason why a pattern did not apply.
	MatchFailure struct {
		Pattern string
		Op      string
		Reason  string
	}
)

// Error returns the reason of the failure.
func (f *MatchFailure) Error() string {
	return fmt.Sprintf("%s does not match %s: %s", f.Pattern, f.Op, f.Reason)
}

// Unwrap returns ErrNoMatch.
func (f *MatchFailure) Unwrap() error {
	return ErrNoMatch
}

// IsNoMatch returns true if an error reports that a pattern did not apply.
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNoMatch)
}

// PatternSet is an ordered set of patterns.
// Patterns are tried in the order in which they have been added.
type PatternSet struct {
	names    map[string]bool
	patterns []Pattern
}

// NewPatternSet returns an empty set of patterns.
func NewPatternSet() *PatternSet {
	return &PatternSet{names: make(map[string]bool)}
}

// Add patterns to the set. A pattern with the same name as a pattern already
// in the set is ignored.
func (s *PatternSet) Add(patterns ...Pattern) *PatternSet {
	for _, p := range patterns {
		if s.names[p.Name()] {
			continue
		}
		s.names[p.Name()] = true
		s.patterns = append(s.patterns, p)
	}
	return s
}

// Patterns returns all the patterns of the set.
func (s *PatternSet) Patterns() []Pattern {
	return append([]Pattern{}, s.patterns...)
}

// Len returns the number of patterns in the set.
func (s *PatternSet) Len() int {
	return len(s.patterns)
}

// Names returns the names of the patterns in the set.
func (s *PatternSet) Names() []string {
	names := make([]string, len(s.patterns))
	for i, p := range s.patterns {
		names[i] = p.Name()
	}
	return names
}

func (s *PatternSet) forKind(kind ir.Kind) []Pattern {
	var ps []Pattern
	for _, p := range s.patterns {
		if p.Root() == kind {
			ps = append(ps, p)
		}
	}
	return ps
}
