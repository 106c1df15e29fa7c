//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package partitions implements the minimal predicate language accepted on
// partition columns: a conjunction of column=value equality terms. Anything
// richer belongs to an external query engine.
package partitions

import (
	"strings"

	"github.com/pkg/errors"
)

// Term is a single column=value equality condition.
type Term struct {
	Column string
	Value  string
}

// Predicate is a conjunction of equality terms over partition columns. The
// zero value matches everything.
type Predicate struct {
	terms []Term
}

// Parse reads a predicate of the form "col=value,col2=value2". Whitespace
// around terms is ignored, an empty input yields the match-all predicate.
func Parse(in string) (Predicate, error) {
	var p Predicate

	in = strings.TrimSpace(in)
	if in == "" {
		return p, nil
	}

	for _, part := range strings.Split(in, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		col, val, found := strings.Cut(part, "=")
		if !found {
			return Predicate{}, errors.Errorf(
				"partition predicate term %q is not of the form column=value", part)
		}

		col = strings.TrimSpace(col)
		val = strings.TrimSpace(val)
		if col == "" {
			return Predicate{}, errors.Errorf(
				"partition predicate term %q has an empty column name", part)
		}

		p.terms = append(p.terms, Term{Column: col, Value: val})
	}

	return p, nil
}

// Empty reports whether the predicate matches everything.
func (p Predicate) Empty() bool {
	return len(p.terms) == 0
}

// Terms returns the predicate's terms in parse order.
func (p Predicate) Terms() []Term {
	return p.terms
}

// Columns lists the distinct columns the predicate constrains.
func (p Predicate) Columns() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range p.terms {
		if _, ok := seen[t.Column]; ok {
			continue
		}
		seen[t.Column] = struct{}{}
		out = append(out, t.Column)
	}
	return out
}

// Match evaluates the predicate against a file's partition values. A file
// lacking a constrained column does not match.
func (p Predicate) Match(partitionValues map[string]string) bool {
	for _, t := range p.terms {
		val, ok := partitionValues[t.Column]
		if !ok || val != t.Value {
			return false
		}
	}
	return true
}

func (p Predicate) String() string {
	if p.Empty() {
		return ""
	}

	parts := make([]string, len(p.terms))
	for i, t := range p.terms {
		parts[i] = t.Column + "=" + t.Value
	}
	return strings.Join(parts, ",")
}
