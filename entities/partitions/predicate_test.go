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

package partitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	type test struct {
		name        string
		in          string
		expectTerms []Term
		expectErr   string
	}

	tests := []test{
		{
			name: "empty input matches all",
			in:   "",
		},
		{
			name: "whitespace only matches all",
			in:   "   ",
		},
		{
			name:        "single term",
			in:          "date=2026-08-01",
			expectTerms: []Term{{Column: "date", Value: "2026-08-01"}},
		},
		{
			name: "multiple terms",
			in:   "date=2026-08-01,region=eu",
			expectTerms: []Term{
				{Column: "date", Value: "2026-08-01"},
				{Column: "region", Value: "eu"},
			},
		},
		{
			name: "whitespace around terms",
			in:   " date = 2026-08-01 , region = eu ",
			expectTerms: []Term{
				{Column: "date", Value: "2026-08-01"},
				{Column: "region", Value: "eu"},
			},
		},
		{
			name:        "empty value allowed",
			in:          "region=",
			expectTerms: []Term{{Column: "region", Value: ""}},
		},
		{
			name:      "missing equals",
			in:        "date",
			expectErr: "not of the form column=value",
		},
		{
			name:      "empty column",
			in:        "=eu",
			expectErr: "empty column name",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Parse(tc.in)
			if tc.expectErr != "" {
				require.NotNil(t, err)
				assert.Contains(t, err.Error(), tc.expectErr)
				return
			}

			require.Nil(t, err)
			assert.Equal(t, tc.expectTerms, p.Terms())
			assert.Equal(t, len(tc.expectTerms) == 0, p.Empty())
		})
	}
}

func TestMatch(t *testing.T) {
	pred, err := Parse("date=2026-08-01,region=eu")
	require.Nil(t, err)

	type test struct {
		name   string
		values map[string]string
		expect bool
	}

	tests := []test{
		{
			name:   "all terms satisfied",
			values: map[string]string{"date": "2026-08-01", "region": "eu", "extra": "x"},
			expect: true,
		},
		{
			name:   "one term differs",
			values: map[string]string{"date": "2026-08-01", "region": "us"},
			expect: false,
		},
		{
			name:   "constrained column absent",
			values: map[string]string{"date": "2026-08-01"},
			expect: false,
		},
		{
			name:   "nil values",
			values: nil,
			expect: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, pred.Match(tc.values))
		})
	}
}

func TestMatchEmptyPredicate(t *testing.T) {
	var p Predicate
	assert.True(t, p.Match(nil))
	assert.True(t, p.Match(map[string]string{"anything": "goes"}))
}

func TestString(t *testing.T) {
	p, err := Parse(" date = 2026-08-01 , region = eu ")
	require.Nil(t, err)
	assert.Equal(t, "date=2026-08-01,region=eu", p.String())

	roundTripped, err := Parse(p.String())
	require.Nil(t, err)
	assert.Equal(t, p.Terms(), roundTripped.Terms())
}

func TestColumns(t *testing.T) {
	p, err := Parse("date=2026-08-01,region=eu,date=2026-08-02")
	require.Nil(t, err)
	assert.Equal(t, []string{"date", "region"}, p.Columns())
}
