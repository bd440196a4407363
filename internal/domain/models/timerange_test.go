// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	at := func(minutes int) time.Time {
		return base.Add(time.Duration(minutes) * time.Minute)
	}

	tests := []struct {
		name     string
		startA   time.Time
		endA     time.Time
		startB   time.Time
		endB     time.Time
		expected bool
	}{
		{
			name:   "identical ranges overlap",
			startA: at(0), endA: at(60),
			startB: at(0), endB: at(60),
			expected: true,
		},
		{
			name:   "partial overlap at the end",
			startA: at(0), endA: at(60),
			startB: at(30), endB: at(90),
			expected: true,
		},
		{
			name:   "partial overlap at the start",
			startA: at(30), endA: at(90),
			startB: at(0), endB: at(60),
			expected: true,
		},
		{
			name:   "one range fully contains the other",
			startA: at(0), endA: at(120),
			startB: at(30), endB: at(60),
			expected: true,
		},
		{
			name:   "contained range seen from the inside",
			startA: at(30), endA: at(60),
			startB: at(0), endB: at(120),
			expected: true,
		},
		{
			name:   "back-to-back ranges do not overlap",
			startA: at(0), endA: at(60),
			startB: at(60), endB: at(120),
			expected: false,
		},
		{
			name:   "back-to-back ranges in the other order do not overlap",
			startA: at(60), endA: at(120),
			startB: at(0), endB: at(60),
			expected: false,
		},
		{
			name:   "disjoint ranges do not overlap",
			startA: at(0), endA: at(30),
			startB: at(90), endB: at(120),
			expected: false,
		},
		{
			name:   "one minute of shared time overlaps",
			startA: at(0), endA: at(61),
			startB: at(60), endB: at(120),
			expected: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(tc.startA, tc.endA, tc.startB, tc.endB)
			assert.Equal(t, tc.expected, got)

			// The predicate is symmetric in its two ranges.
			assert.Equal(t, tc.expected, Overlaps(tc.startB, tc.endB, tc.startA, tc.endA))
		})
	}
}

func TestOverlapsAcrossTimeZones(t *testing.T) {
	utc := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*60*60))

	// The same instant expressed in different zones is still the same
	// instant for overlap purposes.
	assert.True(t, Overlaps(utc, utc.Add(time.Hour), est.Add(30*time.Minute), est.Add(90*time.Minute)))
	assert.False(t, Overlaps(utc, utc.Add(time.Hour), est.Add(time.Hour), est.Add(2*time.Hour)))
}
