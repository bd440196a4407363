// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"testing"
	"time"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name     string
		values   []string
		expected string
	}{
		{"first non-empty wins", []string{"a", "b"}, "a"},
		{"skips empty strings", []string{"", "", "c"}, "c"},
		{"all empty", []string{"", ""}, ""},
		{"no arguments", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CoalesceString(tt.values...); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCoalesceTime(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	if got := CoalesceTime(time.Time{}, t1, t2); !got.Equal(t1) {
		t.Errorf("expected %v, got %v", t1, got)
	}
	if got := CoalesceTime(); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
