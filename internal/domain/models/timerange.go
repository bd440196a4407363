// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// Overlaps reports whether the half-open intervals [startA, endA) and
// [startB, endB) intersect. Intervals that only touch at an endpoint do not
// overlap: a meeting ending at 11:00 does not conflict with one starting at
// 11:00. The predicate computes the formula literally and makes no
// assumption that start precedes end for either input.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && endA.After(startB)
}
