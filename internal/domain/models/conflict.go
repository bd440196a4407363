// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

// Conflict describes one existing meeting that overlaps a requested time
// range, together with the specific users whose attendance causes the
// overlap. UserUIDs is always a subset of the conflicting meeting's roster
// and of the query's user set.
type Conflict struct {
	Meeting  *Meeting `json:"meeting"`
	UserUIDs []string `json:"user_uids"`
}

// ConflictsForUser filters a conflict list down to the conflicts involving
// the given user, dropping any conflict the user is not part of.
func ConflictsForUser(conflicts []Conflict, userUID string) []Conflict {
	var filtered []Conflict
	for _, conflict := range conflicts {
		for _, uid := range conflict.UserUIDs {
			if uid == userUID {
				filtered = append(filtered, conflict)
				break
			}
		}
	}
	return filtered
}
