// Copyright 2023 The Cockroach Authors
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
//
// SPDX-License-Identifier: Apache-2.0

// Package msort contains utility functions for de-duplicating batches
// of replica acknowledgements before they are applied one at a time.
package msort

import "github.com/cockroachdb/txn-limbo/internal/limbo/replica"

// LatestByReplica implements a "last one wins" approach to collapsing
// a batch of acknowledgements down to the highest LSN reported per
// replica. If two acks share the same Replica, the one with the
// greater LSN is kept. If two acks have identical Replica and LSN,
// exactly one of the values will be chosen arbitrarily.
//
// The modified slice is returned.
func LatestByReplica(x []replica.Ack) []replica.Ack {
	// For any given replica, we're going to track the index in the
	// slice that holds the surviving ack for that replica.
	seenIdx := make(map[replica.ID]int, len(x))

	// We want to iterate backwards over the input slice, moving
	// elements to the rear when their LSN is greater than the value
	// currently tracked for that replica.
	dest := len(x)
	for src := len(x) - 1; src >= 0; src-- {
		id := x[src].Replica

		// Is there already an index in the slice for that replica?
		if curIdx, found := seenIdx[id]; found {
			// If so, replace the value if the LSN is greater.
			if x[src].LSN > x[curIdx].LSN {
				x[curIdx] = x[src]
			}
		} else {
			// Otherwise, allocate a new index for that replica, and
			// copy the value out.
			dest--
			seenIdx[id] = dest
			x[dest] = x[src]
		}
	}

	// Return the compacted view of the slice.
	return x[dest:]
}
