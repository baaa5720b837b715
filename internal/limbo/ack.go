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

package limbo

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
	"github.com/cockroachdb/txn-limbo/internal/util/msort"
)

// Ack implements spec §4.2: advance the tracked position for replicaID
// to n and walk the queue looking for entries that have now reached
// quorum. If any have, the highest such LSN is submitted to the
// journal as a CONFIRM and, if that write succeeds, applied locally.
//
// A CONFIRM write failure here is swallowed (logged, not returned):
// per spec §7 and §9, a future Ack or OnParametersChange call will
// retry.
func (l *Limbo) Ack(ctx context.Context, replicaID replica.ID, n lsn.LSN) {
	l.mu.Lock()

	prev := l.mu.vclock[replicaID]
	if n <= prev {
		l.mu.Unlock()
		return
	}
	l.mu.vclock[replicaID] = n

	if l.replicas != nil && !l.replicas.Has(replicaID) {
		// Only tracked replicas count toward ack_count (see replica.Set).
		l.mu.Unlock()
		return
	}

	quorum := l.Parameters().SynchroQuorum

	confirmLSN := lsn.Unassigned
	seenQuorum := false
	l.forEach(func(e *Entry) bool {
		if e.lsn.Valid() && e.lsn > n {
			return false
		}
		if !e.waitsAck() {
			// Async tail: only committable once a prior entry in this
			// pass has already crossed quorum.
			return true
		}
		if !e.lsn.Valid() {
			// Unassigned entries never advance ack_count (spec §8); an
			// ack can only be attributed to an entry once it has a real
			// position in the log.
			return true
		}
		if e.lsn <= prev {
			// Already counted for this entry on a prior ack from this
			// replica.
			return true
		}
		e.ackCount++
		if e.ackCount >= quorum {
			confirmLSN = e.lsn
			seenQuorum = true
		}
		return true
	})
	_ = seenQuorum
	l.mu.Unlock()

	if confirmLSN == lsn.Unassigned {
		return
	}

	if err := l.writeAndApply(ctx, journalConfirm, confirmLSN); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"replica": replicaID,
			"lsn":     confirmLSN,
		}).Warn("could not write CONFIRM after reaching quorum; will retry on next ack")
	}
}

// AckBatch accepts several replica positions at once, e.g. from a
// replay of several acknowledgements that arrived while this process
// was catching up. It first collapses the batch to the highest LSN
// per replica (see internal/util/msort), then applies each surviving
// entry through Ack, so every replica is acked at most once. The
// surviving entries are applied in the order LatestByReplica leaves
// them; they are not sorted by LSN.
func (l *Limbo) AckBatch(ctx context.Context, updates []replica.Ack) {
	for _, u := range msort.LatestByReplica(updates) {
		l.Ack(ctx, u.Replica, u.LSN)
	}
}
