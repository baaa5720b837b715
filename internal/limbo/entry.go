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
	"container/list"
	"time"

	"github.com/pkg/errors"

	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
	"github.com/cockroachdb/txn-limbo/internal/limbo/txn"
)

// Entry is one pending synchronous transaction's slot in the queue
// (spec §3, "Limbo entry"). Entries are owned exclusively by the
// queue they live in; callers that hold a reference to one returned by
// Append must treat it as read-only until it leaves terminal state.
type Entry struct {
	txn        txn.Txn
	lsn        lsn.LSN
	ackCount   int
	isCommit   bool
	isRollback bool
	enqueuedAt time.Time

	elem *list.Element // this entry's position in Limbo.queue, nil once removed.
}

// Txn returns the owning transaction handle.
func (e *Entry) Txn() txn.Txn { return e.txn }

// LSN returns the entry's assigned log sequence number, or
// lsn.Unassigned if AssignLSN has not yet been called.
func (e *Entry) LSN() lsn.LSN { return e.lsn }

// AckCount returns the number of distinct replicas known to have
// acknowledged at least this entry's LSN.
func (e *Entry) AckCount() int { return e.ackCount }

// IsCommit reports whether the entry has committed.
func (e *Entry) IsCommit() bool { return e.isCommit }

// IsRollback reports whether the entry has rolled back.
func (e *Entry) IsRollback() bool { return e.isRollback }

// IsTerminal reports whether the entry has left its pending state.
func (e *Entry) IsTerminal() bool { return e.isCommit || e.isRollback }

// waitsAck reports whether this entry requires acknowledgement (as
// opposed to an async entry riding along with a later sync commit).
func (e *Entry) waitsAck() bool { return e.txn.Flags()&txn.WaitAck != 0 }

// append implements spec §4.1's append operation. Preconditions: the
// caller holds l.mu and t is already flagged txn.WaitSync.
func (l *Limbo) append(owner replica.ID, t txn.Txn) (*Entry, error) {
	if t.Flags()&txn.WaitSync == 0 {
		return nil, errors.New("append: transaction is not flagged WAIT_SYNC")
	}

	if l.mu.instanceID != "" && l.mu.queue.Len() > 0 && l.mu.instanceID != owner {
		return nil, &ForeignSyncError{Owner: l.mu.instanceID}
	}

	e, err := l.allocEntry()
	if err != nil {
		return nil, err
	}
	e.txn = t
	e.lsn = lsn.Unassigned
	e.ackCount = 0
	e.isCommit = false
	e.isRollback = false
	e.enqueuedAt = time.Now()

	l.mu.instanceID = owner
	e.elem = l.mu.queue.PushBack(e)
	l.metrics.queueDepth.Set(float64(l.mu.queue.Len()))
	return e, nil
}

// assignLSN implements spec §4.1's assign_lsn operation. Preconditions:
// the caller holds l.mu, e.lsn == lsn.Unassigned, n is positive, and the
// entry's transaction is flagged WAIT_ACK.
func (l *Limbo) assignLSN(e *Entry, n lsn.LSN) error {
	if l.mu.instanceID == "" {
		return errors.New("assign_lsn: no queue owner")
	}
	if e.lsn.Valid() {
		return errors.New("assign_lsn: entry already has an LSN")
	}
	if n <= 0 {
		return errors.New("assign_lsn: lsn must be positive")
	}
	if e.txn.Flags()&txn.WaitAck == 0 {
		return errors.New("assign_lsn: transaction is not flagged WAIT_ACK")
	}

	e.lsn = n

	if l.mu.instanceID == l.selfID {
		old := e.ackCount
		count := 0
		for replicaID, pos := range l.mu.vclock {
			if l.replicas != nil && !l.replicas.Has(replicaID) {
				continue
			}
			if pos >= n {
				count++
			}
		}
		if count < old {
			count = old
		}
		e.ackCount = count
	}
	return nil
}

// abort implements spec §4.1's abort operation: mark the entry rolled
// back and remove it from the tail. Preconditions: the caller holds
// l.mu and e is currently the tail of the queue.
func (l *Limbo) abort(e *Entry) {
	e.isRollback = true
	if e.elem != nil {
		l.mu.queue.Remove(e.elem)
		e.elem = nil
	}
	l.mu.rollbackCount++
	l.metrics.rollbackCount.Inc()
	l.metrics.queueDepth.Set(float64(l.mu.queue.Len()))
}

// commitHead removes the current head of the queue after marking it
// committed. Preconditions: the caller holds l.mu and e is the head.
func (l *Limbo) commitHead(e *Entry) {
	e.isCommit = true
	if e.elem != nil {
		l.mu.queue.Remove(e.elem)
		e.elem = nil
	}
	l.metrics.queueDepth.Set(float64(l.mu.queue.Len()))
}

// head returns the current head entry, or nil if the queue is empty.
func (l *Limbo) head() *Entry {
	if front := l.mu.queue.Front(); front != nil {
		return front.Value.(*Entry)
	}
	return nil
}

// tail returns the current tail entry, or nil if the queue is empty.
func (l *Limbo) tail() *Entry {
	if back := l.mu.queue.Back(); back != nil {
		return back.Value.(*Entry)
	}
	return nil
}

// forEach walks every entry in the queue, head to tail, invoking fn
// until it returns false or the queue is exhausted.
func (l *Limbo) forEach(fn func(*Entry) bool) {
	for el := l.mu.queue.Front(); el != nil; el = el.Next() {
		if !fn(el.Value.(*Entry)) {
			return
		}
	}
}

// forEachReverse walks every entry tail to head.
func (l *Limbo) forEachReverse(fn func(*Entry) bool) {
	for el := l.mu.queue.Back(); el != nil; el = el.Prev() {
		if !fn(el.Value.(*Entry)) {
			return
		}
	}
}
