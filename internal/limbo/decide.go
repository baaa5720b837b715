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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cockroachdb/txn-limbo/internal/limbo/journal"
	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/txn"
)

const (
	journalConfirm  = journal.Confirm
	journalRollback = journal.Rollback
)

// write implements spec §4.3's write operation: construct a
// single-row decision record and block the calling goroutine until
// the journal resolves it. This is the package's suspension point #1
// (spec §5): the caller parks here exactly as a cooperative task would
// park on the WAL callback.
func (l *Limbo) write(ctx context.Context, kind journal.Kind, n lsn.LSN) error {
	start := time.Now()
	rec := journal.Record{Kind: kind, Replica: l.selfID, LSN: n}
	select {
	case err := <-l.journal.Submit(ctx, rec):
		if err != nil {
			return &WALIOError{cause: err}
		}
		l.observeDecision(kind, time.Since(start))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// observeDecision records the counters and latency histogram for a
// successfully submitted decision record of the given kind.
func (l *Limbo) observeDecision(kind journal.Kind, elapsed time.Duration) {
	switch kind {
	case journalConfirm:
		l.metrics.confirmCount.Inc()
		l.metrics.confirmTime.Observe(elapsed.Seconds())
	case journalRollback:
		l.metrics.rollbackWrite.Inc()
		l.metrics.rollbackTime.Observe(elapsed.Seconds())
	}
}

// writeAndApply writes a decision record and, if the write succeeds,
// applies it locally via readConfirm/readRollback. It is the common
// path shared by Ack, ForceEmpty, and OnParametersChange.
func (l *Limbo) writeAndApply(ctx context.Context, kind journal.Kind, n lsn.LSN) error {
	if err := l.write(ctx, kind, n); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	switch kind {
	case journalConfirm:
		l.readConfirmLocked(n)
	case journalRollback:
		l.readRollbackLocked(n)
	}
	l.wake()
	return nil
}

// ReadConfirm implements spec §4.3's read_confirm operation: walk the
// queue head to tail, committing every entry up to and including the
// one at LSN n, stopping at the first WAIT_ACK entry that is beyond n
// or whose own LSN is not yet assigned.
func (l *Limbo) ReadConfirm(n lsn.LSN) {
	l.mu.Lock()
	l.readConfirmLocked(n)
	l.wake()
	l.mu.Unlock()
}

func (l *Limbo) readConfirmLocked(n lsn.LSN) {
	for {
		e := l.head()
		if e == nil {
			return
		}
		if e.waitsAck() {
			if e.lsn == lsn.Unassigned {
				return
			}
			if e.lsn > n {
				return
			}
		}

		if e.waitsAck() {
			l.metrics.ackLatency.Observe(time.Since(e.enqueuedAt).Seconds())
		}
		l.commitHead(e)
		t := e.txn
		t.ClearFlags(txn.WaitSync | txn.WaitAck)

		if t.Signature().Resolved() {
			t.Complete()
		}
		// Otherwise completion is deferred to the eventual async WAL
		// callback, which will observe the cleared flags and finish.

		log.WithFields(log.Fields{
			"lsn": e.lsn,
		}).Debug("committed limbo entry")
	}
}

// ReadRollback implements spec §4.3's read_rollback operation: locate
// the lowest-LSN WAIT_ACK entry with lsn >= n, then roll back
// everything from the tail through that entry, inclusive.
func (l *Limbo) ReadRollback(n lsn.LSN) {
	l.mu.Lock()
	l.readRollbackLocked(n)
	l.wake()
	l.mu.Unlock()
}

func (l *Limbo) readRollbackLocked(n lsn.LSN) {
	var lastRollback *Entry
	l.forEachReverse(func(e *Entry) bool {
		if e.waitsAck() && e.lsn.Valid() && e.lsn >= n {
			lastRollback = e
		}
		return true
	})
	if lastRollback == nil {
		return
	}

	for {
		e := l.tail()
		if e == nil {
			return
		}
		target := e == lastRollback

		l.abort(e)
		t := e.txn
		origSig := t.Signature()
		t.ClearFlags(txn.WaitSync | txn.WaitAck)
		t.SetSignature(txn.SyncRollback)

		if origSig == txn.Pending {
			// The WAL write has not yet resolved. Reparent the
			// transaction to the caller around Complete so that the
			// eventual async WAL callback still finds its original
			// owner once this rollback returns, per the Design Notes'
			// reparent-then-restore scoped swap.
			prevOwner := t.SetOwner(currentCallerHandle)
			t.Complete()
			t.SetOwner(prevOwner)
		} else {
			t.Complete()
		}

		log.WithFields(log.Fields{
			"lsn": e.lsn,
		}).Info("rolled back limbo entry")

		if target {
			return
		}
	}
}

// currentCallerHandle is a sentinel owner handle representing "the
// goroutine currently executing ReadRollback". The transaction engine
// collaborator only ever inspects the previous owner to free it once
// its own async callback fires, so the exact identity carried here is
// unimportant so long as it is restored before returning, matching the
// Design Notes' reparent-then-restore scoped swap.
var currentCallerHandle txn.Handle = "read-rollback"
