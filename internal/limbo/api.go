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
	log "github.com/sirupsen/logrus"

	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
	"github.com/cockroachdb/txn-limbo/internal/limbo/txn"
)

// Append implements spec §4.1's append operation: add t, owned by
// owner, to the tail of the queue. t must already be flagged
// txn.WaitSync by the caller before this is invoked. Returns
// ForeignSyncError if another instance already owns a non-empty
// queue.
func (l *Limbo) Append(owner replica.ID, t txn.Txn) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, err := l.append(owner, t)
	if err != nil {
		log.WithError(err).WithField("owner", owner).Debug("append rejected")
		return nil, err
	}
	return e, nil
}

// AssignLSN implements spec §4.1's assign_lsn operation: bind e to the
// write-ahead-log position n, recomputing its acknowledgement count
// from the currently tracked replica positions when this process is
// the queue's owner.
func (l *Limbo) AssignLSN(e *Entry, n lsn.LSN) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.assignLSN(e, n)
}

// Abort rolls back a single entry that has not yet been assigned an
// LSN, e.g. because the producer's own pre-write validation failed
// before the transaction entered the synchronous pipeline. Unlike
// ReadRollback, this never cascades to other entries: it is only
// valid to call on the current tail, and only before AssignLSN.
func (l *Limbo) Abort(e *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tail() != e {
		return &RollbackError{}
	}
	if e.lsn.Valid() {
		return &RollbackError{}
	}

	l.abort(e)
	t := e.txn
	t.ClearFlags(txn.WaitSync | txn.WaitAck)
	t.SetSignature(txn.SyncRollback)
	t.Complete()
	l.wake()
	return nil
}
