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
)

// ForceEmpty implements spec §4.5's force_empty operation: an operator
// escape hatch that commits every entry up to and including n
// regardless of whether quorum was actually reached, then drains
// whatever remains as rollbacks. It is meant for recovery scenarios
// where an operator has independently confirmed that n is durable on
// enough replicas, or has decided to give up on the rest of the
// queue entirely.
//
// A failure to write either record is returned to the caller
// unswallowed, unlike Ack: there is no future retry path for an
// operator-initiated drain.
func (l *Limbo) ForceEmpty(ctx context.Context, n lsn.LSN) error {
	l.mu.Lock()
	lastQuorum := lsn.Unassigned
	rollback := lsn.Unassigned
	l.forEach(func(e *Entry) bool {
		if !e.waitsAck() || !e.lsn.Valid() {
			// Not yet assigned a real position; it can be neither
			// last_quorum nor rollback until it is.
			return true
		}
		if e.lsn <= n {
			lastQuorum = e.lsn
			return true
		}
		if !rollback.Valid() {
			rollback = e.lsn
		}
		return true
	})
	l.mu.Unlock()

	// Order matters: confirm before rollback so that confirmations for
	// entries at or below n are not erased by the rollback walk.
	if lastQuorum.Valid() {
		if err := l.writeAndApply(ctx, journalConfirm, lastQuorum); err != nil {
			return err
		}
	}
	if rollback.Valid() {
		log.WithField("lsn", rollback).Warn(
			"force_empty rolling back the remainder of the queue")
		if err := l.writeAndApply(ctx, journalRollback, rollback); err != nil {
			return err
		}
	}
	return nil
}

// OnParametersChange implements spec §4.5's on_parameters_change
// operation: install new live tunables and re-evaluate every pending
// entry's acknowledgement count against the new quorum, since raising
// or lowering synchro_quorum can immediately satisfy (or leave
// unsatisfied) entries that were already waiting.
//
// A CONFIRM write failure here has no caller to report back to (the
// change came from a config reload, not a request in flight), so per
// the Design Notes it is treated as fatal: the process can't
// distinguish "the new quorum can't be met" from "the WAL is broken"
// and must not silently wedge the queue.
func (l *Limbo) OnParametersChange(ctx context.Context, params Parameters) {
	l.params.Set(params)

	l.mu.Lock()
	quorum := params.SynchroQuorum
	confirmLSN := lsn.Unassigned
	l.forEach(func(e *Entry) bool {
		if !e.waitsAck() {
			return true
		}
		if !e.lsn.Valid() {
			return false
		}
		if e.ackCount >= quorum {
			confirmLSN = e.lsn
		}
		return true
	})
	l.mu.Unlock()

	if confirmLSN == lsn.Unassigned {
		l.wake()
		return
	}

	if err := l.writeAndApply(ctx, journalConfirm, confirmLSN); err != nil {
		log.WithError(err).WithField("lsn", confirmLSN).Panic(
			"could not write CONFIRM after synchro_quorum changed")
	}
}
