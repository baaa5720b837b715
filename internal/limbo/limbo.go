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
	"sync"
	"time"

	"github.com/cockroachdb/txn-limbo/internal/limbo/journal"
	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
	"github.com/cockroachdb/txn-limbo/internal/util/notify"
)

// Limbo is the process-wide coordinator described by spec §3. Use New
// to construct one; the zero value is not usable.
type Limbo struct {
	selfID  replica.ID
	journal journal.Journal
	replicas *replica.Set

	params notify.Var[Parameters]
	cond   notify.Var[uint64] // wait_cond: bumped on every state change a waiter might care about.

	metrics *metricsSet

	// allocEntry constructs a fresh *Entry. It is a hook, rather than a
	// bare literal, solely so that chaos.go can inject
	// OutOfMemoryError in tests; see SPEC_FULL.md's Open Questions.
	allocEntry func() (*Entry, error)

	mu struct {
		sync.Mutex
		queue         *list.List // of *Entry, tail = most recently appended.
		instanceID    replica.ID // "" means NIL: no queue owner yet.
		vclock        map[replica.ID]lsn.LSN
		rollbackCount uint64
	}
}

// Parameters are the two live-reloadable tunables of spec §6.
type Parameters struct {
	// SynchroQuorum is the minimum ack count required to CONFIRM.
	SynchroQuorum int
	// SynchroTimeout is the wait budget before a head entry initiates
	// a rollback cascade.
	SynchroTimeout time.Duration
}

// New constructs a Limbo for the given local replica identity,
// journal, and tracked replica set. The journal and replicas are the
// collaborators described in spec §6; the limbo does not take
// ownership of their lifecycle.
func New(selfID replica.ID, j journal.Journal, replicas *replica.Set, params Parameters) *Limbo {
	l := &Limbo{
		selfID:   selfID,
		journal:  j,
		replicas: replicas,
		metrics:  newMetricsSet(string(selfID)),
	}
	l.params.Set(params)
	l.allocEntry = func() (*Entry, error) { return &Entry{}, nil }
	l.mu.queue = list.New()
	l.mu.vclock = make(map[replica.ID]lsn.LSN)
	return l
}

// Reset clears all queue and vector-clock state, as though the
// process had just started. It is intended for use around a
// leadership handoff, per the Design Notes' guidance to expose an
// explicit reset_for_new_owner entry point rather than relying on
// implicit static initialization order.
func (l *Limbo) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mu.queue = list.New()
	l.mu.instanceID = ""
	l.mu.vclock = make(map[replica.ID]lsn.LSN)
	l.mu.rollbackCount = 0
	l.metrics.queueDepth.Set(0)
}

// Len returns the number of pending entries.
func (l *Limbo) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mu.queue.Len()
}

// InstanceID returns the current synchronous-write owner, or "" if
// there has never been one or the queue is currently empty.
func (l *Limbo) InstanceID() replica.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mu.queue.Len() == 0 {
		return ""
	}
	return l.mu.instanceID
}

// RollbackCount returns the diagnostic counter incremented whenever an
// entry is popped due to rollback.
func (l *Limbo) RollbackCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mu.rollbackCount
}

// Parameters returns the live tunables currently in effect.
func (l *Limbo) Parameters() Parameters {
	p, _ := l.params.Get()
	return p
}

// wake bumps the wait_cond generation, broadcasting to every blocked
// WaitComplete/WaitConfirm caller that they should re-check their
// entry's state.
func (l *Limbo) wake() {
	l.cond.Update(func(gen uint64) uint64 { return gen + 1 })
}
