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
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cockroachdb/txn-limbo/internal/limbo/txn"
)

// WaitComplete implements spec §4.4's wait_complete protocol. It is
// called by the producer goroutine that submitted e's transaction and
// blocks until e reaches a terminal state, or until synchro_timeout
// elapses with e still the head of the queue and nothing else already
// driving a rollback cascade on its behalf.
//
// Unlike the source system's fiber-level cancellation gating, the
// context passed here is never consulted while waiting: a wait always
// runs to either a state change or a timeout, mirroring "cancellation
// disabled across the wait" from spec §5. ctx is only passed on to the
// ROLLBACK write issued by the timeout arm.
func (l *Limbo) WaitComplete(ctx context.Context, e *Entry) error {
	if outcome, done := l.terminalOutcome(e); done {
		return outcome
	}

	start := time.Now()
	for {
		timeout := l.Parameters().SynchroTimeout
		deadline := start.Add(timeout)

		gen, woken := l.cond.Get()
		_ = gen
		if outcome, done := l.terminalOutcome(e); done {
			return outcome
		}
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		timer := time.NewTimer(remaining)

		select {
		case <-woken:
			timer.Stop()
			if outcome, done := l.terminalOutcome(e); done {
				return outcome
			}
			// Spurious wakeup (e.g. some other entry committed); loop
			// and re-evaluate against the current clock.
			continue
		case <-timer.C:
		}

		if outcome, done := l.terminalOutcome(e); done {
			return outcome
		}

		// Timeout arm.
		isHead := l.isHead(e)
		if !isHead {
			// Another producer is already driving a rollback cascade
			// that will include this entry; yield until it lands.
			l.waitUntilTerminal(e)
			outcome, _ := l.terminalOutcome(e)
			return outcome
		}

		return l.initiateTimeoutRollback(ctx, e)
	}
}

// terminalOutcome reports whether e has left the pending state and,
// if so, the outcome WaitComplete/WaitConfirm should return.
func (l *Limbo) terminalOutcome(e *Entry) (error, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case e.isCommit:
		return nil, true
	case e.isRollback:
		return &RollbackError{}, true
	default:
		return nil, false
	}
}

// isHead reports whether e is currently the head of the queue.
func (l *Limbo) isHead(e *Entry) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head() == e
}

// waitUntilTerminal blocks, ignoring timeouts, until e leaves the
// pending state. It implements the "yield cooperatively until the
// entry becomes terminal" arm of spec §4.4.
func (l *Limbo) waitUntilTerminal(e *Entry) {
	for {
		_, woken := l.cond.Get()
		if _, done := l.terminalOutcome(e); done {
			return
		}
		<-woken
	}
}

// initiateTimeoutRollback is run by the producer holding the head
// entry once its wait has timed out. It writes a ROLLBACK record for
// e's LSN, then rolls back every entry in the queue from tail to
// head, marking each with txn.QuorumTimeout and completing it.
func (l *Limbo) initiateTimeoutRollback(ctx context.Context, e *Entry) error {
	n := e.LSN()
	if err := l.write(ctx, journalRollback, n); err != nil {
		return err
	}

	l.mu.Lock()
	for {
		tail := l.tail()
		if tail == nil {
			break
		}
		isTarget := tail == e

		l.abort(tail)
		t := tail.Txn()
		t.SetSignature(txn.QuorumTimeout)
		t.ClearFlags(txn.WaitSync | txn.WaitAck)
		t.Complete()

		log.WithFields(log.Fields{"lsn": tail.LSN()}).Info(
			"rolled back limbo entry after synchro_timeout")

		if isTarget {
			break
		}
	}
	l.wake()
	l.mu.Unlock()

	return &QuorumTimeoutError{}
}

// WaitConfirm implements spec §4.4's wait_confirm protocol: wait for
// whatever entry was the tail of the queue at call time to reach a
// terminal state, using one-shot triggers installed on its
// transaction rather than polling the entry directly.
func (l *Limbo) WaitConfirm(ctx context.Context) error {
	// The triggers are installed under l.mu so that the entry cannot
	// commit or roll back between being read as the tail and having
	// its triggers registered.
	l.mu.Lock()
	e := l.tail()
	if e == nil {
		l.mu.Unlock()
		return nil
	}

	result := make(chan error, 1)
	var fired bool
	var mu sync.Mutex
	once := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if fired {
			return
		}
		fired = true
		result <- err
	}
	e.Txn().OnCommit(func() { once(nil) })
	e.Txn().OnRollback(func() { once(&RollbackError{}) })
	l.mu.Unlock()

	start := time.Now()
	for {
		timeout := l.Parameters().SynchroTimeout
		remaining := time.Until(start.Add(timeout))
		if remaining < 0 {
			remaining = 0
		}
		timer := time.NewTimer(remaining)
		select {
		case err := <-result:
			timer.Stop()
			return err
		case <-timer.C:
			return &QuorumTimeoutError{}
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
