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

package limbo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/txn-limbo/internal/limbo"
	"github.com/cockroachdb/txn-limbo/internal/limbo/journal"
	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
	"github.com/cockroachdb/txn-limbo/internal/limbo/txn"
)

func newTestLimbo(quorum int) (*limbo.Limbo, *journal.MemJournal) {
	j := &journal.MemJournal{}
	replicas := replica.NewSet("r1", "r2", "r3")
	l := limbo.New("self", j, replicas, limbo.Parameters{
		SynchroQuorum:  quorum,
		SynchroTimeout: time.Hour,
	})
	return l, j
}

// submit appends t (already flagged WaitSync|WaitAck), assigns it the
// given LSN, and sets its signature as though the local WAL write had
// already resolved at that LSN -- mirroring the producer's own
// sequencing of "local write resolves" before "park in WaitComplete".
func submit(t *testing.T, l *limbo.Limbo, owner replica.ID, tx txn.Txn, n lsn.LSN) *limbo.Entry {
	t.Helper()
	tx.SetFlags(txn.WaitSync | txn.WaitAck)
	e, err := l.Append(owner, tx)
	require.NoError(t, err)
	require.NoError(t, l.AssignLSN(e, n))
	tx.SetSignature(txn.Signature(n))
	return e
}

func TestAppendAssignAckConfirm(t *testing.T) {
	r := require.New(t)
	l, j := newTestLimbo(2)

	var committed bool
	tx := txn.NewBasic("p1", nil)
	tx.OnCommit(func() { committed = true })

	e := submit(t, l, "self", tx, 1)
	r.Equal(1, l.Len())

	ctx := context.Background()
	l.Ack(ctx, "r1", 1)
	r.False(committed, "one ack of two required should not confirm")

	l.Ack(ctx, "r2", 1)
	r.True(e.IsCommit())
	r.True(committed)
	r.Equal(0, l.Len())

	recs := j.Records()
	r.Len(recs, 1)
	r.Equal(journal.Confirm, recs[0].Kind)
	r.Equal(lsn.LSN(1), recs[0].LSN)
}

func TestForeignSyncRejected(t *testing.T) {
	r := require.New(t)
	l, _ := newTestLimbo(1)

	tx1 := txn.NewBasic("p1", nil)
	tx1.SetFlags(txn.WaitSync)
	_, err := l.Append("self", tx1)
	r.NoError(err)

	tx2 := txn.NewBasic("p2", nil)
	tx2.SetFlags(txn.WaitSync)
	_, err = l.Append("other", tx2)
	r.Error(err)
	fs, ok := limbo.IsForeignSync(err)
	r.True(ok)
	r.Equal(replica.ID("self"), fs.Owner)
}

func TestAckMonotonic(t *testing.T) {
	r := require.New(t)
	l, _ := newTestLimbo(1)

	tx := txn.NewBasic("p1", nil)
	submit(t, l, "self", tx, 5)

	ctx := context.Background()
	l.Ack(ctx, "r1", 10)
	r.Equal(0, l.Len(), "ack past the entry's lsn with quorum 1 should confirm")

	// A stale ack from the same replica after the entry is gone must
	// not panic or otherwise misbehave.
	l.Ack(ctx, "r1", 3)
}

func TestAckBeforeAssignLSNDoesNotAdvanceAckCount(t *testing.T) {
	r := require.New(t)
	l, _ := newTestLimbo(2)

	tx := txn.NewBasic("p1", nil)
	tx.SetFlags(txn.WaitSync | txn.WaitAck)
	e, err := l.Append("self", tx)
	r.NoError(err)

	ctx := context.Background()
	l.Ack(ctx, "r1", 5)
	l.Ack(ctx, "r1", 10)
	l.Ack(ctx, "r1", 15)
	r.Equal(0, e.AckCount(), "an unassigned entry must not accumulate acks")

	r.NoError(l.AssignLSN(e, 12))
	r.Equal(1, e.AckCount(), "only r1's real position at or after the assigned lsn should count")
	r.False(e.IsCommit(), "quorum of 2 is not met by a single replica")
}

func TestReadRollbackCascadesTailToHead(t *testing.T) {
	r := require.New(t)
	l, j := newTestLimbo(5) // unreachable quorum; nothing acks out on its own

	var rolledBack []int
	mk := func(n int) txn.Txn {
		tx := txn.NewBasic("p", nil)
		idx := n
		tx.OnRollback(func() { rolledBack = append(rolledBack, idx) })
		return tx
	}

	e1 := submit(t, l, "self", mk(1), 1)
	e2 := submit(t, l, "self", mk(2), 2)
	e3 := submit(t, l, "self", mk(3), 3)
	r.Equal(3, l.Len())

	l.ReadRollback(2) // rolls back the lowest-lsn entry >= 2, and everything after it

	r.True(e2.IsRollback())
	r.True(e3.IsRollback())
	r.False(e1.IsTerminal(), "entries before the rollback point stay pending")
	r.Equal(1, l.Len())
	r.ElementsMatch([]int{2, 3}, rolledBack)

	recs := j.Records()
	r.Empty(recs, "ReadRollback applies a record already written elsewhere; it does not write one itself")
}

func TestAckBatchDeduplicatesPerReplica(t *testing.T) {
	r := require.New(t)
	l, _ := newTestLimbo(2)

	tx := txn.NewBasic("p1", nil)
	e := submit(t, l, "self", tx, 1)

	l.AckBatch(context.Background(), []replica.Ack{
		{Replica: "r1", LSN: 1},
		{Replica: "r1", LSN: 5}, // should win over the LSN-1 ack from the same replica
		{Replica: "r2", LSN: 1},
	})

	r.True(e.IsCommit())
}

func TestOnParametersChangeConfirmsAlreadyAckedEntry(t *testing.T) {
	r := require.New(t)
	l, j := newTestLimbo(5)

	tx := txn.NewBasic("p1", nil)
	e := submit(t, l, "self", tx, 1)

	ctx := context.Background()
	l.Ack(ctx, "r1", 1)
	l.Ack(ctx, "r2", 1)
	r.False(e.IsCommit(), "only two of five required acks so far")

	l.OnParametersChange(ctx, limbo.Parameters{SynchroQuorum: 2, SynchroTimeout: time.Hour})
	r.True(e.IsCommit())

	recs := j.Records()
	r.Len(recs, 1)
	r.Equal(journal.Confirm, recs[0].Kind)
}

func TestForceEmptyConfirmsAndDrainsRemainder(t *testing.T) {
	r := require.New(t)
	l, j := newTestLimbo(5)

	tx1 := txn.NewBasic("p1", nil)
	e1 := submit(t, l, "self", tx1, 1)
	tx2 := txn.NewBasic("p2", nil)
	e2 := submit(t, l, "self", tx2, 2)

	err := l.ForceEmpty(context.Background(), 1)
	r.NoError(err)
	r.True(e1.IsCommit())
	r.True(e2.IsRollback())
	r.Equal(0, l.Len())

	recs := j.Records()
	r.Len(recs, 2)
	r.Equal(journal.Confirm, recs[0].Kind)
	r.Equal(journal.Rollback, recs[1].Kind)
}

func TestForceEmptyWithoutQualifyingEntrySkipsConfirm(t *testing.T) {
	r := require.New(t)
	l, j := newTestLimbo(5)

	tx := txn.NewBasic("p1", nil)
	e := submit(t, l, "self", tx, 50)

	err := l.ForceEmpty(context.Background(), 10)
	r.NoError(err)
	r.True(e.IsRollback())
	r.Equal(0, l.Len())

	recs := j.Records()
	r.Len(recs, 1, "no entry has lsn <= 10, so no CONFIRM record may be written")
	r.Equal(journal.Rollback, recs[0].Kind)
	r.Equal(lsn.LSN(50), recs[0].LSN)
}

func TestWaitCompleteReturnsOnCommit(t *testing.T) {
	r := require.New(t)
	l, _ := newTestLimbo(1)

	tx := txn.NewBasic("p1", nil)
	e := submit(t, l, "self", tx, 1)

	done := make(chan error, 1)
	go func() { done <- l.WaitComplete(context.Background(), e) }()

	l.Ack(context.Background(), "r1", 1)

	select {
	case err := <-done:
		r.NoError(err)
	case <-time.After(time.Second):
		r.Fail("WaitComplete never returned after commit")
	}
}

func TestWaitCompleteTimesOutAndRollsBack(t *testing.T) {
	r := require.New(t)
	j := &journal.MemJournal{}
	replicas := replica.NewSet("r1")
	l := limbo.New("self", j, replicas, limbo.Parameters{
		SynchroQuorum:  5,
		SynchroTimeout: 20 * time.Millisecond,
	})

	tx := txn.NewBasic("p1", nil)
	e := submit(t, l, "self", tx, 1)

	err := l.WaitComplete(context.Background(), e)
	r.Error(err)
	_, ok := limbo.IsQuorumTimeout(err)
	r.True(ok)
	r.True(e.IsRollback())
}

func TestWaitConfirmWaitsOnTail(t *testing.T) {
	r := require.New(t)
	l, _ := newTestLimbo(1)

	tx := txn.NewBasic("p1", nil)
	submit(t, l, "self", tx, 1)

	done := make(chan error, 1)
	go func() { done <- l.WaitConfirm(context.Background()) }()

	l.Ack(context.Background(), "r1", 1)

	select {
	case err := <-done:
		r.NoError(err)
	case <-time.After(time.Second):
		r.Fail("WaitConfirm never returned after the tail entry committed")
	}
}

func TestWaitConfirmEmptyQueueReturnsImmediately(t *testing.T) {
	r := require.New(t)
	l, _ := newTestLimbo(1)
	err := l.WaitConfirm(context.Background())
	r.NoError(err)
}

type fakeReplayable []journal.Record

func (f fakeReplayable) Records(context.Context) ([]journal.Record, error) { return f, nil }

func TestReplayAppliesRecordsWithoutRewriting(t *testing.T) {
	r := require.New(t)
	l, j := newTestLimbo(5)

	tx := txn.NewBasic("p1", nil)
	e := submit(t, l, "self", tx, 1)

	err := l.Replay(context.Background(), fakeReplayable{
		{Kind: journal.Confirm, Replica: "self", LSN: 1},
	})
	r.NoError(err)
	r.True(e.IsCommit())
	r.Empty(j.Records(), "Replay must not write back to the live journal")
}
