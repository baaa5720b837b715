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

package journal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/txn-limbo/internal/limbo/journal"
	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
)

func TestMemJournalRecordsInOrder(t *testing.T) {
	r := require.New(t)

	j := &journal.MemJournal{}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := <-j.Submit(ctx, journal.Record{Kind: journal.Confirm, Replica: "a", LSN: lsn.LSN(i)})
		r.NoError(err)
	}

	got := j.Records()
	r.Len(got, 3)
	for i, rec := range got {
		r.Equal(lsn.LSN(i), rec.LSN)
		r.Equal(replica.ID("a"), rec.Replica)
	}
}

func TestMemJournalFailHook(t *testing.T) {
	r := require.New(t)

	boom := errors.New("boom")
	j := &journal.MemJournal{Fail: func(journal.Record) error { return boom }}

	err := <-j.Submit(context.Background(), journal.Record{Kind: journal.Rollback, Replica: "a", LSN: 1})
	r.ErrorIs(err, boom)
	r.Empty(j.Records())
}

func TestKindString(t *testing.T) {
	r := require.New(t)
	r.Equal("CONFIRM", journal.Confirm.String())
	r.Equal("ROLLBACK", journal.Rollback.String())
}
