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

	"github.com/cockroachdb/txn-limbo/internal/limbo/journal"
)

// Replayable is the subset of journal.ReplayJournal that Replay needs,
// broken out as an interface so that tests can supply records without
// an actual database connection.
type Replayable interface {
	Records(ctx context.Context) ([]journal.Record, error)
}

// Replay applies every decision record found by r, in LSN order,
// directly through readConfirmLocked/readRollbackLocked without
// re-writing them to the journal. It is meant to be called once at
// process startup, before any producer has had a chance to Append,
// to bring a freshly constructed Limbo up to date with decisions a
// previous incarnation of this process already made durable.
func (l *Limbo) Replay(ctx context.Context, r Replayable) error {
	records, err := r.Records(ctx)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range records {
		switch rec.Kind {
		case journal.Confirm:
			l.readConfirmLocked(rec.LSN)
		case journal.Rollback:
			l.readRollbackLocked(rec.LSN)
		}
	}
	l.wake()

	log.WithField("count", len(records)).Info("replayed decision records into limbo")
	return nil
}
