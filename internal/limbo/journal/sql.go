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

package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // register driver for ReplayJournal
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // register driver for ReplayJournal
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
	"github.com/cockroachdb/txn-limbo/internal/util/stopper"
)

// decisionTableSchema mirrors the shape of the teacher's resolved-table
// schema (one row per logical position, upserted as new decisions
// arrive), extended with a kind column so that a single table can
// carry both CONFIRM and ROLLBACK rows.
const decisionTableSchema = `
CREATE TABLE IF NOT EXISTS %s (
	replica_id STRING      NOT NULL,
	lsn        INT         NOT NULL,
	kind       STRING      NOT NULL,
	written_at TIMESTAMP   DEFAULT now(),
	PRIMARY KEY (replica_id, lsn)
)`

const decisionTableUpsert = `
UPSERT INTO %s (replica_id, lsn, kind) VALUES ($1, $2, $3)`

// SQLJournal is a Journal backed by a CockroachDB/Postgres-family
// connection pool. Writes are dispatched onto a stopper-managed
// goroutine so that Submit returns promptly and the caller blocks only
// on the returned channel, matching the "journal resolves
// asynchronously" contract of spec §6.
type SQLJournal struct {
	pool  *pgxpool.Pool
	table string
	ctx   *stopper.Context
}

var _ Journal = (*SQLJournal)(nil)

// NewSQLJournal creates the decision table if it does not already
// exist and returns a Journal that writes into it. Each Submit runs
// its write on a new goroutine tracked by ctx, so ctx.Stop waits for
// writes still in flight.
func NewSQLJournal(
	ctx *stopper.Context, pool *pgxpool.Pool, table string,
) (*SQLJournal, error) {
	if _, err := pool.Exec(ctx, fmt.Sprintf(decisionTableSchema, table)); err != nil {
		return nil, errors.Wrap(err, "could not create decision table")
	}
	return &SQLJournal{pool: pool, table: table, ctx: ctx}, nil
}

// Submit implements Journal.
func (j *SQLJournal) Submit(ctx context.Context, rec Record) <-chan error {
	result := make(chan error, 1)
	j.ctx.Go(func() error {
		_, err := j.pool.Exec(ctx, fmt.Sprintf(decisionTableUpsert, j.table),
			string(rec.Replica), int64(rec.LSN), rec.Kind.String())
		if err != nil {
			err = errors.Wrap(err, "could not write decision record")
			log.WithError(err).WithFields(log.Fields{
				"replica": rec.Replica,
				"lsn":     rec.LSN,
				"kind":    rec.Kind,
			}).Warn("journal write failed")
		}
		result <- err
		close(result)
		return nil
	})
	return result
}

// ReplayJournal reads back decision records using the plain
// database/sql interface, so that it can be pointed at either a
// Postgres-family target (via lib/pq) or a MySQL-family target (via
// go-sql-driver/mysql) for cross-engine replay tooling. It is used by
// Limbo.Replay to feed previously-written decisions back through
// ReadConfirm/ReadRollback after a restart, per spec §3's "replayed
// decision records arriving from the log".
type ReplayJournal struct {
	db    *sql.DB
	table string
}

// NewReplayJournal wraps an already-open database/sql handle.
func NewReplayJournal(db *sql.DB, table string) *ReplayJournal {
	return &ReplayJournal{db: db, table: table}
}

const decisionTableScan = `
SELECT replica_id, lsn, kind FROM %s ORDER BY lsn ASC`

// Records returns every decision record in LSN order.
func (r *ReplayJournal) Records(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(decisionTableScan, r.table))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var replicaID string
		var rawLSN int64
		var kind string
		if err := rows.Scan(&replicaID, &rawLSN, &kind); err != nil {
			return nil, errors.WithStack(err)
		}
		k := Confirm
		if kind == Rollback.String() {
			k = Rollback
		}
		out = append(out, Record{Kind: k, Replica: replica.ID(replicaID), LSN: lsn.LSN(rawLSN)})
	}
	return out, errors.WithStack(rows.Err())
}
