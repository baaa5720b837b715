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
	"fmt"

	"github.com/pkg/errors"

	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
)

// ForeignSyncError is returned by Append when a different instance
// already owns the non-empty queue.
type ForeignSyncError struct {
	Owner replica.ID
}

func (e *ForeignSyncError) Error() string {
	return fmt.Sprintf("synchronous transactions are already owned by %s", e.Owner)
}

// IsForeignSync returns the error if it represents rejection due to a
// foreign owner.
func IsForeignSync(err error) (fs *ForeignSyncError, ok bool) {
	return fs, errors.As(err, &fs)
}

// WALIOError wraps a failure returned by the journal collaborator.
type WALIOError struct {
	cause error
}

func (e *WALIOError) Error() string { return "wal write failed: " + e.cause.Error() }
func (e *WALIOError) Unwrap() error { return e.cause }

// IsWALIO returns the error if it represents a journal write failure.
func IsWALIO(err error) (w *WALIOError, ok bool) {
	return w, errors.As(err, &w)
}

// QuorumTimeoutError is surfaced to a producer whose wait exceeded the
// configured synchro_timeout before its entry committed.
type QuorumTimeoutError struct{}

func (e *QuorumTimeoutError) Error() string { return "synchronous replication timed out" }

// IsQuorumTimeout returns the error if it represents a timed-out wait.
func IsQuorumTimeout(err error) (q *QuorumTimeoutError, ok bool) {
	return q, errors.As(err, &q)
}

// RollbackError is surfaced to a producer whose entry reached terminal
// rollback state.
type RollbackError struct{}

func (e *RollbackError) Error() string { return "transaction was rolled back by synchronous replication" }

// IsRollback returns the error if it represents a terminal rollback.
func IsRollback(err error) (r *RollbackError, ok bool) {
	return r, errors.As(err, &r)
}

// OutOfMemoryError is returned by Append's entry allocator hook. Go
// does not expose a recoverable allocation failure the way the source
// system's C allocator does; this exists so that Append's contract
// matches spec §7 and so that fault-injection tests (see chaos.go) can
// exercise the caller-visible behavior of an allocation failure.
type OutOfMemoryError struct{}

func (e *OutOfMemoryError) Error() string { return "could not allocate limbo entry" }

// IsOutOfMemory returns the error if it represents an allocation
// failure.
func IsOutOfMemory(err error) (o *OutOfMemoryError, ok bool) {
	return o, errors.As(err, &o)
}
