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

// Package journal describes the WAL/journal collaborator: the thing
// that durably records CONFIRM and ROLLBACK decisions before the
// limbo applies them locally. The limbo only depends on the Journal
// interface; this package also ships a durable, SQL-backed
// implementation and an in-memory one for tests.
package journal

import (
	"context"
	"fmt"

	"github.com/cockroachdb/txn-limbo/internal/limbo/lsn"
	"github.com/cockroachdb/txn-limbo/internal/limbo/replica"
)

// Kind distinguishes the two decision record types the limbo ever
// writes.
type Kind int

const (
	// Confirm finalizes a prefix of the limbo's queue.
	Confirm Kind = iota
	// Rollback finalizes a suffix of the limbo's queue.
	Rollback
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Confirm:
		return "CONFIRM"
	case Rollback:
		return "ROLLBACK"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Record is the single-row wire format of a decision record (spec §6):
// the owner replica, the LSN frontier, and which kind of decision it
// is.
type Record struct {
	Kind    Kind
	Replica replica.ID
	LSN     lsn.LSN
}

// A Journal durably persists Records and reports back whether the
// write succeeded. Submit must not block past the point where the
// write is durable (or has definitively failed); the limbo blocks the
// calling goroutine on the returned channel, which stands in for the
// source system's suspension-point-on-WAL-callback.
type Journal interface {
	Submit(ctx context.Context, rec Record) <-chan error
}
