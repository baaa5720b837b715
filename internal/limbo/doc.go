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

// Package limbo implements a synchronous transaction limbo: a FIFO
// queue of transactions awaiting replication quorum before they can
// be considered committed.
//
// The package is organized around a single *Limbo guarded by one
// mutex (see limbo.go), with its operations split by concern:
//
//   - entry.go holds the queue itself (append, assign_lsn, abort) and
//     the *Entry type.
//   - ack.go tracks per-replica acknowledgement positions and decides
//     when a prefix of the queue has reached quorum.
//   - decide.go writes CONFIRM/ROLLBACK decision records to the
//     journal collaborator and applies them locally.
//   - wait.go implements the producer-facing blocking calls:
//     WaitComplete and WaitConfirm.
//   - admin.go implements the operator-facing calls: ForceEmpty and
//     OnParametersChange.
//   - replay.go re-applies previously durable decision records at
//     startup.
//   - chaos.go optionally injects journal and allocation failures for
//     tests.
//
// The collaborators the limbo depends on but does not implement live
// in their own packages: journal (the WAL writer), txn (the
// transaction engine), replica (the tracked replica set), and lsn (the
// shared log sequence number type).
package limbo
