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

// Package lsn defines the log sequence number type shared by the
// limbo, its journal, and its replica-set collaborators.
package lsn

// LSN is a log sequence number: a monotonically increasing position
// within the leader's write-ahead log.
type LSN int64

// Unassigned is the value held by an entry whose WAL write has not yet
// resolved.
const Unassigned LSN = -1

// Valid reports whether the LSN has been assigned.
func (l LSN) Valid() bool { return l >= 0 }
