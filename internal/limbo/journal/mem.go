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
	"sync"
)

// MemJournal is an in-memory Journal, used by tests and by host
// processes that want to dry-run the limbo (e.g. ForceEmpty tooling)
// without a database. Writes always succeed unless Fail is set.
type MemJournal struct {
	mu struct {
		sync.Mutex
		records []Record
	}

	// Fail, if non-nil, is called before each Submit; a non-nil return
	// value is delivered on the result channel instead of recording
	// the entry.
	Fail func(Record) error
}

var _ Journal = (*MemJournal)(nil)

// Submit implements Journal.
func (m *MemJournal) Submit(ctx context.Context, rec Record) <-chan error {
	ch := make(chan error, 1)
	if m.Fail != nil {
		if err := m.Fail(rec); err != nil {
			ch <- err
			close(ch)
			return ch
		}
	}
	m.mu.Lock()
	m.mu.records = append(m.mu.records, rec)
	m.mu.Unlock()
	close(ch)
	return ch
}

// Records returns a snapshot of every record accepted so far, in
// submission order.
func (m *MemJournal) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.mu.records))
	copy(out, m.mu.records)
	return out
}
