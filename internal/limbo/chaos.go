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
	"math/rand"

	"github.com/pkg/errors"

	"github.com/cockroachdb/txn-limbo/internal/limbo/journal"
)

// ErrChaos is the error wrapped by every fault injected from this
// file.
var ErrChaos = errors.New("chaos")

// WithChaosJournal returns a Journal that injects submission failures
// at the given probability, otherwise delegating to delegate. It
// exists to exercise the WAL_IO propagation rules of spec §7 without
// needing a real journal backend that can be made to fail on demand.
// The delegate is returned unwrapped if prob <= 0.
func WithChaosJournal(delegate journal.Journal, prob float32) journal.Journal {
	if prob <= 0 {
		return delegate
	}
	return &chaosJournal{delegate: delegate, prob: prob}
}

type chaosJournal struct {
	delegate journal.Journal
	prob     float32
}

var _ journal.Journal = (*chaosJournal)(nil)

func (j *chaosJournal) Submit(ctx context.Context, rec journal.Record) <-chan error {
	if rand.Float32() < j.prob {
		ch := make(chan error, 1)
		ch <- errors.WithMessage(ErrChaos, "Submit")
		close(ch)
		return ch
	}
	return j.delegate.Submit(ctx, rec)
}

// WithChaosAlloc installs an allocEntry hook on l that fails at the
// given probability with OutOfMemoryError instead of constructing a
// fresh Entry, exercising the OUT_OF_MEMORY propagation rule of spec
// §7. Go has no recoverable allocation failure of its own, so this is
// the only way that path can be driven in tests; see SPEC_FULL.md's
// Open Questions for why append's allocEntry hook exists at all.
func WithChaosAlloc(l *Limbo, prob float32) {
	if prob <= 0 {
		return
	}
	l.allocEntry = func() (*Entry, error) {
		if rand.Float32() < prob {
			return nil, &OutOfMemoryError{}
		}
		return &Entry{}, nil
	}
}
