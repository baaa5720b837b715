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

package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/txn-limbo/internal/util/notify"
)

func TestGetSet(t *testing.T) {
	r := require.New(t)

	var v notify.Var[int]
	val, changed := v.Get()
	r.Equal(0, val)

	v.Set(42)
	select {
	case <-changed:
	default:
		r.Fail("expected changed channel to be closed after Set")
	}

	val, _ = v.Get()
	r.Equal(42, val)
}

func TestBroadcastWakesAllWaiters(t *testing.T) {
	r := require.New(t)

	var v notify.Var[int]
	const waiters = 8
	woke := make(chan struct{}, waiters)

	for i := 0; i < waiters; i++ {
		_, changed := v.Get()
		go func() {
			<-changed
			woke <- struct{}{}
		}()
	}

	v.Set(1)

	for i := 0; i < waiters; i++ {
		select {
		case <-woke:
		case <-time.After(time.Second):
			r.Fail("waiter never woke")
		}
	}
}

func TestUpdate(t *testing.T) {
	r := require.New(t)

	var v notify.Var[int]
	out := v.Update(func(n int) int { return n + 1 })
	r.Equal(1, out)
	out = v.Update(func(n int) int { return n + 1 })
	r.Equal(2, out)
}
