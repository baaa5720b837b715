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

package stopper_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/txn-limbo/internal/util/stopper"
)

func TestStopWaitsForGoroutines(t *testing.T) {
	r := require.New(t)

	ctx := stopper.WithContext(context.Background())
	finished := make(chan struct{})
	ctx.Go(func() error {
		<-ctx.Stopping()
		close(finished)
		return nil
	})

	err := ctx.Stop(time.Second)
	r.NoError(err)

	select {
	case <-finished:
	default:
		r.Fail("Stop returned before tracked goroutine observed Stopping")
	}
}

func TestStopReturnsFirstError(t *testing.T) {
	r := require.New(t)

	ctx := stopper.WithContext(context.Background())
	boom := errors.New("boom")
	ctx.Go(func() error { return boom })
	ctx.Go(func() error { return nil })

	err := ctx.Stop(time.Second)
	r.Error(err)
	r.ErrorIs(err, boom)
}

func TestStopTimesOut(t *testing.T) {
	r := require.New(t)

	ctx := stopper.WithContext(context.Background())
	release := make(chan struct{})
	ctx.Go(func() error {
		<-release
		return nil
	})
	defer close(release)

	start := time.Now()
	_ = ctx.Stop(10 * time.Millisecond)
	r.Less(time.Since(start), time.Second)

	select {
	case <-ctx.Done():
	default:
		r.Fail("expected context to be canceled after Stop's timeout elapsed")
	}
}
