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

// Package stopper provides a small supervisor for cooperatively
// cancelable background tasks. It stands in for the cooperative
// scheduler's task handles: Go does not preempt goroutines, so a
// Context here plays the role that a fiber/task handle plays in the
// source system, complete with a "stopping, but not yet canceled"
// phase that lets in-flight work finish cleanly before Done() fires.
package stopper

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// A Context supervises a group of goroutines started with Go. It
// embeds context.Context so it can be passed anywhere a Context is
// expected.
type Context struct {
	context.Context

	cancel   context.CancelFunc
	stopping chan struct{}
	stopOnce sync.Once

	mu struct {
		sync.Mutex
		wg  sync.WaitGroup
		err error
	}
}

// WithContext creates a new Context whose Done channel fires when the
// parent is done or when Stop is called.
func WithContext(parent context.Context) *Context {
	ctx, cancel := context.WithCancel(parent)
	s := &Context{
		Context:  ctx,
		cancel:   cancel,
		stopping: make(chan struct{}),
	}
	go func() {
		<-ctx.Done()
		s.stopOnce.Do(func() { close(s.stopping) })
	}()
	return s
}

// Go starts fn in its own goroutine, tracked by the Context. The first
// non-nil error returned by any tracked goroutine is retained and is
// returned by Stop.
func (s *Context) Go(fn func() error) {
	s.mu.wg.Add(1)
	go func() {
		defer s.mu.wg.Done()
		if err := fn(); err != nil {
			s.mu.Lock()
			if s.mu.err == nil {
				s.mu.err = err
			}
			s.mu.Unlock()
		}
	}()
}

// Stopping returns a channel that is closed when Stop is first called,
// or when the parent context is canceled. Unlike Done, this fires
// before cancellation propagates to in-flight work, giving callers a
// chance to observe "please wind down" before "you are canceled".
func (s *Context) Stopping() <-chan struct{} {
	return s.stopping
}

// Stop requests that all tracked goroutines wind down, waits up to
// timeout for them to finish, and then cancels the underlying context
// regardless of whether they finished in time.
func (s *Context) Stop(timeout time.Duration) error {
	s.stopOnce.Do(func() { close(s.stopping) })

	done := make(chan struct{})
	go func() {
		s.mu.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.WithStack(s.mu.err)
}
