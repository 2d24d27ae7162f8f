// Copyright 2020 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ws

import "sync"

// Loop is the "post to event loop" primitive the spec's §5/§9 rely on:
// server-role open and queue release are deferred by one turn rather than
// run inline. Stream calls its producer once and does not post anything
// between pushed chunks, so there is no inter-chunk yield. A Loop is a FIFO of
// pending turns; nothing here spawns a goroutine on its own; callers decide
// whether to drain it from a dedicated goroutine (Run) or by hand in tests
// (RunOne/Drain), which is what makes suspension points deterministic to
// test as §5 requires.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewLoop returns a ready-to-use Loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post schedules fn to run on the loop's next turn, preserving the order in
// which Post was called (ordering guarantee §5.c applies transitively
// through this primitive).
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// RunOne runs the single oldest pending turn, if any, and reports whether it
// found one. Tests use this to advance the loop deterministically one step
// at a time.
func (l *Loop) RunOne() bool {
	l.mu.Lock()
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return false
	}
	fn := l.pending[0]
	l.pending = l.pending[1:]
	l.mu.Unlock()
	fn()
	return true
}

// Drain runs every pending turn, including ones newly scheduled by turns
// that already ran, until none remain.
func (l *Loop) Drain() {
	for l.RunOne() {
	}
}

// Run drains the loop forever on the calling goroutine, blocking between
// turns until Post wakes it. Intended for production use; tests use
// RunOne/Drain instead so advancement is deterministic.
func (l *Loop) Run(stop <-chan struct{}) {
	for {
		l.Drain()
		select {
		case <-stop:
			return
		case <-l.wake:
		}
	}
}
