// Copyright (c) 2009-2020 Rob Braun <bbraun@synack.net> and others
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of Rob Braun nor the names of his contributors
//    may be used to endorse or promote products derived from this software
//    without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT OWNER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package bus

import (
	"context"
	"sync"
	"time"
)

// Queue is a thread-safe FIFO of pending Requests. Add never blocks;
// Remove/RemoveWait block until a request is available, the wait
// expires, or the queue is closed. Peek and Remove are separate so the
// handler can inspect the head request without committing to dequeue it.
type Queue struct {
	mu     sync.Mutex
	items  []*Request
	notify chan struct{}
	closed bool
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Add appends req to the tail and wakes one waiting Remove.
func (q *Queue) Add(req *Request) {
	q.mu.Lock()
	q.items = append(q.items, req)
	q.mu.Unlock()
	q.wake()
}

// Peek returns the head request without removing it, or nil if empty.
func (q *Queue) Peek() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *Queue) tryPop() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	req := q.items[0]
	q.items = q.items[1:]
	return req
}

// Remove blocks until the queue is non-empty (or closed) and returns and
// removes the head request. Returns nil once closed with nothing left.
func (q *Queue) Remove() *Request {
	return q.RemoveWait(context.Background(), 0)
}

// RemoveWait blocks up to timeout (zero means forever) for a request,
// waking early on ctx cancellation or Close. Returns nil on timeout,
// cancellation, or a closed empty queue.
func (q *Queue) RemoveWait(ctx context.Context, timeout time.Duration) *Request {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		if req := q.tryPop(); req != nil {
			return req
		}
		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			q.wake() // pass the wake-up on to the next blocked caller
			return nil
		}
		select {
		case <-q.notify:
			continue
		case <-deadline:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// RemoveRequest removes req from anywhere in the queue if present,
// reporting whether it was found. Used when a Wait deadline expires
// before the handler has dequeued the request.
func (q *Queue) RemoveRequest(req *Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item == req {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes any blocked Remove calls; they will return nil.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}
