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

package message

import (
	"container/heap"
	"time"
)

// pollWeight is the lexicographic ordering key for the poll schedule:
// lower sorts first. priorityTimesCount dominates; priority then
// lastPollTime break ties.
type pollWeight struct {
	priorityTimesCount int
	priority           int
	lastPollTime       time.Time
}

func (a pollWeight) less(b pollWeight) bool {
	if a.priorityTimesCount != b.priorityTimesCount {
		return a.priorityTimesCount < b.priorityTimesCount
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.lastPollTime.Before(b.lastPollTime)
}

// pollHeap is a container/heap of messages ordered by current pollWeight.
type pollHeap []*Message

func (h pollHeap) Len() int            { return len(h) }
func (h pollHeap) Less(i, j int) bool  { return h[i].pollWeight().less(h[j].pollWeight()) }
func (h pollHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pollHeap) Push(x interface{}) { *h = append(*h, x.(*Message)) }
func (h *pollHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// pollScheduler wraps pollHeap with the add/next operations the
// dictionary needs; it is not itself concurrency-safe, relying on Map's
// mutex for serialization.
type pollScheduler struct {
	h pollHeap
}

func newPollScheduler() *pollScheduler {
	s := &pollScheduler{}
	heap.Init(&s.h)
	return s
}

func (s *pollScheduler) add(msg *Message) {
	heap.Push(&s.h, msg)
}

// next pops the lowest-weighted message, records a poll against it, and
// pushes it back so it competes again on its next-updated weight.
func (s *pollScheduler) next() *Message {
	if s.h.Len() == 0 {
		return nil
	}
	msg := heap.Pop(&s.h).(*Message)
	msg.recordPoll(time.Now())
	heap.Push(&s.h, msg)
	return msg
}
