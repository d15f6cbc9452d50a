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
	"sync"
	"time"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

// Request is one pending send/receive cycle: the master frame to send
// and, once the handler completes it, the slave frame (if any) and the
// outcome. A Request is single-shot: Notify after the first call is a
// no-op, and Wait may be called any number of times.
type Request struct {
	Master []byte // QQ ZZ PB SB NN D1...Dn, CRC appended by the handler
	Slave  []byte // populated by the handler on a successful response

	once sync.Once
	done chan struct{}
	err  error
}

// NewRequest wraps a master frame payload (without its trailing CRC,
// which the handler computes) for submission to a Queue.
func NewRequest(master []byte) *Request {
	return &Request{
		Master: master,
		done:   make(chan struct{}),
	}
}

// Notify completes the request with err (nil on success). Only the
// first call takes effect.
func (r *Request) Notify(err error) {
	r.once.Do(func() {
		r.err = err
		close(r.done)
	})
}

// Wait blocks until Notify or the deadline, whichever comes first. A
// timed-out Wait does not itself notify the request; the caller is
// responsible for removing it from the queue before retrying.
func (r *Request) Wait(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.done:
		return r.err
	case <-timer.C:
		return ebus.ErrTimeout
	}
}

// Done reports whether Notify has already fired.
func (r *Request) Done() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}
