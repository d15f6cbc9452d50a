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

// Package bus implements the eBUS state machine and request arbiter: one
// goroutine drives the serial link one symbol at a time, arbitrating for
// the bus, framing master/slave data, and completing queued BusRequests.
package bus

import "time"

// State is a bus-handler state. The handler reenters skip after every
// terminal condition and waits there for the next SYN to resynchronize.
type State int

const (
	StateSkip State = iota
	StateReady
	StateRecvCmd
	StateRecvCmdAck
	StateRecvRes
	StateRecvResAck
	StateSendCmd
	StateSendResAck
	StateSendSyn
)

func (s State) String() string {
	switch s {
	case StateSkip:
		return "skip"
	case StateReady:
		return "ready"
	case StateRecvCmd:
		return "recvCmd"
	case StateRecvCmdAck:
		return "recvCmdAck"
	case StateRecvRes:
		return "recvRes"
	case StateRecvResAck:
		return "recvResAck"
	case StateSendCmd:
		return "sendCmd"
	case StateSendResAck:
		return "sendResAck"
	case StateSendSyn:
		return "sendSyn"
	default:
		return "unknown"
	}
}

// Timeouts holds the timing values the symbol loop applies per state, as
// time.Duration values; the defaults are taken from the reference
// microsecond figures, matching the byte-at-a-time granularity of the link.
type Timeouts struct {
	SynTimeout        time.Duration
	SendTimeout       time.Duration
	BusAcquireTimeout time.Duration
	SlaveRecvTimeout  time.Duration
	RequestWait       time.Duration
	LockCount         int
}

// DefaultTimeouts reproduces the reference values from the protocol
// description: SYN_TIMEOUT ~4.5ms, SEND_TIMEOUT ~15ms, a 10ms
// bus-acquire window, a 15ms slave-response window, a 1s per-attempt
// request wait, and a 5-SYN arbitration lock count.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		SynTimeout:        4500 * time.Microsecond,
		SendTimeout:       15000 * time.Microsecond,
		BusAcquireTimeout: 10 * time.Millisecond,
		SlaveRecvTimeout:  15 * time.Millisecond,
		RequestWait:       1 * time.Second,
		LockCount:         5,
	}
}
