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

import "github.com/sarnold/ebusd-go/internal/ebus"

// wonArbitration reports whether emitting ownAddr as the first byte of a
// frame and reading back echoed won the bus: the echo must equal what
// was sent.
func wonArbitration(ownAddr, echoed byte) bool {
	return ownAddr == echoed
}

// remainLockCount computes how many SYNs must pass before this handler
// may contend for the bus again after losing arbitration to winner,
// given the configured lockCount. Same low nibble ⇒ the winner's frame
// can complete within two SYNs; a lower-priority winner (different low
// nibble) is allowed its full configured lock window when that window
// exceeds the default minimum of 2.
func remainLockCount(lockCount int, ownAddr, winner byte) int {
	remain := 1
	if ebus.IsMaster(winner) {
		remain = 2
	}
	if winner&0x0F != ownAddr&0x0F && lockCount > remain {
		remain = lockCount
	}
	return remain
}
