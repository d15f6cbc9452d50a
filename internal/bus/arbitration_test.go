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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWonArbitration(t *testing.T) {
	assert.True(t, wonArbitration(0x03, 0x03))
	assert.False(t, wonArbitration(0x03, 0x10))
}

func TestRemainLockCountSameLowNibble(t *testing.T) {
	// 0x03 and 0x13 share low nibble 0x3; losing to a same-nibble
	// master always allows the default two-SYN window.
	assert.Equal(t, 2, remainLockCount(5, 0x03, 0x13))
}

func TestRemainLockCountDifferentNibbleUsesLockCount(t *testing.T) {
	assert.Equal(t, 5, remainLockCount(5, 0x03, 0x10))
}

func TestRemainLockCountDifferentNibbleSmallLockCount(t *testing.T) {
	// lockCount below the default minimum never shrinks it.
	assert.Equal(t, 2, remainLockCount(1, 0x03, 0x10))
}

func TestRemainLockCountNonMasterWinnerSameNibble(t *testing.T) {
	// 0x53 is not a master address (high nibble 5 isn't in {0,1,3,7,F})
	// but shares low nibble 3 with 0x03, so the nibble-diff override
	// doesn't apply and remain stays at the non-master default of 1.
	assert.Equal(t, 1, remainLockCount(5, 0x03, 0x53))
}
