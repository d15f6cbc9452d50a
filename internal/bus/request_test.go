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
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

func TestRequestNotifyOnlyFiresOnce(t *testing.T) {
	req := NewRequest([]byte{0x03})
	req.Notify(nil)
	req.Notify(ebus.ErrTimeout) // must be ignored

	err := req.Wait(time.Second)
	assert.NoError(t, err)
}

func TestRequestWaitTimesOutWithoutNotify(t *testing.T) {
	req := NewRequest([]byte{0x03})
	err := req.Wait(10 * time.Millisecond)
	assert.ErrorIs(t, err, ebus.ErrTimeout)
	assert.False(t, req.Done())
}

func TestRequestDoneReflectsNotify(t *testing.T) {
	req := NewRequest([]byte{0x03})
	assert.False(t, req.Done())
	req.Notify(ebus.ErrCRC)
	assert.True(t, req.Done())

	err := req.Wait(time.Second)
	assert.ErrorIs(t, err, ebus.ErrCRC)
}
