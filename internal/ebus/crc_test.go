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

package ebus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateCRCZero(t *testing.T) {
	assert.Equal(t, byte(0), UpdateCRC(0, 0x00))
}

func TestCRC8KnownByte(t *testing.T) {
	assert.Equal(t, byte(0x24), CRC8([]byte{0xFF}))
}

func TestCRC8EmptyIsZero(t *testing.T) {
	assert.Equal(t, byte(0), CRC8(nil))
}

func TestCRC8OrderSensitive(t *testing.T) {
	a := CRC8([]byte{0x03, 0xFE, 0xB5})
	b := CRC8([]byte{0xFE, 0x03, 0xB5})
	assert.NotEqual(t, a, b)
}

func TestCRC8IncrementalMatchesBulk(t *testing.T) {
	data := []byte{0x10, 0xFE, 0xB5, 0x05, 0x04, 0x27, 0x09}
	bulk := CRC8(data)

	var running byte
	for _, b := range data {
		running = UpdateCRC(running, b)
	}
	assert.Equal(t, bulk, running)
}
