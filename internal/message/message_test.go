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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarnold/ebusd-go/internal/data"
)

func newTestFields() *data.FieldSet {
	fs := data.NewFieldSet("fields", "", data.PartAny)
	fs.Add(data.NewNumberField("value", "", "", data.PartSlave, 1, 0, 8, 0, 0, 0, 0, 0))
	return fs
}

func TestNewRejectsBadIDLength(t *testing.T) {
	_, err := New(false, false, "", "x", ActiveSourceSentinel, 0x08, []byte{0x01}, newTestFields(), 0)
	assert.Error(t, err)
}

func TestNewRejectsOversizeFields(t *testing.T) {
	fs := data.NewFieldSet("big", "", data.PartSlave)
	for i := 0; i < 20; i++ {
		fs.Add(data.NewNumberField("b", "", "", data.PartSlave, 1, 0, 8, 0, 0, 0, 0, 0))
	}
	_, err := New(false, false, "", "x", ActiveSourceSentinel, 0x08, []byte{0x50, 0x22}, fs, 0)
	assert.Error(t, err)
}

func TestSetLastValueIsReadableConcurrently(t *testing.T) {
	msg, err := New(false, false, "", "x", ActiveSourceSentinel, 0x08, []byte{0x50, 0x22}, newTestFields(), 0)
	require.NoError(t, err)

	now := time.Now()
	msg.SetLastValue("21.5", now)

	value, at := msg.LastValue()
	assert.Equal(t, "21.5", value)
	assert.Equal(t, now, at)
}

func TestActiveKeyDistinguishesGetSet(t *testing.T) {
	assert.NotEqual(t, activeKey(false, "c", "n"), activeKey(true, "c", "n"))
}
