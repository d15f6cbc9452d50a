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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarnold/ebusd-go/internal/data"
	"github.com/sarnold/ebusd-go/internal/ebus"
)

func mustMessage(t *testing.T, isSet, isPassive bool, class, name string, src, dst byte, id []byte, priority int) *Message {
	msg, err := New(isSet, isPassive, class, name, src, dst, id, newTestFields(), priority)
	require.NoError(t, err)
	return msg
}

func TestMapAddAndFindActiveWithClass(t *testing.T) {
	m := NewMap()
	msg := mustMessage(t, false, false, "heating", "temp", ActiveSourceSentinel, 0x08, []byte{0x50, 0x22}, 0)
	require.NoError(t, m.Add(msg))

	found, err := m.Find("heating", "temp", false)
	require.NoError(t, err)
	assert.Same(t, msg, found)
}

func TestMapFindFallsBackToClassless(t *testing.T) {
	m := NewMap()
	msg := mustMessage(t, false, false, "heating", "temp", ActiveSourceSentinel, 0x08, []byte{0x50, 0x22}, 0)
	require.NoError(t, m.Add(msg))

	found, err := m.Find("other-class", "temp", false)
	require.NoError(t, err)
	assert.Same(t, msg, found)
}

func TestMapAddDuplicateActiveFails(t *testing.T) {
	m := NewMap()
	msg1 := mustMessage(t, false, false, "c", "n", ActiveSourceSentinel, 0x08, []byte{0x50, 0x22}, 0)
	msg2 := mustMessage(t, false, false, "c", "n", ActiveSourceSentinel, 0x08, []byte{0x50, 0x23}, 0)
	require.NoError(t, m.Add(msg1))
	assert.ErrorIs(t, m.Add(msg2), ebus.ErrDuplicate)
}

func TestMapPassiveExactSourceMatch(t *testing.T) {
	m := NewMap()
	msg := mustMessage(t, false, true, "", "status", 0x03, 0x08, []byte{0x50, 0x22}, 0)
	require.NoError(t, m.Add(msg))

	found, err := m.FindPassive(0x03, 0x08, []byte{0x50, 0x22, 0x01, 0x02})
	require.NoError(t, err)
	assert.Same(t, msg, found)
}

func TestMapPassiveWildcardSourceMatch(t *testing.T) {
	m := NewMap()
	msg := mustMessage(t, false, true, "", "status", ebus.SYN, 0x08, []byte{0x50, 0x22}, 0)
	require.NoError(t, m.Add(msg))

	found, err := m.FindPassive(0x10, 0x08, []byte{0x50, 0x22})
	require.NoError(t, err)
	assert.Same(t, msg, found)
}

func TestMapPassiveMissReturnsNotFound(t *testing.T) {
	m := NewMap()
	_, err := m.FindPassive(0x03, 0x08, []byte{0x50, 0x22})
	assert.ErrorIs(t, err, ebus.ErrNotFound)
}

func TestMapPassiveDuplicateFails(t *testing.T) {
	m := NewMap()
	msg1 := mustMessage(t, false, true, "", "a", 0x03, 0x08, []byte{0x50, 0x22}, 0)
	msg2 := mustMessage(t, false, true, "", "b", 0x03, 0x08, []byte{0x50, 0x22}, 0)
	require.NoError(t, m.Add(msg1))
	assert.ErrorIs(t, m.Add(msg2), ebus.ErrDuplicate)
}

func TestMapShortIDLengthWindow(t *testing.T) {
	m := NewMap()
	short := mustMessage(t, false, true, "", "short", 0x03, 0x08, []byte{0x50, 0x22}, 0)
	long := mustMessage(t, false, true, "", "long", 0x03, 0x08, []byte{0x50, 0x22, 0x01, 0x02}, 0)
	require.NoError(t, m.Add(short))
	require.NoError(t, m.Add(long))

	assert.Equal(t, 2, m.MinIDLen())
	assert.Equal(t, 4, m.MaxIDLen())

	found, err := m.FindPassive(0x03, 0x08, []byte{0x50, 0x22, 0x01, 0x02, 0xFF})
	require.NoError(t, err)
	assert.Same(t, long, found)
}

func TestMapPollOrderingByPriority(t *testing.T) {
	m := NewMap()
	low := data.PartAny
	_ = low
	p1 := mustMessage(t, false, false, "", "p1", ActiveSourceSentinel, 0x08, []byte{0x50, 0x22}, 1)
	p3 := mustMessage(t, false, false, "", "p3", ActiveSourceSentinel, 0x08, []byte{0x50, 0x23}, 3)
	require.NoError(t, m.Add(p1))
	require.NoError(t, m.Add(p3))

	first := m.NextPoll()
	assert.Same(t, p1, first, "priority 1 should be polled before priority 3")

	for i := 0; i < 2; i++ {
		next := m.NextPoll()
		assert.Same(t, p1, next, "priority 1 keeps winning until its weight catches up")
	}

	next := m.NextPoll()
	assert.Same(t, p3, next, "after three polls, priority-1's weight (4) exceeds priority-3's weight (3)")
}
