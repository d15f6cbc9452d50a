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

// Package message implements the message dictionary: Message definitions
// parsed from CSV rows, active lookup by class/name and passive lookup by
// header bytes, and the priority-weighted poll schedule.
package message

import (
	"sync"
	"time"

	"github.com/sarnold/ebusd-go/internal/data"
	"github.com/sarnold/ebusd-go/internal/ebus"
)

// ActiveSourceSentinel marks an active message's source as "not yet
// bound" — the daemon substitutes its own master address at send time.
const ActiveSourceSentinel = 0x1F

// Message is one dictionary entry: either an active message the daemon
// originates (get/set), or a passive one matched against traffic from
// other masters.
type Message struct {
	IsSet     bool
	IsPassive bool
	Class     string
	Name      string

	SrcAddr byte
	DstAddr byte
	ID      []byte // PB SB plus up to four additional prefix bytes

	Fields *data.FieldSet

	PollPriority int

	mu             sync.Mutex
	lastValue      string
	lastUpdateTime time.Time
	pollCount      int
	lastPollTime   time.Time
}

// New constructs a Message. srcAddr is ActiveSourceSentinel for an active
// message (bound at send time) or ebus.SYN to wildcard a passive source.
func New(isSet, isPassive bool, class, name string, srcAddr, dstAddr byte, id []byte, fields *data.FieldSet, pollPriority int) (*Message, error) {
	if len(id) < 2 || len(id) > 6 {
		return nil, ebus.ErrInvalidArg
	}
	masterLen := fields.LengthFor(data.PartMaster) + len(id) - 2
	slaveLen := fields.LengthFor(data.PartSlave)
	if masterLen > 16 || slaveLen > 16 {
		return nil, ebus.ErrOutOfRange
	}
	return &Message{
		IsSet:        isSet,
		IsPassive:    isPassive,
		Class:        class,
		Name:         name,
		SrcAddr:      srcAddr,
		DstAddr:      dstAddr,
		ID:           append([]byte(nil), id...),
		Fields:       fields,
		PollPriority: pollPriority,
	}, nil
}

// LastValue returns the most recently decoded text and the time it was
// stamped. Safe to call from any goroutine; the bus handler is the sole
// writer.
func (m *Message) LastValue() (string, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastValue, m.lastUpdateTime
}

// SetLastValue stamps a newly decoded value. Called only from the
// bus-handler goroutine.
func (m *Message) SetLastValue(value string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastValue = value
	m.lastUpdateTime = at
}

// pollWeight reports the weight this message would carry if it were
// chosen for the next poll: priority × (pollCount+1), so a never-polled
// message (pollCount 0) sorts by priority alone and a message's weight
// only grows once it has actually been polled that many times.
func (m *Message) pollWeight() pollWeight {
	m.mu.Lock()
	defer m.mu.Unlock()
	return pollWeight{
		priorityTimesCount: m.PollPriority * (m.pollCount + 1),
		priority:           m.PollPriority,
		lastPollTime:       m.lastPollTime,
	}
}

func (m *Message) recordPoll(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollCount++
	m.lastPollTime = at
}

// activeKey is the string key active messages are stored under, both
// with and without the class component.
func activeKey(isSet bool, class, name string) string {
	return boolChar(isSet) + "\x00" + class + "\x00" + name
}

func classlessActiveKey(isSet bool, name string) string {
	return boolChar(isSet) + "\x00\x00" + name
}

func boolChar(b bool) string {
	if b {
		return "w"
	}
	return "r"
}
