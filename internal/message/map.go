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
	"sync"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

// Map is the dictionary of loaded messages: active entries indexed by
// (set-flag, class, name) with and without class, passive entries
// indexed by their 64-bit header key, plus the priority poll schedule.
type Map struct {
	mu sync.RWMutex

	active    map[string]*Message
	passive   map[uint64]*Message
	minIDLen  int
	maxIDLen  int
	scheduler *pollScheduler
}

// NewMap returns an empty dictionary.
func NewMap() *Map {
	return &Map{
		active:    make(map[string]*Message),
		passive:   make(map[uint64]*Message),
		scheduler: newPollScheduler(),
	}
}

// Add inserts msg, enforcing active-key and passive-key uniqueness. A
// class-less active key loses to a later collision by design: the most
// recently added message with that (set-flag, name) wins the bare slot.
func (m *Map) Add(msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.IsPassive {
		key := keyFor(msg.SrcAddr, msg.DstAddr, msg.ID)
		if _, exists := m.passive[key]; exists {
			return ebus.ErrDuplicate
		}
		m.passive[key] = msg

		idLen := len(msg.ID)
		if m.minIDLen == 0 || idLen < m.minIDLen {
			m.minIDLen = idLen
		}
		if idLen > m.maxIDLen {
			m.maxIDLen = idLen
		}
		return nil
	}

	full := activeKey(msg.IsSet, msg.Class, msg.Name)
	if _, exists := m.active[full]; exists {
		return ebus.ErrDuplicate
	}
	m.active[full] = msg
	m.active[classlessActiveKey(msg.IsSet, msg.Name)] = msg
	if msg.PollPriority > 0 {
		m.scheduler.add(msg)
	}
	return nil
}

// Find looks up an active message by class and name, falling back to the
// class-less slot on miss.
func (m *Map) Find(class, name string, isSet bool) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if msg, ok := m.active[activeKey(isSet, class, name)]; ok {
		return msg, nil
	}
	if msg, ok := m.active[classlessActiveKey(isSet, name)]; ok {
		return msg, nil
	}
	return nil, ebus.ErrNotFound
}

// FindPassive attempts to match a received master frame against the
// passive dictionary. id is the frame's PB SB plus up to four more data
// bytes, tried from the longest plausible length down to minIDLen; at
// each length a wildcard-source probe follows an exact-source miss.
func (m *Map) FindPassive(srcAddr, dstAddr byte, data []byte) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	maxLen := len(data)
	if maxLen > m.maxIDLen {
		maxLen = m.maxIDLen
	}
	if maxLen < m.minIDLen {
		return nil, ebus.ErrNotFound
	}

	for idLen := maxLen; idLen >= m.minIDLen; idLen-- {
		id := data[:idLen]
		key := keyFor(srcAddr, dstAddr, id)
		if msg, ok := m.passive[key]; ok {
			return msg, nil
		}
		wildcard := wildcardSourceKey(key)
		if wildcard != key {
			if msg, ok := m.passive[wildcard]; ok {
				return msg, nil
			}
		}
	}
	return nil, ebus.ErrNotFound
}

// MinIDLen and MaxIDLen report the id-length window spanned by the
// passive dictionary, used to size the scan matching window.
func (m *Map) MinIDLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minIDLen
}

func (m *Map) MaxIDLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxIDLen
}

// NextPoll pops the lowest-weighted schedulable message, bumps its poll
// count and stamp, and reinserts it. Returns nil if nothing is scheduled.
func (m *Map) NextPoll() *Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduler.next()
}
