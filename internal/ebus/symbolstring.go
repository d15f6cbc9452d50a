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

// SymbolString is an ordered byte sequence representing a master or slave
// frame, with on-the-fly escape/unescape and a running CRC. Grounded on
// the escape-loop shape of a TashTalk-style serial decoder, adapted from
// a 2-byte escape pair to the bus's 1-byte ESC prefix and from a trailing
// CRC16 to the bus's incremental CRC-8.
type SymbolString struct {
	data []byte
	crc  byte

	// escPending is set when, in unescaped mode, the previous input byte
	// was ESC and we're waiting for its successor.
	escPending bool
}

// NewSymbolString returns an empty SymbolString.
func NewSymbolString() *SymbolString {
	return &SymbolString{}
}

// Push appends b to the string. In escaped mode, ESC and SYN are each
// transparently expanded to their two-byte escape sequence. In unescaped
// mode, an escape pair is resolved into its literal. updateCRC controls
// whether b contributes to the running CRC; the CRC byte itself must be
// pushed with updateCRC=false.
func (s *SymbolString) Push(b byte, escape, updateCRC bool) error {
	if escape {
		switch b {
		case ESC:
			s.data = append(s.data, ESC, escEsc)
		case SYN:
			s.data = append(s.data, ESC, escSyn)
		default:
			s.data = append(s.data, b)
		}
		if updateCRC {
			s.crc = UpdateCRC(s.crc, b)
		}
		return nil
	}

	// Unescaped mode: Push is called once per physical wire byte, so an
	// escaped symbol arrives as two calls. The CRC must fold in the
	// resolved logical byte exactly once, on the successor-byte call;
	// the ESC marker byte itself never touches the CRC.
	if s.escPending {
		s.escPending = false
		var resolved byte
		switch b {
		case escEsc:
			resolved = ESC
		case escSyn:
			resolved = SYN
		default:
			return ErrEscUnexpected
		}
		s.data = append(s.data, resolved)
		if updateCRC {
			s.crc = UpdateCRC(s.crc, resolved)
		}
		return nil
	}
	if b == ESC {
		s.escPending = true
		return nil
	}
	s.data = append(s.data, b)
	if updateCRC {
		s.crc = UpdateCRC(s.crc, b)
	}
	return nil
}

// Len returns the number of unescaped bytes currently stored.
func (s *SymbolString) Len() int {
	return len(s.data)
}

// Bytes returns the unescaped byte contents. The returned slice aliases
// the SymbolString's internal storage and must not be modified.
func (s *SymbolString) Bytes() []byte {
	return s.data
}

// At returns the byte at position i.
func (s *SymbolString) At(i int) byte {
	return s.data[i]
}

// CRC returns the running CRC accumulated so far.
func (s *SymbolString) CRC() byte {
	return s.crc
}

// Finished reports whether no escape sequence is pending; it is false when
// the string ended mid-escape. Callers must check this before treating
// the buffer as a complete frame.
func (s *SymbolString) Finished() bool {
	return !s.escPending
}

// Reset empties the string and clears the running CRC.
func (s *SymbolString) Reset() {
	s.data = s.data[:0]
	s.crc = 0
	s.escPending = false
}
