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

// Symbol is a single byte on the wire.
type Symbol = byte

// Reserved symbols.
const (
	SYN       Symbol = 0xAA
	ESC       Symbol = 0xA9
	ACK       Symbol = 0x00
	NAK       Symbol = 0xFF
	BROADCAST Symbol = 0xFE
)

// escape replacement pairs: ESC (0xA9) followed by 0x00 stands for ESC,
// ESC followed by 0x01 stands for SYN.
const (
	escEsc = byte(0x00)
	escSyn = byte(0x01)
)

// nibbleIsMaster reports whether a nibble (0-F) may appear in either
// position of a master address.
func nibbleIsMaster(n byte) bool {
	switch n {
	case 0x0, 0x1, 0x3, 0x7, 0xF:
		return true
	default:
		return false
	}
}

// IsMaster reports whether addr is a valid master address: both nibbles
// must be members of {0, 1, 3, 7, F}.
func IsMaster(addr Symbol) bool {
	return nibbleIsMaster(addr>>4) && nibbleIsMaster(addr&0x0F)
}

// masterNumbers maps every address to its master ordinal (0..24, in
// ascending address order), or -1 for an address that is not a master.
var masterNumbers = buildMasterNumbers()

func buildMasterNumbers() [256]int {
	var table [256]int
	for i := range table {
		table[i] = -1
	}
	n := 0
	for hi := 0; hi < 16; hi++ {
		if !nibbleIsMaster(byte(hi)) {
			continue
		}
		for lo := 0; lo < 16; lo++ {
			if !nibbleIsMaster(byte(lo)) {
				continue
			}
			table[hi<<4|lo] = n
			n++
		}
	}
	return table
}

// MasterNumber returns the ordinal (0..24) of a master address, or -1 if
// addr is not a valid master address.
func MasterNumber(addr Symbol) int {
	return masterNumbers[addr]
}

// IsValidAddress reports whether addr may appear as a source or
// destination address on the bus: any byte except SYN, ESC and NAK.
func IsValidAddress(addr Symbol) bool {
	return addr != SYN && addr != ESC && addr != NAK
}
