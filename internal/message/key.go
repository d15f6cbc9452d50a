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

import "github.com/sarnold/ebusd-go/internal/ebus"

// passiveKey packs (idLen-2, srcMasterNumber, dstAddr, id bytes) into a
// single 64-bit value used as the passive dictionary's index:
//
//	bits 61-63: idLen-2
//	bits 56-60: srcMasterNumber (or ActiveSourceSentinel to wildcard)
//	bits 48-55: dstAddr
//	bits  0-47: id bytes, most significant first, packed against the
//	            top of the remaining space
func passiveKey(srcMasterNumber int, dstAddr byte, id []byte) uint64 {
	idLen := len(id)
	key := uint64(idLen-2)<<61 | uint64(srcMasterNumber)<<56 | uint64(dstAddr)<<48

	shift := 48
	for _, b := range id {
		shift -= 8
		key |= uint64(b) << uint(shift)
	}
	return key
}

// wildcardSourceKey replaces the srcMasterNumber field of a passive key
// with ActiveSourceSentinel, turning an exact-source lookup into a
// wildcard-source one.
func wildcardSourceKey(key uint64) uint64 {
	const srcMask = uint64(0x1F) << 56
	return key&^srcMask | uint64(ActiveSourceSentinel)<<56
}

// keyFor computes msg's passive dictionary key. srcAddr must already be
// a concrete master address (not the active-source sentinel) for this to
// be meaningful; passive messages with a wildcarded source use ebus.SYN.
func keyFor(srcAddr, dstAddr byte, id []byte) uint64 {
	masterNumber := ActiveSourceSentinel
	if srcAddr != ebus.SYN {
		masterNumber = ebus.MasterNumber(srcAddr)
		if masterNumber < 0 {
			masterNumber = ActiveSourceSentinel
		}
	}
	return passiveKey(masterNumber, dstAddr, id)
}
