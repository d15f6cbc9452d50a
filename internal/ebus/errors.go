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

// Package ebus implements the symbol-level wire format of the bus: address
// classification, the incremental CRC, and the escaped/unescaped symbol
// buffer used to build and parse master and slave frames.
package ebus

import "errors"

// Sentinel errors returned by bus I/O and framing code. Checked with
// errors.Is rather than compared against result codes.
var (
	ErrSyn           = errors.New("ebus: unexpected syn")
	ErrEOF           = errors.New("ebus: device eof")
	ErrTimeout       = errors.New("ebus: timeout")
	ErrNotFound      = errors.New("ebus: not found")
	ErrDuplicate     = errors.New("ebus: duplicate")
	ErrInvalidArg    = errors.New("ebus: invalid argument")
	ErrOutOfRange    = errors.New("ebus: value out of range")
	ErrCRC           = errors.New("ebus: crc error")
	ErrACK           = errors.New("ebus: ack error")
	ErrNAK           = errors.New("ebus: nak")
	ErrBusLost       = errors.New("ebus: bus lost")
	ErrSend          = errors.New("ebus: send error")
	ErrDevice        = errors.New("ebus: device error")
	ErrGenericIO     = errors.New("ebus: generic io error")
	ErrEscUnexpected = errors.New("ebus: unexpected escape sequence")
)
