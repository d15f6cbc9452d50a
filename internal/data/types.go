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

// Package data implements the typed field model: field type descriptors,
// the DataField hierarchy (string/number/value-list/set), and the CSV
// template loader that builds them.
package data

// Part identifies which half of a request/response a field belongs to.
type Part int

const (
	PartAny Part = iota
	PartMaster
	PartSlave
)

// ParsePart maps a CSV part column ("m", "s", "") to a Part.
func ParsePart(s string) Part {
	switch s {
	case "m":
		return PartMaster
	case "s":
		return PartSlave
	default:
		return PartAny
	}
}

// Matches reports whether a field belonging to fieldPart should be visited
// when reading/writing side wantPart. PartAny fields always match.
func (fieldPart Part) Matches(wantPart Part) bool {
	return fieldPart == PartAny || wantPart == PartAny || fieldPart == wantPart
}

// BaseType is the underlying representation of a field.
type BaseType int

const (
	BaseString BaseType = iota
	BaseHexString
	BaseDate
	BaseTime
	BaseNumber
)

// Flags are the per-type behavior bits carried by a FieldType.
type Flags uint8

const (
	FlagAdj Flags = 1 << iota // adjustable length
	FlagBCD                   // binary-coded decimal
	FlagRev                   // reversed (big-endian) byte order
	FlagSig                   // signed
	FlagLst                   // value list allowed
	FlagDay                   // day-of-week list by default
	FlagIgn                   // ignore on decode
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// FieldType is the immutable descriptor a template or inline type
// reference resolves to.
type FieldType struct {
	Name        string
	MaxBits     int
	Base        BaseType
	Flags       Flags
	Replacement int64
	Min, Max    int64
	Divisor     int
	Precision   int
	FirstBit    int
}

// sentinel is the textual null value a replacement raw value decodes to.
const sentinel = "-"
