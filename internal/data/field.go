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

package data

// DataField is the sum type for the field hierarchy: one of StringField,
// NumberField, ValueListField or FieldSet, each carrying a shared header.
type DataField interface {
	Name() string
	Comment() string
	Unit() string
	Part() Part

	// Length is the number of bytes this field occupies in its own frame
	// position, including bytes shared with a preceding sub-byte field.
	Length() int

	// Read decodes the field out of buf starting at offset. If the
	// field's part doesn't match wantPart, it succeeds with an empty
	// value and does not error.
	Read(wantPart Part, buf []byte, offset int) (value string, err error)

	// Write encodes text into buf starting at offset, for a field
	// belonging to wantPart.
	Write(wantPart Part, text string, buf []byte, offset int) error
}

// header holds the attributes common to every field variant.
type header struct {
	name    string
	comment string
	unit    string
	part    Part
}

func (h header) Name() string    { return h.name }
func (h header) Comment() string { return h.comment }
func (h header) Unit() string    { return h.unit }
func (h header) Part() Part      { return h.part }
