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

import (
	"strings"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

// member pairs a field with how many new bytes it advances the cursor by:
// zero when it shares a byte with the field before it.
type member struct {
	field   DataField
	advance int
}

// FieldSet is an ordered composition of fields. Fields are appended with
// Add, which decides whether the new field starts a new byte or packs
// into the tail of the previous one.
type FieldSet struct {
	header
	members []member
	bitTail int // bits already consumed in the byte the next field may share
}

// NewFieldSet returns an empty, named FieldSet.
func NewFieldSet(name, comment string, part Part) *FieldSet {
	return &FieldSet{header: header{name: name, comment: comment, part: part}}
}

func (s *FieldSet) Length() int {
	total := 0
	for _, m := range s.members {
		total += m.advance
	}
	return total
}

// LengthFor sums the byte length of members applicable to part.
func (s *FieldSet) LengthFor(part Part) int {
	total := 0
	for _, m := range s.members {
		if m.field.Part().Matches(part) {
			total += m.advance
		}
	}
	return total
}

// Add appends field to the set. Sub-byte NumberFields pack into the tail
// of the previous field's byte until the combined bit offset would cross
// a byte boundary, per the CSV field model's adjacent-bitfield packing.
func (s *FieldSet) Add(field DataField) {
	advance := field.Length()
	nf, isNumber := field.(*NumberField)

	switch {
	case isNumber && s.bitTail > 0 && s.bitTail+nf.bitCount <= 8:
		// Packs into the byte the previous member deferred; that member's
		// advance moves here so the cursor steps only once per shared byte.
		nf.bitOffset = s.bitTail
		s.bitTail += nf.bitCount
		if s.bitTail == 8 {
			s.bitTail = 0
		}
		if len(s.members) > 0 {
			s.members[len(s.members)-1].advance = 0
		}
	case isNumber && nf.bitCount < 8:
		s.bitTail = nf.bitCount
	default:
		s.bitTail = 0
	}
	s.members = append(s.members, member{field: field, advance: advance})
}

// Fields returns the set's members in order.
func (s *FieldSet) Fields() []DataField {
	out := make([]DataField, len(s.members))
	for i, m := range s.members {
		out[i] = m.field
	}
	return out
}

// Read decodes every member in order, joining their text with sep.
func (s *FieldSet) Read(wantPart Part, buf []byte, offset int) (string, error) {
	var parts []string
	cur := offset
	for _, m := range s.members {
		value, err := m.field.Read(wantPart, buf, cur)
		if err != nil {
			return "", err
		}
		if m.field.Part().Matches(wantPart) {
			parts = append(parts, value)
		}
		cur += m.advance
	}
	return strings.Join(parts, ";"), nil
}

// Write encodes values (";"-separated, matching Read's output) into buf.
// The number of values must equal the number of members applicable to
// wantPart.
func (s *FieldSet) Write(wantPart Part, text string, buf []byte, offset int) error {
	values := strings.Split(text, ";")
	vi := 0
	cur := offset
	for _, m := range s.members {
		if m.field.Part().Matches(wantPart) {
			if vi >= len(values) {
				return ebus.ErrInvalidArg
			}
			if err := m.field.Write(wantPart, values[vi], buf, cur); err != nil {
				return err
			}
			vi++
		}
		cur += m.advance
	}
	return nil
}

// Derive returns a new FieldSet named name with the given part whose
// members are the same field values as s's; the members are not copied,
// so their own attributes are unchanged. An empty comment or unit is
// taken from s. There are no divisor or value-list overrides.
func (s *FieldSet) Derive(name, comment, unit string, part Part) *FieldSet {
	out := NewFieldSet(name, comment, part)
	for _, m := range s.members {
		out.members = append(out.members, member{field: m.field, advance: m.advance})
	}
	out.bitTail = s.bitTail
	if comment == "" {
		out.header.comment = s.header.comment
	}
	out.header.unit = unit
	if unit == "" {
		out.header.unit = s.header.unit
	}
	return out
}
