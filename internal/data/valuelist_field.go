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
	"strconv"
	"strings"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

// ValueListField is a numeric field with an enumerated raw-to-label
// mapping. Reading an unmapped raw value that isn't the replacement
// sentinel is an error: the list is meant to be exhaustive.
type ValueListField struct {
	num     *NumberField
	values  map[int64]string
	reverse map[string]int64
}

// NewValueListField wraps a NumberField with a raw-value-to-label map.
func NewValueListField(num *NumberField, values map[int64]string) *ValueListField {
	reverse := make(map[string]int64, len(values))
	for raw, label := range values {
		reverse[label] = raw
	}
	return &ValueListField{num: num, values: values, reverse: reverse}
}

func (f *ValueListField) Name() string    { return f.num.Name() }
func (f *ValueListField) Comment() string { return f.num.Comment() }
func (f *ValueListField) Unit() string    { return f.num.Unit() }
func (f *ValueListField) Part() Part      { return f.num.Part() }
func (f *ValueListField) Length() int     { return f.num.Length() }

func (f *ValueListField) Read(wantPart Part, buf []byte, offset int) (string, error) {
	if !f.num.Part().Matches(wantPart) {
		return "", nil
	}
	if offset+f.num.length > len(buf) {
		return "", ebus.ErrOutOfRange
	}

	raw := f.num.assemble(buf, offset)
	field := int64((raw >> uint(f.num.bitOffset)) & f.num.mask())

	if field == f.num.replace {
		return sentinel, nil
	}
	if label, ok := f.values[field]; ok {
		return label, nil
	}
	return "", ebus.ErrNotFound
}

func (f *ValueListField) Write(wantPart Part, text string, buf []byte, offset int) error {
	if !f.num.Part().Matches(wantPart) {
		return nil
	}

	var value int64
	trimmed := strings.TrimSpace(text)
	if trimmed == sentinel {
		value = f.num.replace
	} else if raw, ok := f.reverse[trimmed]; ok {
		value = raw
	} else {
		return ebus.ErrNotFound
	}

	raw := f.num.assemble(buf, offset)
	raw &^= f.num.mask() << uint(f.num.bitOffset)
	raw |= (uint32(value) & f.num.mask()) << uint(f.num.bitOffset)
	f.num.disassemble(raw, buf, offset)
	return nil
}

// ParseValueList parses a "v1=t1;v2=t2;..." column into a raw→label map.
func ParseValueList(s string) (map[int64]string, error) {
	values := map[int64]string{}
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, ebus.ErrInvalidArg
		}
		raw, err := strconv.ParseInt(strings.TrimSpace(kv[0]), 10, 64)
		if err != nil {
			return nil, ebus.ErrInvalidArg
		}
		values[raw] = strings.TrimSpace(kv[1])
	}
	return values, nil
}

// DefaultDayOfWeekValues is the default value list for DAY-flagged types.
func DefaultDayOfWeekValues() map[int64]string {
	return map[int64]string{
		0: "Mon", 1: "Tue", 2: "Wed", 3: "Thu", 4: "Fri", 5: "Sat", 6: "Sun",
	}
}
