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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

// baseFieldTypes are the built-in type names every CSV row can reference
// without a types-CSV template.
var baseFieldTypes = map[string]FieldType{
	"STR":  {Name: "STR", MaxBits: 8, Base: BaseString},
	"HEX":  {Name: "HEX", MaxBits: 8, Base: BaseHexString},
	"BDA":  {Name: "BDA", MaxBits: 24, Base: BaseDate, Flags: FlagBCD},
	"DAT":  {Name: "DAT", MaxBits: 24, Base: BaseDate},
	"BTI":  {Name: "BTI", MaxBits: 24, Base: BaseTime, Flags: FlagBCD},
	"TIM":  {Name: "TIM", MaxBits: 16, Base: BaseTime},
	"TTM":  {Name: "TTM", MaxBits: 8, Base: BaseTime},
	"BCD":  {Name: "BCD", MaxBits: 8, Base: BaseNumber, Flags: FlagBCD, Max: 99},
	"BCD2": {Name: "BCD2", MaxBits: 16, Base: BaseNumber, Flags: FlagBCD, Max: 9999},
	"UCH":  {Name: "UCH", MaxBits: 8, Base: BaseNumber, Max: 0xFE, Replacement: 0xFF},
	"SCH":  {Name: "SCH", MaxBits: 8, Base: BaseNumber, Flags: FlagSig, Min: -127, Max: 127, Replacement: -128},
	"UIN":  {Name: "UIN", MaxBits: 16, Base: BaseNumber, Max: 0xFFFE, Replacement: 0xFFFF},
	"UIR":  {Name: "UIR", MaxBits: 16, Base: BaseNumber, Flags: FlagRev, Max: 0xFFFE, Replacement: 0xFFFF},
	"SIN":  {Name: "SIN", MaxBits: 16, Base: BaseNumber, Flags: FlagSig, Min: -32767, Max: 32767, Replacement: -32768},
	"SIR":  {Name: "SIR", MaxBits: 16, Base: BaseNumber, Flags: FlagSig | FlagRev, Min: -32767, Max: 32767, Replacement: -32768},
	"ULG":  {Name: "ULG", MaxBits: 32, Base: BaseNumber},
	"SLG":  {Name: "SLG", MaxBits: 32, Base: BaseNumber, Flags: FlagSig},
	"D1B":  {Name: "D1B", MaxBits: 8, Base: BaseNumber, Flags: FlagSig, Min: -127, Max: 127, Replacement: -128},
	"D1C":  {Name: "D1C", MaxBits: 8, Base: BaseNumber, Divisor: 2, Max: 254},
	"D2B":  {Name: "D2B", MaxBits: 16, Base: BaseNumber, Flags: FlagSig, Divisor: 256},
	"D2C":  {Name: "D2C", MaxBits: 16, Base: BaseNumber, Flags: FlagSig, Divisor: 16},
	"FLT":  {Name: "FLT", MaxBits: 16, Base: BaseNumber, Flags: FlagSig, Divisor: 1000},
	"BI0":  {Name: "BI0", MaxBits: 1, Base: BaseNumber},
	"DAY":  {Name: "DAY", MaxBits: 8, Base: BaseNumber, Flags: FlagDay, Max: 6, Replacement: 7},
}

// Templates holds named field-type templates loaded from a types CSV,
// keyed case-insensitively by name, layered on top of baseFieldTypes.
type Templates struct {
	byName map[string]FieldType
}

// NewTemplates returns an empty template set seeded with the built-ins.
func NewTemplates() *Templates {
	t := &Templates{byName: make(map[string]FieldType, len(baseFieldTypes))}
	for name, ft := range baseFieldTypes {
		t.byName[name] = ft
	}
	return t
}

// Lookup resolves a bare type name to its FieldType, checking templates
// before the built-in table.
func (t *Templates) Lookup(name string) (FieldType, bool) {
	ft, ok := t.byName[strings.ToUpper(name)]
	return ft, ok
}

// Resolve parses a "NAME" or "NAME:length" type reference, applying the
// length override to MaxBits when length is a byte count for a string-like
// base, or a bit count for BI-prefixed bit types.
func (t *Templates) Resolve(ref string) (FieldType, error) {
	name, lengthStr, hasLength := strings.Cut(ref, ":")
	ft, ok := t.Lookup(name)
	if !ok {
		return FieldType{}, fmt.Errorf("ebus: unknown field type %q: %w", name, ebus.ErrNotFound)
	}
	if !hasLength {
		return ft, nil
	}
	length, err := strconv.Atoi(lengthStr)
	if err != nil {
		return FieldType{}, fmt.Errorf("ebus: bad length %q: %w", lengthStr, ebus.ErrInvalidArg)
	}
	switch ft.Base {
	case BaseString, BaseHexString:
		ft.MaxBits = length * 8
	default:
		ft.MaxBits = length
	}
	return ft, nil
}

// AddTemplate registers or overrides a named template, as produced by a
// row of a types CSV.
func (t *Templates) AddTemplate(name string, ft FieldType) {
	ft.Name = strings.ToUpper(name)
	t.byName[ft.Name] = ft
}

// LoadTypesCSV reads a types CSV (conventionally named "_types.csv") and
// registers every row as a template, resolved against a base type named in
// its own "type" column, then layered with an optional length, divisor,
// min/max and replacement override.
//
// Row layout: name,type[:length],divisor,min,max,replacement,comment
// Rows beginning with "#" are comments; blank rows are skipped.
func (t *Templates) LoadTypesCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if err := t.loadTypeRow(row); err != nil {
			return fmt.Errorf("ebus: types row %q: %w", row[0], err)
		}
	}
}

func (t *Templates) loadTypeRow(row []string) error {
	name := strings.TrimSpace(row[0])
	if len(row) < 2 {
		return ebus.ErrInvalidArg
	}
	ft, err := t.Resolve(strings.TrimSpace(row[1]))
	if err != nil {
		return err
	}
	if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
		div, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return ebus.ErrInvalidArg
		}
		ft.Divisor = div
	}
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		min, err := strconv.ParseInt(strings.TrimSpace(row[3]), 10, 64)
		if err != nil {
			return ebus.ErrInvalidArg
		}
		ft.Min = min
	}
	if len(row) > 4 && strings.TrimSpace(row[4]) != "" {
		max, err := strconv.ParseInt(strings.TrimSpace(row[4]), 10, 64)
		if err != nil {
			return ebus.ErrInvalidArg
		}
		ft.Max = max
	}
	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		replace, err := strconv.ParseInt(strings.TrimSpace(row[5]), 10, 64)
		if err != nil {
			return ebus.ErrInvalidArg
		}
		ft.Replacement = replace
	}
	t.AddTemplate(name, ft)
	return nil
}

// NewField constructs a concrete DataField from a resolved FieldType and
// the field-level attributes from a message CSV row.
func (t *Templates) NewField(ft FieldType, name, comment, unit string, part Part, values map[int64]string) (DataField, error) {
	length := ft.MaxBits / 8
	if length == 0 {
		length = 1
	}

	switch ft.Base {
	case BaseString, BaseHexString:
		return NewStringField(name, comment, unit, part, length, ft.Base, ft.Flags.Has(FlagBCD)), nil
	case BaseDate, BaseTime:
		return NewStringField(name, comment, unit, part, length, ft.Base, ft.Flags.Has(FlagBCD)), nil
	case BaseNumber:
		bitCount := ft.MaxBits
		if bitCount == 0 || bitCount > length*8 {
			bitCount = length * 8
		}
		num := NewNumberField(name, comment, unit, part, length, ft.FirstBit, bitCount, ft.Flags, ft.Divisor, ft.Min, ft.Max, ft.Replacement)
		if values != nil {
			return NewValueListField(num, values), nil
		}
		if ft.Flags.Has(FlagDay) {
			return NewValueListField(num, DefaultDayOfWeekValues()), nil
		}
		return num, nil
	default:
		return nil, ebus.ErrInvalidArg
	}
}

// ParseFieldRow builds a DataField from a message CSV row's type/values
// column pair. typeRef is the "NAME[:length]" column; valuesOrDivisor is
// either a divisor, blank, or a "v=t;..." value list; it is taken as a value
// list when the resolved type allows one (FlagLst) or it contains "=". A
// divisor combines multiplicatively with the type's own divisor; combining
// a divisor with a multiplier (negative value) is rejected.
func (t *Templates) ParseFieldRow(typeRef, valuesOrDivisor, name, comment, unit string, part Part) (DataField, error) {
	ft, err := t.Resolve(typeRef)
	if err != nil {
		return nil, err
	}

	var values map[int64]string
	trimmed := strings.TrimSpace(valuesOrDivisor)
	switch {
	case trimmed == "":
		// no override
	case ft.Flags.Has(FlagLst) || strings.Contains(trimmed, "="):
		values, err = ParseValueList(trimmed)
		if err != nil {
			return nil, err
		}
	default:
		div, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, ebus.ErrInvalidArg
		}
		switch {
		case ft.Divisor >= -1 && ft.Divisor <= 1:
			ft.Divisor = div
		case div >= -1 && div <= 1:
			// no further scaling
		case (ft.Divisor < 0) != (div < 0):
			return nil, ebus.ErrInvalidArg
		case div < 0:
			ft.Divisor = -ft.Divisor * div
		default:
			ft.Divisor *= div
		}
	}

	return t.NewField(ft, name, comment, unit, part, values)
}
