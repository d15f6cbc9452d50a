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
	"math"
	"strconv"
	"strings"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

// NumberField consumes length bytes covering bitCount bits starting at
// bitOffset, decodes per flags (BCD, signed, reversed byte order), and
// applies a combined divisor when formatting to decimal text.
type NumberField struct {
	header
	length    int
	bitOffset int
	bitCount  int
	flags     Flags
	divisor   int
	min, max  int64
	replace   int64
}

// NewNumberField constructs a NumberField. divisor may be negative,
// meaning a multiplier of abs(divisor).
func NewNumberField(name, comment, unit string, part Part, length, bitOffset, bitCount int, flags Flags, divisor int, min, max, replace int64) *NumberField {
	return &NumberField{
		header:    header{name: name, comment: comment, unit: unit, part: part},
		length:    length,
		bitOffset: bitOffset,
		bitCount:  bitCount,
		flags:     flags,
		divisor:   divisor,
		min:       min,
		max:       max,
		replace:   replace,
	}
}

func (f *NumberField) Length() int { return f.length }

func (f *NumberField) mask() uint32 {
	return uint32(1)<<uint(f.bitCount) - 1
}

func (f *NumberField) assemble(buf []byte, offset int) uint32 {
	var raw uint32
	for i := 0; i < f.length; i++ {
		b := buf[offset+i]
		if f.flags.Has(FlagRev) {
			raw |= uint32(b) << uint((f.length-1-i)*8)
		} else {
			raw |= uint32(b) << uint(i*8)
		}
	}
	return raw
}

func (f *NumberField) disassemble(raw uint32, buf []byte, offset int) {
	for i := 0; i < f.length; i++ {
		var b byte
		if f.flags.Has(FlagRev) {
			b = byte(raw >> uint((f.length-1-i)*8))
		} else {
			b = byte(raw >> uint(i*8))
		}
		buf[offset+i] = b
	}
}

func (f *NumberField) Read(wantPart Part, buf []byte, offset int) (string, error) {
	if !f.part.Matches(wantPart) {
		return "", nil
	}
	if offset+f.length > len(buf) {
		return "", ebus.ErrOutOfRange
	}

	raw := f.assemble(buf, offset)
	field := (raw >> uint(f.bitOffset)) & f.mask()

	var value int64
	if f.flags.Has(FlagBCD) {
		v, err := f.decodeBCD(field)
		if err != nil {
			return "", err
		}
		value = v
	} else if f.flags.Has(FlagSig) {
		value = signExtend(field, f.bitCount)
	} else {
		value = int64(field)
	}

	if value == f.replace {
		return sentinel, nil
	}

	return f.format(value), nil
}

func (f *NumberField) decodeBCD(field uint32) (int64, error) {
	var value int64
	var scale int64 = 1
	remaining := field
	for i := 0; i < f.length; i++ {
		digit := byte(remaining & 0xFF)
		remaining >>= 8
		bin, err := bcdToBin(digit)
		if err != nil {
			return 0, ebus.ErrOutOfRange
		}
		value += int64(bin) * scale
		scale *= 100
	}
	return value, nil
}

func (f *NumberField) encodeBCD(value int64) (uint32, error) {
	var field uint32
	for i := 0; i < f.length; i++ {
		digits := byte(value % 100)
		value /= 100
		b, err := binToBCD(digits)
		if err != nil {
			return 0, err
		}
		field |= uint32(b) << uint(i*8)
	}
	return field, nil
}

func signExtend(field uint32, bitCount int) int64 {
	signBit := uint32(1) << uint(bitCount-1)
	if field&signBit == 0 {
		return int64(field)
	}
	return int64(field) - int64(uint32(1)<<uint(bitCount))
}

func (f *NumberField) precision() int {
	d := f.divisor
	if d < 0 {
		d = -d
	}
	if d <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log10(float64(d))))
}

func (f *NumberField) format(value int64) string {
	switch {
	case f.divisor > 1:
		result := float64(value) / float64(f.divisor)
		return strconv.FormatFloat(result, 'f', f.precision(), 64)
	case f.divisor < -1:
		result := float64(value) * float64(-f.divisor)
		return strconv.FormatFloat(result, 'f', f.precision(), 64)
	default:
		return strconv.FormatInt(value, 10)
	}
}

func (f *NumberField) Write(wantPart Part, text string, buf []byte, offset int) error {
	if !f.part.Matches(wantPart) {
		return nil
	}
	if offset+f.length > len(buf) {
		return ebus.ErrOutOfRange
	}

	var value int64
	if strings.TrimSpace(text) == sentinel {
		value = f.replace
	} else {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return ebus.ErrInvalidArg
		}
		switch {
		case f.divisor > 1:
			value = int64(math.Round(parsed * float64(f.divisor)))
		case f.divisor < -1:
			value = int64(math.Round(parsed / float64(-f.divisor)))
		default:
			value = int64(math.Round(parsed))
		}
		if (f.min != 0 || f.max != 0) && (value < f.min || value > f.max) {
			return ebus.ErrOutOfRange
		}
	}

	var field uint32
	if f.flags.Has(FlagBCD) {
		enc, err := f.encodeBCD(value)
		if err != nil {
			return err
		}
		field = enc
	} else {
		field = uint32(value) & f.mask()
	}

	raw := f.assemble(buf, offset)
	raw &^= f.mask() << uint(f.bitOffset)
	raw |= (field & f.mask()) << uint(f.bitOffset)
	f.disassemble(raw, buf, offset)
	return nil
}
