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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

// StringField consumes a fixed number of bytes and formats them as
// printable text, a hex digit string, a date, or a time.
type StringField struct {
	header
	length int
	base   BaseType
	bcd    bool // time fields may be BCD-packed HHMMSS
}

// NewStringField constructs a StringField of the given base kind.
func NewStringField(name, comment, unit string, part Part, length int, base BaseType, bcd bool) *StringField {
	return &StringField{
		header: header{name: name, comment: comment, unit: unit, part: part},
		length: length,
		base:   base,
		bcd:    bcd,
	}
}

func (f *StringField) Length() int { return f.length }

func (f *StringField) Read(wantPart Part, buf []byte, offset int) (string, error) {
	if !f.part.Matches(wantPart) {
		return "", nil
	}
	if offset+f.length > len(buf) {
		return "", ebus.ErrOutOfRange
	}
	raw := buf[offset : offset+f.length]

	switch f.base {
	case BaseHexString:
		return strings.ToUpper(hex.EncodeToString(raw)), nil
	case BaseDate:
		return f.readDate(raw)
	case BaseTime:
		return f.readTime(raw)
	default:
		return f.readText(raw), nil
	}
}

func (f *StringField) readText(raw []byte) string {
	b := make([]byte, 0, len(raw))
	for _, c := range raw {
		if c == 0x00 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}

func (f *StringField) readDate(raw []byte) (string, error) {
	if len(raw) != 3 {
		return "", ebus.ErrOutOfRange
	}
	day, month, year := raw[0], raw[1], raw[2]
	if f.bcd {
		var err error
		day, err = bcdToBin(day)
		if err != nil {
			return "", err
		}
		month, err = bcdToBin(month)
		if err != nil {
			return "", err
		}
		year, err = bcdToBin(year)
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%02d.%02d.%04d", day, month, 2000+int(year)), nil
}

func (f *StringField) readTime(raw []byte) (string, error) {
	switch len(raw) {
	case 1:
		// minutes-since-midnight divided by ten, per the short-time encoding.
		minutes := int(raw[0]) * 10
		return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), nil
	case 2, 3:
		hh, mm := raw[0], raw[1]
		if f.bcd {
			var err error
			hh, err = bcdToBin(hh)
			if err != nil {
				return "", err
			}
			mm, err = bcdToBin(mm)
			if err != nil {
				return "", err
			}
		}
		if len(raw) == 3 {
			ss := raw[2]
			if f.bcd {
				var err error
				ss, err = bcdToBin(ss)
				if err != nil {
					return "", err
				}
			}
			return fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss), nil
		}
		return fmt.Sprintf("%02d:%02d", hh, mm), nil
	default:
		return "", ebus.ErrOutOfRange
	}
}

func (f *StringField) Write(wantPart Part, text string, buf []byte, offset int) error {
	if !f.part.Matches(wantPart) {
		return nil
	}
	if offset+f.length > len(buf) {
		return ebus.ErrOutOfRange
	}

	switch f.base {
	case BaseHexString:
		raw, err := hex.DecodeString(text)
		if err != nil || len(raw) != f.length {
			return ebus.ErrInvalidArg
		}
		copy(buf[offset:offset+f.length], raw)
		return nil
	default:
		dst := buf[offset : offset+f.length]
		for i := range dst {
			dst[i] = 0x00
		}
		copy(dst, text)
		return nil
	}
}

func bcdToBin(b byte) (byte, error) {
	hi, lo := b>>4, b&0x0F
	if hi > 9 || lo > 9 {
		return 0, ebus.ErrOutOfRange
	}
	return hi*10 + lo, nil
}

func binToBCD(v byte) (byte, error) {
	if v > 99 {
		return 0, ebus.ErrOutOfRange
	}
	return (v/10)<<4 | v%10, nil
}
