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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBareType(t *testing.T) {
	tpl := NewTemplates()
	ft, err := tpl.Resolve("UCH")
	require.NoError(t, err)
	assert.Equal(t, BaseNumber, ft.Base)
	assert.Equal(t, 8, ft.MaxBits)
}

func TestResolveWithLengthOverride(t *testing.T) {
	tpl := NewTemplates()
	ft, err := tpl.Resolve("STR:5")
	require.NoError(t, err)
	assert.Equal(t, 40, ft.MaxBits)
}

func TestResolveUnknownType(t *testing.T) {
	tpl := NewTemplates()
	_, err := tpl.Resolve("BOGUS")
	assert.Error(t, err)
}

func TestLoadTypesCSVRegistersTemplate(t *testing.T) {
	tpl := NewTemplates()
	csvData := "temp1,D2B,,-30,50,\ntemp2,UCH,10,,,\n"
	require.NoError(t, tpl.LoadTypesCSV(strings.NewReader(csvData)))

	ft, ok := tpl.Lookup("temp1")
	require.True(t, ok)
	assert.Equal(t, BaseNumber, ft.Base)
	assert.EqualValues(t, -30, ft.Min)
	assert.EqualValues(t, 50, ft.Max)

	ft2, ok := tpl.Lookup("temp2")
	require.True(t, ok)
	assert.Equal(t, 10, ft2.Divisor)
}

func TestLoadTypesCSVSkipsComments(t *testing.T) {
	tpl := NewTemplates()
	csvData := "# a comment\nfoo,UCH,,,,\n"
	require.NoError(t, tpl.LoadTypesCSV(strings.NewReader(csvData)))
	_, ok := tpl.Lookup("foo")
	assert.True(t, ok)
}

func TestParseFieldRowNumber(t *testing.T) {
	tpl := NewTemplates()
	field, err := tpl.ParseFieldRow("D2B", "", "temp", "outside temp", "C", PartAny)
	require.NoError(t, err)
	assert.Equal(t, "temp", field.Name())
	assert.Equal(t, 2, field.Length())
}

func TestParseFieldRowValueList(t *testing.T) {
	tpl := NewTemplates()
	field, err := tpl.ParseFieldRow("UCH", "0=off;1=on", "state", "", "", PartAny)
	require.NoError(t, err)

	buf := make([]byte, 1)
	require.NoError(t, field.Write(PartAny, "on", buf, 0))
	assert.Equal(t, byte(1), buf[0])

	text, err := field.Read(PartAny, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "on", text)
}

func TestParseFieldRowDayDefaultValues(t *testing.T) {
	tpl := NewTemplates()
	field, err := tpl.ParseFieldRow("DAY", "", "weekday", "", "", PartAny)
	require.NoError(t, err)

	buf := []byte{2}
	text, err := field.Read(PartAny, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "Wed", text)
}
