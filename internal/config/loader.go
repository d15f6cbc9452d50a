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

// Package config walks a directory of CSV files at startup and feeds them
// into a Templates set and a message dictionary: _types.csv first, then
// every other .csv file found, recursively.
package config

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sarnold/ebusd-go/internal/data"
	"github.com/sarnold/ebusd-go/internal/ebus"
	"github.com/sarnold/ebusd-go/internal/message"
)

const typesFileName = "_types.csv"

// LoadDir loads _types.csv first (if present at root) and then every
// other *.csv file under root, recursively, registering messages into
// messages as it goes.
func LoadDir(root string, templates *data.Templates, messages *message.Map) error {
	typesPath := filepath.Join(root, typesFileName)
	if f, err := os.Open(typesPath); err == nil {
		err := templates.LoadTypesCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("ebus: load %s: %w", typesPath, err)
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		if filepath.Base(path) == typesFileName {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := loadMessageCSV(f, templates, messages); err != nil {
			return fmt.Errorf("ebus: load %s: %w", path, err)
		}
		return nil
	})
}

// loadMessageCSV parses one message CSV, honoring "*"-prefixed default
// rows: a default row's type column names the message type its defaults
// apply to, and later rows of that type inherit any empty cell from it.
func loadMessageCSV(r io.Reader, templates *data.Templates, messages *message.Map) error {
	defaults := make(map[string][]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		cells := splitCSVLine(line)
		if len(cells) == 0 {
			continue
		}

		if strings.HasPrefix(cells[0], "*") {
			key := strings.TrimPrefix(cells[0], "*")
			defaults[key] = cells[1:]
			continue
		}

		applyDefaults(cells, defaults)
		if err := loadMessageRow(cells, templates, messages); err != nil {
			return fmt.Errorf("row %q: %w", line, err)
		}
	}
	return scanner.Err()
}

func splitCSVLine(line string) []string {
	raw := strings.Split(line, ",")
	cells := make([]string, len(raw))
	for i, c := range raw {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

// applyDefaults fills empty cells in row from the default row registered
// for row's exact type, falling back to the type with any trailing poll
// priority digit stripped (so "*r" also covers "r3").
func applyDefaults(row []string, defaults map[string][]string) {
	d, ok := defaults[row[0]]
	if !ok {
		d, ok = defaults[baseRowType(row[0])]
	}
	if !ok {
		return
	}
	for i, v := range d {
		idx := i + 1
		if idx >= len(row) {
			break
		}
		if row[idx] == "" && v != "" {
			row[idx] = v
		}
	}
}

func baseRowType(code string) string {
	return strings.TrimRight(code, "0123456789")
}

const fieldGroupWidth = 6
const headerWidth = 4 // type, class, name, comment

func loadMessageRow(row []string, templates *data.Templates, messages *message.Map) error {
	if len(row) < headerWidth+3 {
		return ebus.ErrInvalidArg
	}
	isSet, isPassive, priority, err := parseRowType(row[0])
	if err != nil {
		return err
	}
	class := row[1]
	name := row[2]

	srcAddr := byte(message.ActiveSourceSentinel)
	if isPassive {
		srcAddr = ebus.SYN
	}
	if b, present, err := parseHexByte(row[4]); err != nil {
		return err
	} else if present {
		srcAddr = b
	}
	dstAddr, _, err := parseHexByte(row[5])
	if err != nil {
		return err
	}
	id, err := hex.DecodeString(row[6])
	if err != nil {
		return fmt.Errorf("ebus: id %q: %w", row[6], ebus.ErrInvalidArg)
	}

	fields := data.NewFieldSet(name, row[3], data.PartAny)
	for i := headerWidth + 3; i < len(row); i += fieldGroupWidth {
		end := i + fieldGroupWidth
		if end > len(row) {
			end = len(row)
		}
		group := append([]string(nil), row[i:end]...)
		for len(group) < fieldGroupWidth {
			group = append(group, "")
		}
		fieldName, partStr, typeRef := group[0], group[1], group[2]
		if typeRef == "" {
			continue
		}
		field, err := templates.ParseFieldRow(typeRef, group[3], fieldName, group[5], group[4], data.ParsePart(partStr))
		if err != nil {
			return err
		}
		fields.Add(field)
	}

	msg, err := message.New(isSet, isPassive, class, name, srcAddr, dstAddr, id, fields, priority)
	if err != nil {
		return err
	}
	return messages.Add(msg)
}

// parseRowType decodes a message-type column per the CSV format: "r"
// (optionally suffixed with a poll priority digit) is an active read,
// "w" is an active write, a type ending in "w" other than bare "w" is a
// passive write, anything else is a passive read.
func parseRowType(code string) (isSet, isPassive bool, priority int, err error) {
	lower := strings.ToLower(code)
	switch {
	case lower == "w":
		return true, false, 0, nil
	case strings.HasPrefix(lower, "r"):
		rest := lower[1:]
		if rest == "" {
			return false, false, 0, nil
		}
		p, err := strconv.Atoi(rest)
		if err != nil {
			return false, false, 0, fmt.Errorf("ebus: poll priority %q: %w", rest, ebus.ErrInvalidArg)
		}
		return false, false, p, nil
	case strings.HasSuffix(lower, "w"):
		return true, true, 0, nil
	default:
		return false, true, 0, nil
	}
}

func parseHexByte(s string) (byte, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 1 {
		return 0, false, fmt.Errorf("ebus: address %q: %w", s, ebus.ErrInvalidArg)
	}
	return b[0], true, nil
}
