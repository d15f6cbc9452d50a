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

// Package command implements the textual client protocol: parsing
// whitespace-split lines into commands and a single serializing loop
// that executes them against the message dictionary and the bus
// handler.
package command

import "strings"

// Kind identifies which operation a parsed Command requests.
type Kind int

const (
	Invalid Kind = iota
	Get
	Set
	Cyc
	Hex
	Scan
	Log
	Raw
	Dump
	Help
	Stop
)

func (k Kind) String() string {
	switch k {
	case Get:
		return "get"
	case Set:
		return "set"
	case Cyc:
		return "cyc"
	case Hex:
		return "hex"
	case Scan:
		return "scan"
	case Log:
		return "log"
	case Raw:
		return "raw"
	case Dump:
		return "dump"
	case Help:
		return "help"
	case Stop:
		return "stop"
	default:
		return "invalid"
	}
}

var kinds = map[string]Kind{
	"get":  Get,
	"set":  Set,
	"cyc":  Cyc,
	"hex":  Hex,
	"scan": Scan,
	"log":  Log,
	"raw":  Raw,
	"dump": Dump,
	"help": Help,
	"stop": Stop,
	"?":    Help,
}

// Command is one parsed client request line: a Kind and its remaining
// whitespace-split arguments.
type Command struct {
	Kind Kind
	Args []string
}

// Parse splits line on whitespace and resolves the first token
// case-insensitively into a Kind; an empty or unrecognized first token
// yields Invalid with the original tokens preserved in Args.
func Parse(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{Kind: Invalid}
	}
	kind, ok := kinds[strings.ToLower(fields[0])]
	if !ok {
		return Command{Kind: Invalid, Args: fields}
	}
	var args []string
	if len(fields) > 1 {
		args = fields[1:]
	}
	return Command{Kind: kind, Args: args}
}
