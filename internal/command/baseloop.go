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

package command

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sarnold/ebusd-go/internal/bus"
	"github.com/sarnold/ebusd-go/internal/data"
	"github.com/sarnold/ebusd-go/internal/dump"
	"github.com/sarnold/ebusd-go/internal/ebus"
	"github.com/sarnold/ebusd-go/internal/message"
	"github.com/sarnold/ebusd-go/internal/transport"
)

// identification service: PB/SB a scan probe sends to ask a slave to
// name itself.
const (
	scanPB = 0x07
	scanSB = 0x04

	defaultFailedSendRetries = 2
	defaultBusLostRetries    = 2
)

// BaseLoop is the single serializing consumer: it pulls one NetMessage
// at a time off Requests, dispatches it through Parse against the
// dictionary and the bus handler, and writes back exactly one result
// line before taking the next request.
type BaseLoop struct {
	Requests <-chan *transport.NetMessage
	Dict     *message.Map
	Handler  *bus.Handler
	Log      *zap.Logger
	Level    zap.AtomicLevel
	Dump     *dump.Writer

	mu          sync.Mutex
	rawEnabled  bool
	dumpEnabled bool
	scanResults map[byte]string
}

// NewBaseLoop wires a BaseLoop to its request channel, dictionary and
// bus handler. level is the AtomicLevel backing "log level" commands.
func NewBaseLoop(requests <-chan *transport.NetMessage, dict *message.Map, handler *bus.Handler, log *zap.Logger, level zap.AtomicLevel) *BaseLoop {
	return &BaseLoop{
		Requests:    requests,
		Dict:        dict,
		Handler:     handler,
		Log:         log,
		Level:       level,
		scanResults: make(map[byte]string),
	}
}

// Run drains Requests until ctx is cancelled or a client sends "stop".
func (b *BaseLoop) Run(ctx context.Context) {
	for {
		select {
		case msg, ok := <-b.Requests:
			if !ok {
				return
			}
			reply, stop := b.dispatch(ctx, msg.Data)
			msg.Result <- reply
			if stop {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (b *BaseLoop) dispatch(ctx context.Context, line string) (reply string, stop bool) {
	cmd := Parse(line)
	switch cmd.Kind {
	case Get:
		return b.handleRead(ctx, cmd.Args, false), false
	case Cyc:
		return b.handleRead(ctx, cmd.Args, true), false
	case Set:
		return b.handleSet(ctx, cmd.Args), false
	case Hex:
		return b.handleHex(ctx, cmd.Args), false
	case Scan:
		return b.handleScan(ctx, cmd.Args), false
	case Log:
		return b.handleLog(cmd.Args), false
	case Raw:
		return b.handleRaw(cmd.Args), false
	case Dump:
		return b.handleDump(cmd.Args), false
	case Help:
		return helpText, false
	case Stop:
		return "done", true
	default:
		return "ERR: invalid command", false
	}
}

const helpText = `commands: get, set, cyc, hex, scan, log, raw, dump, stop, help`

// splitClassName resolves the leading one or two tokens of a get/set/cyc
// command into (class, name), matching the dictionary's class-optional
// lookup: one token is a bare name, two are class then name.
func splitClassName(args []string) (class, name string, rest []string, err error) {
	if len(args) == 0 {
		return "", "", nil, ebus.ErrInvalidArg
	}
	if len(args) == 1 {
		return "", args[0], nil, nil
	}
	return args[0], args[1], args[2:], nil
}

func (b *BaseLoop) handleRead(ctx context.Context, args []string, cyclic bool) string {
	class, name, _, err := splitClassName(args)
	if err != nil {
		return "ERR: usage: get|cyc [class] name"
	}
	msg, err := b.Dict.Find(class, name, false)
	if err != nil {
		return "ERR: " + err.Error()
	}

	if cyclic || msg.PollPriority > 0 {
		value, at := msg.LastValue()
		if at.IsZero() {
			return "ERR: no data yet"
		}
		return value
	}

	frame, err := b.buildMasterFrame(msg, "")
	if err != nil {
		return "ERR: " + err.Error()
	}
	req := bus.NewRequest(frame)
	if err := b.Handler.SendAndWait(ctx, req, defaultFailedSendRetries, defaultBusLostRetries); err != nil {
		return "ERR: " + err.Error()
	}
	b.logRaw(frame, req.Slave)

	text, err := msg.Fields.Read(data.PartSlave, req.Slave, 0)
	if err != nil {
		return "ERR: " + err.Error()
	}
	msg.SetLastValue(text, time.Now())
	return text
}

func (b *BaseLoop) handleSet(ctx context.Context, args []string) string {
	class, name, rest, err := splitClassName(args)
	if err != nil || len(rest) == 0 {
		return "ERR: usage: set [class] name value"
	}
	value := strings.Join(rest, " ")

	msg, err := b.Dict.Find(class, name, true)
	if err != nil {
		return "ERR: " + err.Error()
	}

	frame, err := b.buildMasterFrame(msg, value)
	if err != nil {
		return "ERR: " + err.Error()
	}
	req := bus.NewRequest(frame)
	if err := b.Handler.SendAndWait(ctx, req, defaultFailedSendRetries, defaultBusLostRetries); err != nil {
		return "ERR: " + err.Error()
	}
	b.logRaw(frame, req.Slave)

	if msg.DstAddr == ebus.BROADCAST || ebus.IsMaster(msg.DstAddr) {
		return "done"
	}
	msg.SetLastValue(value, time.Now())
	return "done"
}

// buildMasterFrame lays out a message's data area: any id bytes beyond
// PB/SB, then the master-part fields encoded from value (value is
// ignored, and no fields are written, for a read with no master-part
// payload).
func (b *BaseLoop) buildMasterFrame(msg *message.Message, value string) ([]byte, error) {
	extra := msg.ID[2:]
	masterFieldLen := msg.Fields.LengthFor(data.PartMaster)
	payload := make([]byte, len(extra)+masterFieldLen)
	copy(payload, extra)
	if masterFieldLen > 0 {
		if err := msg.Fields.Write(data.PartMaster, value, payload, len(extra)); err != nil {
			return nil, err
		}
	}
	if len(payload) > 16 {
		return nil, ebus.ErrOutOfRange
	}

	frame := make([]byte, 0, 5+len(payload))
	frame = append(frame, b.Handler.OwnAddr, msg.DstAddr, msg.ID[0], msg.ID[1])
	frame = append(frame, byte(len(payload)))
	frame = append(frame, payload...)
	return frame, nil
}

// handleHex sends a literal master frame given as hex digit pairs,
// e.g. "hex 03 08 50 22 00", and reports the slave response (if any) as
// hex digits.
func (b *BaseLoop) handleHex(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "ERR: usage: hex QQ ZZ PB SB NN [D1..Dn]"
	}
	raw, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		return "ERR: " + err.Error()
	}
	req := bus.NewRequest(raw)
	if err := b.Handler.SendAndWait(ctx, req, defaultFailedSendRetries, defaultBusLostRetries); err != nil {
		return "ERR: " + err.Error()
	}
	b.logRaw(raw, req.Slave)
	if len(req.Slave) == 0 {
		return "done"
	}
	return hex.EncodeToString(req.Slave)
}

// handleScan drives an address-probing pass (scan / scan full) or
// formats accumulated results (scan result).
func (b *BaseLoop) handleScan(ctx context.Context, args []string) string {
	if len(args) > 0 && strings.EqualFold(args[0], "result") {
		return b.formatScanResults()
	}
	full := len(args) > 0 && strings.EqualFold(args[0], "full")

	candidates := b.scanCandidates(full)
	if len(candidates) == 0 {
		return "ERR: no addresses known; try scan full"
	}
	for _, addr := range candidates {
		if ctx.Err() != nil {
			return "ERR: " + ctx.Err().Error()
		}
		frame := []byte{b.Handler.OwnAddr, addr, scanPB, scanSB, 0x00}
		req := bus.NewRequest(frame)
		err := b.Handler.SendAndWait(ctx, req, 0, 0)
		b.mu.Lock()
		if err == nil {
			b.scanResults[addr] = hex.EncodeToString(req.Slave)
		} else if !full {
			delete(b.scanResults, addr)
		}
		b.mu.Unlock()
	}
	return "done"
}

func (b *BaseLoop) scanCandidates(full bool) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if full {
		var out []byte
		for addr := 0; addr <= 0xFF; addr++ {
			a := byte(addr)
			if !ebus.IsValidAddress(a) || ebus.IsMaster(a) || a == ebus.BROADCAST {
				continue
			}
			out = append(out, a)
		}
		return out
	}
	out := make([]byte, 0, len(b.scanResults))
	for addr := range b.scanResults {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *BaseLoop) formatScanResults() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.scanResults) == 0 {
		return "no devices found"
	}
	addrs := make([]byte, 0, len(b.scanResults))
	for addr := range b.scanResults {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	var lines []string
	for _, addr := range addrs {
		lines = append(lines, fmt.Sprintf("%02x: %s", addr, b.scanResults[addr]))
	}
	return strings.Join(lines, "\n")
}

func (b *BaseLoop) handleLog(args []string) string {
	if len(args) < 2 {
		return "ERR: usage: log areas|level value"
	}
	switch strings.ToLower(args[0]) {
	case "level":
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(args[1])); err != nil {
			return "ERR: unknown level " + args[1]
		}
		b.Level.SetLevel(lvl)
		return "done"
	case "areas":
		// A single AtomicLevel governs every call site; areas are
		// accepted for compatibility but don't narrow anything.
		return "done"
	default:
		return "ERR: usage: log areas|level value"
	}
}

func (b *BaseLoop) handleRaw(args []string) string {
	on, err := parseOnOff(args)
	if err != nil {
		return "ERR: usage: raw on|off"
	}
	b.mu.Lock()
	b.rawEnabled = on
	b.mu.Unlock()
	return "done"
}

func (b *BaseLoop) handleDump(args []string) string {
	on, err := parseOnOff(args)
	if err != nil {
		return "ERR: usage: dump on|off"
	}
	if on && b.Dump == nil {
		return "ERR: dump not configured"
	}
	b.mu.Lock()
	b.dumpEnabled = on
	b.mu.Unlock()
	return "done"
}

func parseOnOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, ebus.ErrInvalidArg
	}
	switch strings.ToLower(args[0]) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, ebus.ErrInvalidArg
	}
}

// logRaw mirrors a completed exchange to the logger and, if enabled, the
// dump writer — the client-visible equivalent of Port::setLogRaw /
// setDumpRaw.
func (b *BaseLoop) logRaw(master, slave []byte) {
	b.mu.Lock()
	raw, dumping := b.rawEnabled, b.dumpEnabled
	writer := b.Dump
	b.mu.Unlock()

	if raw {
		b.Log.Debug("raw exchange",
			zap.String("master", hex.EncodeToString(master)),
			zap.String("slave", hex.EncodeToString(slave)))
	}
	if dumping && writer != nil {
		if err := writer.Write(append(append([]byte(nil), master...), slave...)); err != nil {
			b.Log.Warn("dump write failed", zap.Error(err))
		}
	}
}
