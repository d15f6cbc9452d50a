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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sarnold/ebusd-go/internal/bus"
	"github.com/sarnold/ebusd-go/internal/data"
	"github.com/sarnold/ebusd-go/internal/device"
	"github.com/sarnold/ebusd-go/internal/ebus"
	"github.com/sarnold/ebusd-go/internal/message"
	"github.com/sarnold/ebusd-go/internal/transport"
)

// loopbackDevice mirrors internal/bus's test double: Send echoes onto
// the same queue Recv drains, and Inject queues bytes as if they
// arrived from elsewhere on the bus.
type loopbackDevice struct {
	mu     sync.Mutex
	queue  []byte
	extra  []byte
	opened bool
}

func (d *loopbackDevice) Open() error  { d.opened = true; return nil }
func (d *loopbackDevice) Close() error { d.opened = false; return nil }
func (d *loopbackDevice) IsOpen() bool { return d.opened }

func (d *loopbackDevice) Send(data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, data...)
	return len(data), nil
}

func (d *loopbackDevice) Recv(ctx context.Context, timeout time.Duration) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) > 0 {
		b := d.queue[0]
		d.queue = d.queue[1:]
		return b, nil
	}
	if len(d.extra) > 0 {
		b := d.extra[0]
		d.extra = d.extra[1:]
		return b, nil
	}
	return 0, ebus.ErrTimeout
}

func (d *loopbackDevice) Inject(bytes ...byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.extra = append(d.extra, bytes...)
}

var _ device.Device = (*loopbackDevice)(nil)

func newTestLoop(t *testing.T, dev device.Device, messages *message.Map) *BaseLoop {
	handler := bus.NewHandler(dev, messages, 0x03, zap.NewNop(), bus.DefaultTimeouts())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go handler.Run(ctx)

	reqs := make(chan *transport.NetMessage)
	return NewBaseLoop(reqs, messages, handler, zap.NewNop(), zap.NewAtomicLevel())
}

func uchField(part data.Part) *data.NumberField {
	return data.NewNumberField("temp", "", "C", part, 1, 0, 8, 0, 0, 0, 0xFE, 0xFF)
}

func TestHandleGetDecodesSlaveResponse(t *testing.T) {
	fields := data.NewFieldSet("temp", "", data.PartAny)
	fields.Add(uchField(data.PartSlave))

	msg, err := message.New(false, false, "heating", "temp", message.ActiveSourceSentinel, 0x08, []byte{0x50, 0x22}, fields, 0)
	require.NoError(t, err)
	messages := message.NewMap()
	require.NoError(t, messages.Add(msg))

	dev := &loopbackDevice{}
	dev.Inject(ebus.ACK)
	dev.Inject([]byte{0x01, 0x2A}...) // NN=1, data=0x2A (42)
	dev.Inject(ebus.CRC8([]byte{0x01, 0x2A}))

	loop := newTestLoop(t, dev, messages)
	reply, stop := loop.dispatch(context.Background(), "get heating temp")
	assert.False(t, stop)
	assert.Equal(t, "42", reply)
}

func TestHandleCycReturnsLastValueWithoutTouchingBus(t *testing.T) {
	fields := data.NewFieldSet("temp", "", data.PartAny)
	fields.Add(uchField(data.PartSlave))
	msg, err := message.New(false, false, "heating", "temp", message.ActiveSourceSentinel, 0x08, []byte{0x50, 0x22}, fields, 3)
	require.NoError(t, err)
	msg.SetLastValue("21", time.Now())

	messages := message.NewMap()
	require.NoError(t, messages.Add(msg))

	dev := &loopbackDevice{} // no injected traffic: touching the bus would hang/timeout
	loop := newTestLoop(t, dev, messages)
	reply, _ := loop.dispatch(context.Background(), "cyc heating temp")
	assert.Equal(t, "21", reply)
}

func TestHandleSetBroadcastReportsDoneWithoutResponse(t *testing.T) {
	fields := data.NewFieldSet("cmd", "", data.PartAny)
	fields.Add(uchField(data.PartMaster))
	msg, err := message.New(true, false, "heating", "cmd", message.ActiveSourceSentinel, ebus.BROADCAST, []byte{0x50, 0x22}, fields, 0)
	require.NoError(t, err)
	messages := message.NewMap()
	require.NoError(t, messages.Add(msg))

	dev := &loopbackDevice{}
	loop := newTestLoop(t, dev, messages)
	reply, _ := loop.dispatch(context.Background(), "set heating cmd 5")
	assert.Equal(t, "done", reply)
}

func TestHandleGetUnknownMessageReportsError(t *testing.T) {
	messages := message.NewMap()
	dev := &loopbackDevice{}
	loop := newTestLoop(t, dev, messages)
	reply, _ := loop.dispatch(context.Background(), "get heating missing")
	assert.Contains(t, reply, "ERR")
}

func TestHandleStopSignalsLoopExit(t *testing.T) {
	messages := message.NewMap()
	dev := &loopbackDevice{}
	loop := newTestLoop(t, dev, messages)
	reply, stop := loop.dispatch(context.Background(), "stop")
	assert.Equal(t, "done", reply)
	assert.True(t, stop)
}

func TestHandleLogLevelUpdatesAtomicLevel(t *testing.T) {
	messages := message.NewMap()
	dev := &loopbackDevice{}
	loop := newTestLoop(t, dev, messages)
	reply, _ := loop.dispatch(context.Background(), "log level error")
	assert.Equal(t, "done", reply)
	assert.Equal(t, zap.ErrorLevel, loop.Level.Level())
}

func TestHandleDumpWithoutWriterReportsError(t *testing.T) {
	messages := message.NewMap()
	dev := &loopbackDevice{}
	loop := newTestLoop(t, dev, messages)
	reply, _ := loop.dispatch(context.Background(), "dump on")
	assert.Contains(t, reply, "ERR")
}
