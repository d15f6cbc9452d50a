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

// Package device abstracts the byte-level link the bus handler drives: a
// serial tty or a TCP tunnel, both exposing the same open/send/recv
// contract regardless of backend.
package device

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/sarnold/ebusd-go/internal/ebus"
)

const baudRate = 2400

// Device is the byte-level I/O contract the bus handler drives: open,
// close, liveness, bulk send and single-byte receive with a timeout.
type Device interface {
	Open() error
	Close() error
	IsOpen() bool
	Send(data []byte) (int, error)

	// Recv waits up to timeout for the next byte. timeout of zero blocks
	// until a byte arrives or the device closes; ctx cancellation also
	// unblocks it. Returns ebus.ErrTimeout, ebus.ErrEOF, or
	// ebus.ErrDevice as appropriate.
	Recv(ctx context.Context, timeout time.Duration) (byte, error)
}

// streamDevice implements Device over any io.ReadWriteCloser, using a
// background goroutine that reads one byte at a time so Recv can apply
// a fresh per-call timeout regardless of what the backend's own blocking
// read granularity is.
type streamDevice struct {
	open func() (io.ReadWriteCloser, error)

	mu     sync.Mutex
	stream io.ReadWriteCloser
	bytes  chan byte
	errs   chan error
	done   chan struct{}
}

func newStreamDevice(open func() (io.ReadWriteCloser, error)) *streamDevice {
	return &streamDevice{open: open}
}

func (d *streamDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream != nil {
		return nil
	}
	stream, err := d.open()
	if err != nil {
		return fmt.Errorf("ebus: device open: %w", ebus.ErrDevice)
	}
	d.stream = stream
	d.bytes = make(chan byte, 64)
	d.errs = make(chan error, 1)
	d.done = make(chan struct{})
	go d.readLoop()
	return nil
}

func (d *streamDevice) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := d.stream.Read(buf)
		if n > 0 {
			select {
			case d.bytes <- buf[0]:
			case <-d.done:
				return
			}
		}
		if err != nil {
			select {
			case d.errs <- err:
			case <-d.done:
			}
			return
		}
	}
}

func (d *streamDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stream == nil {
		return nil
	}
	close(d.done)
	err := d.stream.Close()
	d.stream = nil
	return err
}

func (d *streamDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream != nil
}

func (d *streamDevice) Send(data []byte) (int, error) {
	d.mu.Lock()
	stream := d.stream
	d.mu.Unlock()
	if stream == nil {
		return 0, ebus.ErrDevice
	}
	n, err := stream.Write(data)
	if err != nil {
		return n, fmt.Errorf("ebus: device send: %w", ebus.ErrSend)
	}
	return n, nil
}

func (d *streamDevice) Recv(ctx context.Context, timeout time.Duration) (byte, error) {
	d.mu.Lock()
	bytes, errs := d.bytes, d.errs
	d.mu.Unlock()
	if bytes == nil {
		return 0, ebus.ErrDevice
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case b := <-bytes:
		return b, nil
	case err := <-errs:
		if err == io.EOF {
			return 0, ebus.ErrEOF
		}
		return 0, fmt.Errorf("ebus: device recv: %w", ebus.ErrGenericIO)
	case <-deadline:
		return 0, ebus.ErrTimeout
	case <-ctx.Done():
		return 0, ebus.ErrTimeout
	}
}

// OpenSerial returns a Device backed by a 2400bps 8N1 serial tty.
func OpenSerial(path string) Device {
	return newStreamDevice(func() (io.ReadWriteCloser, error) {
		port, err := serial.OpenPort(&serial.Config{
			Name:        path,
			Baud:        baudRate,
			Size:        8,
			Parity:      serial.ParityNone,
			StopBits:    serial.Stop1,
			ReadTimeout: 50 * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		return port, nil
	})
}

// OpenNetwork returns a Device backed by a TCP tunnel to a host:port
// carrying the same raw byte stream a local serial port would.
func OpenNetwork(addr string) Device {
	return newStreamDevice(func() (io.ReadWriteCloser, error) {
		return net.Dial("tcp", addr)
	})
}
