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

// Package transport accepts client connections (TELNET-style line
// protocol over TCP) and feeds each line, one at a time per connection,
// to whatever is listening on the Listener's Requests channel.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// NetMessage is one client request line awaiting a result. Result is
// buffered by size one so the serializing consumer never blocks on a
// slow or departed client.
type NetMessage struct {
	Data   string
	Result chan<- string
}

// Listener accepts TCP connections and turns each '\n'-terminated line
// (leading '\r' stripped, TELNET style) into a NetMessage on Requests.
type Listener struct {
	listen   net.Listener
	Requests chan *NetMessage

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// Listen opens addr for incoming client connections.
func Listen(addr string) (*Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	return &Listener{
		listen:   l,
		Requests: make(chan *NetMessage, 16),
		conns:    make(map[net.Conn]struct{}),
	}, nil
}

// Addr reports the address the listener is bound to.
func (l *Listener) Addr() net.Addr { return l.listen.Addr() }

// Serve accepts connections until ctx is cancelled, spawning one
// goroutine per connection that reads lines and submits them to
// Requests, writing the corresponding result back before reading the
// next line.
func (l *Listener) Serve(ctx context.Context, log *zap.Logger) {
	go func() {
		<-ctx.Done()
		l.listen.Close()
	}()

	for {
		c, err := l.listen.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		l.track(c)
		clog := log.With(zap.Stringer("remoteAddr", c.RemoteAddr()))
		clog.Info("client connected")
		go l.handle(ctx, c, clog)
	}
}

func (l *Listener) track(c net.Conn) {
	l.mu.Lock()
	l.conns[c] = struct{}{}
	l.mu.Unlock()
}

func (l *Listener) untrack(c net.Conn) {
	l.mu.Lock()
	delete(l.conns, c)
	l.mu.Unlock()
}

func (l *Listener) handle(ctx context.Context, c net.Conn, log *zap.Logger) {
	defer c.Close()
	defer l.untrack(c)

	go func() {
		<-ctx.Done()
		c.Close()
	}()

	scanner := bufio.NewScanner(c)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		result := make(chan string, 1)
		select {
		case l.Requests <- &NetMessage{Data: line, Result: result}:
		case <-ctx.Done():
			return
		}
		select {
		case reply := <-result:
			if _, err := fmt.Fprintf(c, "%s\n", reply); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debug("client read error", zap.Error(err))
	}
	log.Info("client disconnected")
}
