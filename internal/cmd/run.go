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

// ebusd binary implementation
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sarnold/ebusd-go/internal/bus"
	"github.com/sarnold/ebusd-go/internal/command"
	"github.com/sarnold/ebusd-go/internal/config"
	"github.com/sarnold/ebusd-go/internal/data"
	"github.com/sarnold/ebusd-go/internal/device"
	"github.com/sarnold/ebusd-go/internal/dump"
	"github.com/sarnold/ebusd-go/internal/message"
	"github.com/sarnold/ebusd-go/internal/transport"
)

const versionString = "ebusd-go 0.1"

var (
	devURI      = pflag.StringP("device", "d", "/dev/ttyUSB0", "serial tty, or host:port to tunnel the bus over TCP")
	ownAddr     = pflag.StringP("address", "a", "ff", "this daemon's master address, as a hex byte")
	configDir   = pflag.StringP("configpath", "c", "/etc/ebusd", "directory of message definition CSV files")
	listenAddr  = pflag.StringP("port", "p", ":8888", "address to listen on for client connections")
	dumpFile    = pflag.String("dumpfile", "", "raw capture file path; empty disables dump support")
	dumpSizeKB  = pflag.Int("dumpsize", 1024, "raw capture file rotation size, in KB")
	logLevel    = pflag.String("logLevel", "info", "initial log level (debug, info, warn, error)")
	version     = pflag.BoolP("version", "v", false, "display version & exit")
)

// Main parses flags and runs the daemon until the command loop ends (a
// client sends "stop"), then returns.
func Main() {
	pflag.Parse()
	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "ebusd: "+err.Error())
		os.Exit(1)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(context.Background(), log, level); err != nil {
		log.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, level zap.AtomicLevel) error {
	addr, err := parseOwnAddr(*ownAddr)
	if err != nil {
		return err
	}

	templates := data.NewTemplates()
	messages := message.NewMap()
	if err := config.LoadDir(*configDir, templates, messages); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log.Info("configuration loaded", zap.String("dir", *configDir))

	dev := openDevice(*devURI)
	handler := bus.NewHandler(dev, messages, addr, log, bus.DefaultTimeouts())

	listener, err := transport.Listen(*listenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("listening", zap.Stringer("addr", listener.Addr()))

	loop := command.NewBaseLoop(listener.Requests, messages, handler, log, level)
	if *dumpFile != "" {
		writer, err := dump.Open(*dumpFile, *dumpSizeKB)
		if err != nil {
			return fmt.Errorf("open dump file: %w", err)
		}
		defer writer.Close()
		loop.Dump = writer
	}

	go handler.Run(ctx)
	go listener.Serve(ctx, log)
	loop.Run(ctx)
	return nil
}

// openDevice picks the serial or network backend based on whether uri
// looks like a host:port pair.
func openDevice(uri string) device.Device {
	if device.IsNetworkURI(uri) {
		return device.OpenNetwork(uri)
	}
	return device.OpenSerial(uri)
}

func parseOwnAddr(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("address %q: %w", s, err)
	}
	return byte(v), nil
}
