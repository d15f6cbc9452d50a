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

package bus

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sarnold/ebusd-go/internal/data"
	"github.com/sarnold/ebusd-go/internal/device"
	"github.com/sarnold/ebusd-go/internal/ebus"
	"github.com/sarnold/ebusd-go/internal/message"
)

const (
	minMasterFrame = 5 // QQ ZZ PB SB NN, before data and CRC
	maxDataLen     = 16
)

// Handler owns the serial/network link exclusively and drives the
// per-symbol protocol loop: arbitration, framing, ACK/NAK, and request
// completion. Exactly one Handler should run per Device.
type Handler struct {
	Device   device.Device
	Dict     *message.Map
	OwnAddr  byte
	Log      *zap.Logger
	Timeouts Timeouts
	Queue    *Queue

	state State

	// lockCount is how many more SYNs must pass, after losing
	// arbitration, before this handler may contend for the bus again.
	// passiveStep decrements it each time it observes a SYN; loop only
	// dequeues a pending request once it reaches zero.
	lockCount int
}

// NewHandler constructs a Handler bound to dev, using ownAddr as the
// master address this daemon arbitrates under.
func NewHandler(dev device.Device, dict *message.Map, ownAddr byte, log *zap.Logger, timeouts Timeouts) *Handler {
	return &Handler{
		Device:   dev,
		Dict:     dict,
		OwnAddr:  ownAddr,
		Log:      log,
		Timeouts: timeouts,
		Queue:    NewQueue(),
		state:    StateSkip,
	}
}

// SendAndWait submits req and retries per the protocol's retry policy:
// failedSendRetries+1 attempts overall, each allowed busLostRetries+1
// additional tries that don't consume a send attempt because the bus was
// lost to another master rather than because the send itself failed.
func (h *Handler) SendAndWait(ctx context.Context, req *Request, failedSendRetries, busLostRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= failedSendRetries; attempt++ {
		for lost := 0; lost <= busLostRetries; lost++ {
			try := NewRequest(req.Master)
			h.Queue.Add(try)
			err := try.Wait(h.Timeouts.RequestWait)
			if !try.Done() {
				h.Queue.RemoveRequest(try)
			}
			if err == nil {
				req.Slave = try.Slave
				return nil
			}
			lastErr = err
			if errors.Is(err, ebus.ErrBusLost) {
				continue
			}
			break
		}
		if !errors.Is(lastErr, ebus.ErrBusLost) {
			continue
		}
	}
	return lastErr
}

// Run opens the device and drives the protocol loop until ctx is
// cancelled. On a device-level error it closes and reopens the port
// after a backoff, matching the handler's own-port-exclusive ownership.
func (h *Handler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := h.Device.Open(); err != nil {
			h.Log.Error("device open failed", zap.Error(err))
			sleep(ctx, 10*time.Second)
			continue
		}
		h.loop(ctx)
		h.Device.Close()
		if ctx.Err() == nil {
			sleep(ctx, 10*time.Second)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (h *Handler) loop(ctx context.Context) {
	for ctx.Err() == nil {
		// A pending request only gets to arbitrate once the lock window
		// from a prior arbitration loss has elapsed; until then every
		// iteration is a passive SYN-watching step, which is also what
		// counts the window down.
		if h.lockCount == 0 && h.Queue.Peek() != nil {
			req := h.Queue.RemoveWait(ctx, 50*time.Millisecond)
			if req != nil {
				err := h.attempt(ctx, req)
				req.Notify(err)
				continue
			}
		}

		if err := h.passiveStep(ctx); err != nil && isDeviceLevel(err) {
			h.Log.Warn("device error in idle loop", zap.Error(err))
			return
		}
	}
}

func isDeviceLevel(err error) bool {
	return errors.Is(err, ebus.ErrDevice) || errors.Is(err, ebus.ErrEOF)
}

// attempt runs one arbitration-through-completion cycle for req against
// the live bus: win arbitration, send the frame, and collect an ACK (and
// a slave response, if the destination is a slave).
func (h *Handler) attempt(ctx context.Context, req *Request) error {
	if len(req.Master) < minMasterFrame {
		return ebus.ErrInvalidArg
	}
	nn := int(req.Master[4])
	if nn > maxDataLen || len(req.Master) != minMasterFrame+nn {
		return ebus.ErrInvalidArg
	}
	if h.lockCount > 0 {
		return ebus.ErrBusLost
	}

	h.state = StateReady
	echoed, err := h.sendByte(ctx, req.Master[0], h.Timeouts.BusAcquireTimeout)
	if err != nil {
		h.state = StateSkip
		return err
	}
	if !wonArbitration(req.Master[0], echoed) {
		h.lockCount = remainLockCount(h.Timeouts.LockCount, h.OwnAddr, echoed)
		h.state = StateSkip
		return ebus.ErrBusLost
	}

	crc := ebus.CRC8(req.Master)
	body := append(append([]byte(nil), req.Master[1:]...), crc)
	dst := req.Master[1]
	noAck := dst == ebus.BROADCAST || ebus.IsMaster(dst)

	// The command frame gets one resend from pos 0 on a first NAK, same
	// as the response-CRC direction in recvSlaveFrame; a second NAK is
	// terminal.
	for cmdAttempt := 0; ; cmdAttempt++ {
		h.state = StateSendCmd
		ss := ebus.NewSymbolString()
		for i, b := range body {
			updateCRC := i < len(body)-1 // every byte but the trailing CRC
			if err := h.sendLogicalByte(ctx, ss, b, updateCRC, h.Timeouts.SendTimeout); err != nil {
				h.state = StateSkip
				return err
			}
		}
		if noAck {
			break
		}

		h.state = StateRecvCmdAck
		ack, err := h.recvByte(ctx, h.Timeouts.SlaveRecvTimeout)
		if err != nil {
			h.state = StateSkip
			return err
		}
		if ack == ebus.ACK {
			break
		}
		if ack != ebus.NAK {
			h.state = StateSkip
			return ebus.ErrACK
		}
		if cmdAttempt == 0 {
			continue
		}
		h.state = StateSkip
		return ebus.ErrNAK
	}

	if noAck {
		h.state = StateSendSyn
		echoed, err := h.sendByte(ctx, ebus.SYN, h.Timeouts.SendTimeout)
		h.state = StateSkip
		if err != nil {
			return err
		}
		if echoed != ebus.SYN {
			return ebus.ErrSend
		}
		return nil
	}

	h.state = StateRecvRes
	slave, err := h.recvSlaveFrame(ctx)
	h.state = StateSkip
	if err != nil {
		return err
	}
	req.Slave = slave
	return nil
}

func (h *Handler) sendByte(ctx context.Context, b byte, timeout time.Duration) (byte, error) {
	if _, err := h.Device.Send([]byte{b}); err != nil {
		return 0, err
	}
	return h.recvByte(ctx, timeout)
}

func (h *Handler) recvByte(ctx context.Context, timeout time.Duration) (byte, error) {
	return h.Device.Recv(ctx, timeout)
}

// sendLogicalByte escapes the logical byte b onto the wire through ss,
// which both produces the (possibly two-byte) escape sequence and folds
// b into the running CRC when updateCRC is set, then confirms the echo
// of every wire byte the escape produced.
func (h *Handler) sendLogicalByte(ctx context.Context, ss *ebus.SymbolString, b byte, updateCRC bool, timeout time.Duration) error {
	before := ss.Len()
	if err := ss.Push(b, true, updateCRC); err != nil {
		return err
	}
	for _, wire := range ss.Bytes()[before:] {
		echoed, err := h.sendByte(ctx, wire, timeout)
		if err != nil {
			return err
		}
		if echoed != wire {
			return ebus.ErrSend
		}
	}
	return nil
}

// recvLogicalByte reads physical wire bytes through ss until a full
// logical byte resolves — an escaped symbol takes two physical reads —
// folding it into the running CRC when updateCRC is set.
func (h *Handler) recvLogicalByte(ctx context.Context, ss *ebus.SymbolString, updateCRC bool, timeout time.Duration) (byte, error) {
	for {
		before := ss.Len()
		b, err := h.recvByte(ctx, timeout)
		if err != nil {
			return 0, err
		}
		if err := ss.Push(b, false, updateCRC); err != nil {
			return 0, err
		}
		if ss.Len() > before {
			return ss.At(ss.Len() - 1), nil
		}
	}
}

// recvSlaveFrame reads NN D1..Dn CRC off the wire (unescaping as it
// goes), validates the CRC, and ACKs or NAKs per the protocol, retrying
// the NAK once before surfacing a CRC error.
func (h *Handler) recvSlaveFrame(ctx context.Context) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ss := ebus.NewSymbolString()
		nn, err := h.recvLogicalByte(ctx, ss, true, h.Timeouts.SlaveRecvTimeout)
		if err != nil {
			return nil, err
		}
		if int(nn) > maxDataLen {
			return nil, ebus.ErrOutOfRange
		}
		for i := 0; i < int(nn); i++ {
			if _, err := h.recvLogicalByte(ctx, ss, true, h.Timeouts.SlaveRecvTimeout); err != nil {
				return nil, err
			}
		}
		dataEnd := ss.Len()
		crcByte, err := h.recvLogicalByte(ctx, ss, false, h.Timeouts.SlaveRecvTimeout)
		if err != nil {
			return nil, err
		}

		h.state = StateRecvResAck
		if ss.CRC() == crcByte {
			if _, err := h.sendByte(ctx, ebus.ACK, h.Timeouts.SendTimeout); err != nil {
				return nil, err
			}
			return append([]byte(nil), ss.Bytes()[1:dataEnd]...), nil
		}
		if attempt == 0 {
			if _, err := h.sendByte(ctx, ebus.NAK, h.Timeouts.SendTimeout); err != nil {
				return nil, err
			}
			h.state = StateRecvRes
			continue
		}
		return nil, ebus.ErrCRC
	}
	return nil, ebus.ErrCRC
}

// passiveStep waits briefly for a SYN-delimited frame originated by
// another master and, on a complete valid frame, decodes it via the
// dictionary even though no request is queued for it. Every SYN it
// observes also counts down a pending arbitration-loss lock window.
func (h *Handler) passiveStep(ctx context.Context) error {
	b, err := h.recvByte(ctx, h.Timeouts.SynTimeout)
	if err != nil {
		if errors.Is(err, ebus.ErrTimeout) {
			return nil
		}
		return err
	}
	if b != ebus.SYN {
		return nil
	}
	h.state = StateReady
	if h.lockCount > 0 {
		h.lockCount--
	}

	ss := ebus.NewSymbolString()
	first, err := h.recvLogicalByte(ctx, ss, true, h.Timeouts.SynTimeout)
	if err != nil || first == ebus.SYN {
		h.state = StateSkip
		return nil
	}
	if !ebus.IsMaster(first) {
		h.state = StateSkip
		return nil
	}
	h.state = StateRecvCmd

	for ss.Len() < minMasterFrame {
		if _, err := h.recvLogicalByte(ctx, ss, true, h.Timeouts.SlaveRecvTimeout); err != nil {
			h.state = StateSkip
			return nil
		}
	}
	nn := int(ss.At(4))
	if nn > maxDataLen {
		h.state = StateSkip
		return nil
	}
	for ss.Len() < minMasterFrame+nn {
		if _, err := h.recvLogicalByte(ctx, ss, true, h.Timeouts.SlaveRecvTimeout); err != nil {
			h.state = StateSkip
			return nil
		}
	}

	h.state = StateRecvCmdAck
	crcByte, err := h.recvLogicalByte(ctx, ss, false, h.Timeouts.SlaveRecvTimeout)
	if err != nil || ss.CRC() != crcByte {
		h.state = StateSkip
		return nil
	}

	h.receiveCompleted(append([]byte(nil), ss.Bytes()[:minMasterFrame+nn]...))
	h.state = StateSkip
	return nil
}

// receiveCompleted looks up a passively observed master frame in the
// dictionary and stamps its decoded value; a miss is not an error, it is
// simply traffic the dictionary doesn't model.
func (h *Handler) receiveCompleted(frame []byte) {
	src, dst := frame[0], frame[1]
	nn := int(frame[4])
	idExtra := nn
	if idExtra > 4 {
		idExtra = 4
	}
	id := append([]byte{frame[2], frame[3]}, frame[5:5+idExtra]...)
	msg, err := h.Dict.FindPassive(src, dst, id)
	if err != nil {
		h.Log.Debug("unrecognized frame",
			zap.Uint8("src", src), zap.Uint8("dst", dst))
		return
	}
	text, err := msg.Fields.Read(data.PartMaster, frame[5:5+nn], len(msg.ID)-2)
	if err != nil {
		h.Log.Debug("decode failed", zap.String("message", msg.Name), zap.Error(err))
		return
	}
	msg.SetLastValue(text, time.Now())
}
