/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package shm

// Sender is one producer side of a channel (C5). Any number of Senders may
// attach to the same physical_name concurrently.
type Sender struct {
	core *channelCore
}

// NewSender attaches to (creating if necessary) the named channel. Unlike
// NewReceiver, it does not claim any event slot at construction time: the
// sender-side event is created and destroyed per-send, so that many
// short-lived senders can attach and detach cheaply.
func NewSender(params ChannelParameters, family *Family, opts ...Option) (*Sender, error) {
	o := newEndpointOptions(opts)
	core, err := attachChannel(params, family, o)
	if err != nil {
		return nil, err
	}
	return &Sender{core: core}, nil
}

// Send delivers msg and waits for the receiver's acknowledgement. It
// returns true on delivered-and-acknowledged, false if disconnection was
// observed before completion (then with a nil error). Every non-nil error
// comes with a false return.
//
// Send holds core.localMu for its entire body, so a concurrent Disconnect
// cannot return until this call has itself observed the disconnected flag
// and released the lock.
func (s *Sender) Send(msg *Envelope, idle func()) (bool, error) {
	core := s.core

	core.localMu.Lock()
	defer core.localMu.Unlock()

	if core.disconnected.Load() {
		return false, nil
	}

	for {
		if core.mutex.TryLock(core.pollPeriod) {
			break
		}
		if core.disconnected.Load() {
			return false, nil
		}
		if idle != nil {
			idle()
		}
	}
	defer core.mutex.Unlock()

	tag, variantBytes, err := core.family.indexAndBytes(msg.Variant)
	if err != nil {
		return false, err
	}

	var fixedBytes []byte
	if core.family.HasCompanion() {
		fixedBytes, err = core.family.companionBytes(msg.Fixed)
		if err != nil {
			return false, err
		}
	}

	payload := core.region.payload()
	offset := copy(payload, fixedBytes)
	copy(payload[offset:offset+len(variantBytes)], variantBytes)
	core.hdr.SetMessageIndex(tag)
	core.hdr.SetMessageLen(uint16(len(variantBytes)))

	core.hdr.senderEvt.Init(currentPid(), core.ownerSeq)
	defer core.hdr.senderEvt.Fini()

	if err := core.hdr.receiverEvt.Post(); err != nil {
		return false, &EventPostFailedError{LogicalName: core.params.LogicalName, Err: err}
	}

	woken, err := core.pollEvent(&core.hdr.senderEvt, idle)
	if err != nil {
		return false, err
	}
	return woken, nil
}

// SendTo is a one-shot convenience: attach, send once, detach.
func SendTo(params ChannelParameters, family *Family, msg *Envelope, idle func(), opts ...Option) (bool, error) {
	sender, err := NewSender(params, family, opts...)
	if err != nil {
		return false, err
	}
	defer sender.Close()
	return sender.Send(msg, idle)
}

// Disconnect latches the disconnected flag; idempotent.
func (s *Sender) Disconnect() {
	s.core.disconnect()
}

// IsDisconnected reports whether Disconnect has been called.
func (s *Sender) IsDisconnected() bool {
	return s.core.IsDisconnected()
}

// Parameters returns this sender's channel parameters.
func (s *Sender) Parameters() *ChannelParameters {
	return s.core.Parameters()
}

// Close disconnects and releases the underlying region, unlinking it if
// both event slots are now vacant.
func (s *Sender) Close() error {
	s.core.disconnect()
	return s.core.releaseRegion(&s.core.hdr.senderEvt)
}
