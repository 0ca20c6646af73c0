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

import "fmt"

// Receiver is the single consumer side of a channel (C4). Exactly one
// Receiver may exist for a given physical_name at a time.
type Receiver struct {
	core *channelCore
}

// NewReceiver attaches to (creating if necessary) the named channel and
// claims the receiver role. It fails with EventInitFailedError if a
// receiver is already attached, or VersionMismatchError if an existing
// region's type/version disagree with params.
func NewReceiver(params ChannelParameters, family *Family, opts ...Option) (*Receiver, error) {
	o := newEndpointOptions(opts)
	core, err := attachChannel(params, family, o)
	if err != nil {
		return nil, err
	}

	if !core.mutex.TryLock(core.pollPeriod) {
		core.region.Close(false)
		return nil, &EventInitFailedError{
			LogicalName: params.LogicalName,
			Err:         fmt.Errorf("timed out acquiring region mutex"),
		}
	}
	if pid := core.hdr.receiverEvt.Pid(); pid != 0 {
		ownerSeq := core.hdr.receiverEvt.OwnerSeq()
		core.mutex.Unlock()
		core.region.Close(false)
		return nil, &EventInitFailedError{
			LogicalName: params.LogicalName,
			Err:         fmt.Errorf("receiver already attached from pid %d (owner %d)", pid, ownerSeq),
		}
	}
	core.hdr.receiverEvt.Init(currentPid(), core.ownerSeq)
	core.mutex.Unlock()

	return &Receiver{core: core}, nil
}

// Receive blocks until a message arrives, disconnect is observed, or an
// event-primitive error occurs. A nil Envelope with a nil error means the
// channel was (or became) disconnected. idle, if non-nil, is called once
// per expired poll period while still connected.
//
// Receive holds core.localMu for its entire body, so a concurrent
// Disconnect cannot return until this call has itself observed the
// disconnected flag and released the lock.
func (r *Receiver) Receive(idle func()) (*Envelope, error) {
	core := r.core

	core.localMu.Lock()
	defer core.localMu.Unlock()

	if core.disconnected.Load() {
		return nil, nil
	}

	woken, err := core.pollEvent(&core.hdr.receiverEvt, idle)
	if err != nil {
		return nil, err
	}
	if !woken {
		return nil, nil
	}

	msgLen := core.hdr.MessageLen()
	tag := core.hdr.MessageIndex()
	payload := core.region.payload()

	var fixed any
	offset := 0
	if core.family.HasCompanion() {
		fixed = core.family.newCompanion()
		fixedBytes, err := core.family.companionBytes(fixed)
		if err != nil {
			return nil, err
		}
		copy(fixedBytes, payload[:len(fixedBytes)])
		offset = len(fixedBytes)
	}

	variant, err := core.family.New(tag)
	if err != nil {
		if err := core.hdr.senderEvt.Post(); err != nil {
			return nil, &EventPostFailedError{LogicalName: core.params.LogicalName, Err: err}
		}
		if invalid, ok := err.(*InvalidTagError); ok {
			invalid.LogicalName = core.params.LogicalName
		}
		return nil, err
	}
	_, variantBytes, err := core.family.indexAndBytes(variant)
	if err != nil {
		return nil, err
	}
	if len(variantBytes) != int(msgLen) {
		if err := core.hdr.senderEvt.Post(); err != nil {
			return nil, &EventPostFailedError{LogicalName: core.params.LogicalName, Err: err}
		}
		return nil, &InvalidTagError{LogicalName: core.params.LogicalName, Tag: tag, NumVariants: core.family.NumAlternatives()}
	}
	copy(variantBytes, payload[offset:offset+len(variantBytes)])

	if err := core.hdr.senderEvt.Post(); err != nil {
		return nil, &EventPostFailedError{LogicalName: core.params.LogicalName, Err: err}
	}

	return &Envelope{Variant: variant, Fixed: fixed}, nil
}

// Disconnect latches the disconnected flag; idempotent. After it returns,
// any in-flight Receive will observe it within one poll period, and no
// future Receive will yield a value.
func (r *Receiver) Disconnect() {
	r.core.disconnect()
}

// IsDisconnected reports whether Disconnect has been called.
func (r *Receiver) IsDisconnected() bool {
	return r.core.IsDisconnected()
}

// Parameters returns this receiver's channel parameters.
func (r *Receiver) Parameters() *ChannelParameters {
	return r.core.Parameters()
}

// Close disconnects, finalizes the receiver event slot, and releases the
// underlying region, unlinking it if both event slots are now vacant.
func (r *Receiver) Close() error {
	r.core.disconnect()
	return r.core.releaseRegion(&r.core.hdr.receiverEvt)
}
