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

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// defaultPollPeriod is the bounded wait interval used by every blocking
// call to re-check cancellation, for both the event waits and the region
// mutex acquisition. A systems-language original of this design might use
// a single numeric constant for a microsecond event timeout and, divided
// by 1000, a millisecond mutex timeout; time.Duration has no such unit
// split to work around, so one constant covers both waits here.
const defaultPollPeriod = 500 * time.Millisecond

// channelCore is the state shared by a Receiver and a Sender attached to
// the same physical_name: the region, its header, the message family, and
// the cooperative-disconnection machinery (C6).
type channelCore struct {
	params ChannelParameters
	family *Family

	region *region
	hdr    *Header
	mutex  regionMutex

	logger     Logger
	pollPeriod time.Duration

	localMu      sync.Mutex
	disconnected atomic.Bool

	ownerSeq uint64
}

// attachChannel opens or creates the named region. The endpoint that wins
// the one-time-init race has its type/version discriminators stamped into
// the header by openOrCreateRegion itself, inside the same locked section
// that publishes initDone; every later attach only ever reads them back and
// fails with VersionMismatchError on a mismatch.
func attachChannel(params ChannelParameters, family *Family, opts endpointOptions) (*channelCore, error) {
	r, wasInitializer, err := openOrCreateRegion(params.PhysicalName, family.MaxPayload(), params.Type, params.Version)
	if err != nil {
		return nil, err
	}

	if !wasInitializer {
		if gotType, gotVer := r.hdr.MsgType(), r.hdr.MsgVer(); gotType != params.Type || gotVer != params.Version {
			r.Close(false)
			return nil, &VersionMismatchError{
				LogicalName: params.LogicalName,
				WantType:    params.Type,
				WantVersion: params.Version,
				GotType:     gotType,
				GotVersion:  gotVer,
			}
		}
	}

	c := &channelCore{
		params:     params,
		family:     family,
		region:     r,
		hdr:        r.hdr,
		mutex:      regionMutex{word: &r.hdr.mutexWord, name: params.LogicalName, logger: opts.logger},
		logger:     opts.logger,
		pollPeriod: opts.pollPeriod,
		ownerSeq:   r.hdr.nextOwnerSeq(),
	}
	return c, nil
}

// IsDisconnected reports whether disconnect has been called on this
// endpoint.
func (c *channelCore) IsDisconnected() bool {
	return c.disconnected.Load()
}

// Parameters returns this endpoint's channel parameters.
func (c *channelCore) Parameters() *ChannelParameters {
	return &c.params
}

// disconnect implements the latch-then-synchronize pattern shared by
// Receiver.Disconnect and Sender.Disconnect: setting the flag before taking
// localMu means that once this call's Lock succeeds, any Receive/Send that
// was already in flight is guaranteed to have observed the flag, because
// Receive/Send hold localMu for their entire body and only ever release it
// after re-checking the flag. disconnect therefore blocks for at most one
// in-flight call's current poll period, never indefinitely, since that
// call's own loop notices the flag and returns promptly.
func (c *channelCore) disconnect() {
	c.disconnected.Store(true)
	c.localMu.Lock()
	c.localMu.Unlock()
}

// releaseRegion finalizes the given event slot (if still owned by this
// endpoint's pid) and releases the region, unlinking the backing file when
// both slots are vacant.
func (c *channelCore) releaseRegion(slot *eventSlotHeader) error {
	if slot.Pid() == int32(os.Getpid()) {
		slot.Fini()
	}
	return c.region.Close(true)
}

func currentPid() int32 {
	return int32(os.Getpid())
}

// pollEvent waits on slot until it is posted, timeout elapses (calling
// idle and retrying), or disconnect is observed. woken is true only on a
// genuine post; a timeout never surfaces as an error, since timeouts are
// the expected liveness mechanism for disconnection polling. Callers hold
// localMu for their entire body, so the flag check here only needs the
// atomic load, not localMu itself — taking it again here would deadlock
// against the caller's own hold.
func (c *channelCore) pollEvent(slot *eventSlotHeader, idle func()) (woken bool, err error) {
	counter := slot.Clear()
	for {
		if c.disconnected.Load() {
			return false, nil
		}

		waitErr := slot.Wait(counter, c.pollPeriod)
		switch {
		case waitErr == ErrFutexTimeout:
			if idle != nil {
				idle()
			}
			continue
		case waitErr != nil:
			return false, waitErr
		case slot.current() == counter:
			// Spurious wake (EINTR/EAGAIN) with no actual post; re-wait.
			continue
		default:
			return true, nil
		}
	}
}
