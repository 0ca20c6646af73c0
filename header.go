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
	"sync/atomic"
	"time"
	"unsafe"
)

// headerMagic identifies a region as belonging to this package, distinct
// from any other mmap'd object a host process might place at the same path
// convention.
var headerMagic = [8]byte{'F', 'B', 'S', 'H', 'M', 0, 0, 1}

// eventSlotHeader is an in-region event slot: the owning process id (0 ⇔
// vacant) plus a monotonic counter used for edge-triggered wait. ownerSeq
// disambiguates a restarted owner that is reassigned a recycled pid.
type eventSlotHeader struct {
	pid      int32
	ownerSeq uint64
	counter  uint32
	_        [4]byte
}

// Pid returns the owning process id, or 0 if vacant.
func (e *eventSlotHeader) Pid() int32 {
	return atomic.LoadInt32(&e.pid)
}

// OwnerSeq returns the owner-sequence value stamped by the most recent
// Init, which together with Pid identifies the slot's owner in logs even
// after a pid has been recycled by the OS.
func (e *eventSlotHeader) OwnerSeq() uint64 {
	return atomic.LoadUint64(&e.ownerSeq)
}

// Init claims the slot for pid/ownerSeq. Callers must already hold whatever
// mutex serializes slot ownership changes.
func (e *eventSlotHeader) Init(pid int32, ownerSeq uint64) {
	atomic.StoreUint64(&e.ownerSeq, ownerSeq)
	atomic.StoreUint32(&e.counter, 0)
	atomic.StoreInt32(&e.pid, pid)
}

// Fini releases the slot, making it vacant.
func (e *eventSlotHeader) Fini() {
	atomic.StoreInt32(&e.pid, 0)
}

// Clear arms the slot for the next wait cycle and returns the counter
// value to wait against.
func (e *eventSlotHeader) Clear() uint32 {
	return atomic.LoadUint32(&e.counter)
}

// Post wakes any waiter on this slot, bumping the counter first so a waiter
// that re-checks after waking observes a changed value.
func (e *eventSlotHeader) Post() error {
	atomic.AddUint32(&e.counter, 1)
	_, err := futexWake(&e.counter, 1<<30)
	return err
}

// Wait blocks until the counter changes from the value last returned by
// Clear, or timeout elapses. Returns ErrFutexTimeout on timeout.
func (e *eventSlotHeader) Wait(counter uint32, timeout time.Duration) error {
	return futexWaitTimeout(&e.counter, counter, timeout)
}

// current returns the live counter value, used to distinguish a real post
// from a spurious futex wake (EINTR/EAGAIN) that returns before the value
// actually changed.
func (e *eventSlotHeader) current() uint32 {
	return atomic.LoadUint32(&e.counter)
}

// Header is the shared region's payload: the common preamble, the two
// event slots, and the variable-length message fields. It is followed
// immediately in the mapped region by messageBuffer[MaxPayload(M)] bytes,
// whose size depends on the channel's Family and is therefore not a
// compile-time field of this struct.
type Header struct {
	magic    [8]byte
	msgType  uint16
	msgVer   uint16
	initDone uint32

	mutexWord uint32
	ownerSeq  uint64

	receiverEvt eventSlotHeader
	senderEvt   eventSlotHeader

	messageLen   uint16
	messageIndex uint8
	_            [5]byte
}

// HeaderSize is the fixed portion of the shared region, before
// messageBuffer.
const HeaderSize = unsafe.Sizeof(Header{})

func init() {
	// Pins the header's field layout the way a static_assert would in a
	// systems language: Go has no such construct, so a mismatch between
	// this list and the struct's actual field order panics at package
	// init instead of silently shifting offsets for every peer.
	type offsetCheck struct {
		name string
		got  uintptr
		want uintptr
	}
	checks := []offsetCheck{
		{"magic", unsafe.Offsetof(Header{}.magic), 0},
		{"msgType", unsafe.Offsetof(Header{}.msgType), 8},
		{"msgVer", unsafe.Offsetof(Header{}.msgVer), 10},
		{"initDone", unsafe.Offsetof(Header{}.initDone), 12},
		{"mutexWord", unsafe.Offsetof(Header{}.mutexWord), 16},
		{"ownerSeq", unsafe.Offsetof(Header{}.ownerSeq), 24},
		{"receiverEvt", unsafe.Offsetof(Header{}.receiverEvt), 32},
		{"senderEvt", unsafe.Offsetof(Header{}.senderEvt), 56},
		{"messageLen", unsafe.Offsetof(Header{}.messageLen), 80},
		{"messageIndex", unsafe.Offsetof(Header{}.messageIndex), 82},
	}
	for _, c := range checks {
		if c.got != c.want {
			panic("shm: Header layout drifted: field " + c.name + " moved")
		}
	}
}

// Magic, MsgType and MsgVer are written once by whichever endpoint claims
// claimInit, before initDone is observed true by anyone else; every other
// reader is downstream of that release/acquire pair, so plain field access
// is safe without 16-bit atomics (which sync/atomic does not provide).
func (h *Header) Magic() [8]byte  { return h.magic }
func (h *Header) MsgType() uint16 { return h.msgType }
func (h *Header) MsgVer() uint16  { return h.msgVer }

func (h *Header) setType(t, v uint16) {
	h.msgType = t
	h.msgVer = v
}

// MessageLen and MessageIndex are mutated by the sender only while holding
// the region's mutex, and read by the receiver only after being woken by
// receiverEvt.Post, which happens-after those writes under the same mutex
// hold. No additional atomicity is needed beyond that ordering.
func (h *Header) MessageLen() uint16 {
	return h.messageLen
}

func (h *Header) SetMessageLen(n uint16) {
	h.messageLen = n
}

func (h *Header) MessageIndex() uint8 {
	return h.messageIndex
}

func (h *Header) SetMessageIndex(i uint8) {
	h.messageIndex = i
}

// payload returns the region's message buffer, the n bytes immediately
// following the fixed header, where n is the owning channel's
// Family.MaxPayload().
func (h *Header) payload(n int) []byte {
	base := unsafe.Add(unsafe.Pointer(h), HeaderSize)
	return unsafe.Slice((*byte)(base), n)
}

// claimInit atomically sets the one-time region initialization flag if it
// is unset, reporting whether this call set it. openOrCreateRegion fills
// the header's fields first and calls claimInit last, under the region's
// flock, so whoever observes initialized() == true sees a filled header.
func (h *Header) claimInit() (claimed bool) {
	return atomic.CompareAndSwapUint32(&h.initDone, 0, 1)
}

func (h *Header) initialized() bool {
	return atomic.LoadUint32(&h.initDone) != 0
}

// nextOwnerSeq hands out the next value in the region's owner-id sequence
// (E4: disambiguates a restarted endpoint that is reassigned a recycled
// pid). Safe to call without holding the region mutex.
func (h *Header) nextOwnerSeq() uint64 {
	return atomic.AddUint64(&h.ownerSeq, 1)
}
