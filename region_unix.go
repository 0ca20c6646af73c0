//go:build unix

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
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// region is a named, mapped shared-memory object backing one channel's
// header plus message buffer (C2/C3). Exactly one region exists per
// physical_name at a time; it is removed from the filesystem once both
// event slots report vacant.
type region struct {
	file       *os.File
	mem        []byte
	hdr        *Header
	path       string
	maxPayload int
}

// regionPath maps a physical_name to a backing file path, preferring
// /dev/shm (tmpfs) and falling back to the OS temp directory when it is
// unavailable.
func regionPath(physicalName string) string {
	const prefix = "fbshm_"
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return filepath.Join("/dev/shm", prefix+physicalName)
	}
	return filepath.Join(os.TempDir(), prefix+physicalName)
}

// openOrCreateRegion opens the named region, creating and zero-initializing
// it if this is the first attach. maxPayload sizes the message buffer that
// follows the fixed Header. msgType/msgVer are the caller's wire-compat
// discriminators, stamped into the header iff this call wins the
// one-time-init race — never afterward, and never outside the flock that
// guards claimInit, so no other attacher can observe initDone==true while
// they are still zero.
func openOrCreateRegion(physicalName string, maxPayload int, msgType, msgVer uint16) (r *region, wasInitializer bool, err error) {
	path := regionPath(physicalName)
	totalSize := int64(HeaderSize) + int64(maxPayload)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, false, fmt.Errorf("shm: open region %s: %w", path, err)
	}

	// A short exclusive flock serializes sizing: an attacher that observes
	// the file shorter than it needs under the lock grows it to totalSize.
	// Everyone else's open races land here and simply see the final size.
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		file.Close()
		return nil, false, fmt.Errorf("shm: flock region %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
		return nil, false, fmt.Errorf("shm: stat region %s: %w", path, err)
	}
	if info.Size() < totalSize {
		if err := file.Truncate(totalSize); err != nil {
			unix.Flock(int(file.Fd()), unix.LOCK_UN)
			file.Close()
			return nil, false, fmt.Errorf("shm: truncate region %s: %w", path, err)
		}
	}
	unix.Flock(int(file.Fd()), unix.LOCK_UN)

	mem, err := unix.Mmap(int(file.Fd()), 0, int(totalSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, false, fmt.Errorf("shm: mmap region %s: %w", path, err)
	}

	r = &region{
		file:       file,
		mem:        mem,
		hdr:        (*Header)(unsafe.Pointer(&mem[0])),
		path:       path,
		maxPayload: maxPayload,
	}

	// Single-writer zero-fill: hold the flock again for just the
	// init-or-validate decision, so two concurrent first-attaches cannot
	// both decide they are the initializer.
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX); err != nil {
		r.Close(false)
		return nil, false, fmt.Errorf("shm: flock region %s: %w", path, err)
	}
	if !r.hdr.initialized() {
		r.hdr.magic = headerMagic
		r.hdr.setType(msgType, msgVer)
		r.hdr.mutexWord = mutexUnlocked
		r.hdr.ownerSeq = 0
		r.hdr.receiverEvt = eventSlotHeader{}
		r.hdr.senderEvt = eventSlotHeader{}
		r.hdr.messageLen = 0
		r.hdr.messageIndex = 0
		r.hdr.claimInit()
		wasInitializer = true
	}
	unix.Flock(int(file.Fd()), unix.LOCK_UN)

	return r, wasInitializer, nil
}

// Close unmaps and closes the region's file. When unlinkIfVacant is true,
// the backing path is removed provided both event slots are vacant at the
// moment of the check; a concurrent late attacher racing
// this check will simply recreate the file under the same name.
func (r *region) Close(unlinkIfVacant bool) error {
	vacant := r.hdr.receiverEvt.Pid() == 0 && r.hdr.senderEvt.Pid() == 0

	var firstErr error
	if r.mem != nil {
		if err := unix.Munmap(r.mem); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shm: munmap region %s: %w", r.path, err)
		}
		r.mem = nil
		r.hdr = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shm: close region %s: %w", r.path, err)
		}
		r.file = nil
	}
	if unlinkIfVacant && vacant {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = fmt.Errorf("shm: unlink region %s: %w", r.path, err)
		}
	}
	return firstErr
}

// payload returns the region's message buffer view.
func (r *region) payload() []byte {
	return r.hdr.payload(r.maxPayload)
}
