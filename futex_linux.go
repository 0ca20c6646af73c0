//go:build linux && (amd64 || arm64)

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
	"errors"
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FUTEX_WAIT and FUTEX_WAKE, deliberately without FUTEX_PRIVATE_FLAG.
//
// The private variants key a futex by virtual address within one process's
// address space and are only valid when waiter and waker are guaranteed to
// be threads of the same process. Every event slot and the region mutex
// here are shared across genuinely separate processes mapping the same
// file, so this package always uses the non-private operations.
const (
	futexWaitOp = 0
	futexWakeOp = 1
)

// ErrFutexTimeout is returned by futexWaitTimeout when the wait times out.
var ErrFutexTimeout = errors.New("shm: futex wait timed out")

// futexWait blocks until the value at addr differs from val, with no
// timeout. Re-checks atomically before entering the syscall to avoid the
// lost-wake race between the caller's snapshot of *addr and the syscall.
func futexWait(addr *uint32, val uint32) error {
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWaitOp),
		uintptr(val),
		0, 0, 0,
	)
	return translateFutexErrno(errno, 0)
}

// futexWaitTimeout blocks until the value at addr differs from val, or
// timeout elapses, returning ErrFutexTimeout in the latter case.
func futexWaitTimeout(addr *uint32, val uint32, timeout time.Duration) error {
	if timeout <= 0 {
		return futexWait(addr, val)
	}
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	ts := unix.Timespec{
		Sec:  int64(timeout / time.Second),
		Nsec: int64(timeout % time.Second),
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWaitOp),
		uintptr(val),
		uintptr(unsafe.Pointer(&ts)),
		0, 0,
	)
	return translateFutexErrno(errno, unix.ETIMEDOUT)
}

// futexWake wakes up to n waiters blocked on addr, returning the number
// actually woken.
func futexWake(addr *uint32, n int) (int, error) {
	r1, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWakeOp),
		uintptr(n),
		0, 0, 0,
	)
	if errno != 0 {
		return 0, fmt.Errorf("shm: futex wake: %w", errno)
	}
	return int(r1), nil
}

func translateFutexErrno(errno unix.Errno, timeoutErrno unix.Errno) error {
	switch errno {
	case 0:
		return nil
	case unix.EAGAIN, unix.EINTR:
		// EAGAIN: *addr had already changed before the syscall observed it.
		// EINTR: a signal interrupted the wait. Neither is a real error;
		// the caller re-checks its condition and re-waits if needed.
		return nil
	case timeoutErrno:
		if timeoutErrno != 0 {
			return ErrFutexTimeout
		}
	}
	return fmt.Errorf("shm: futex wait: %w", errno)
}
