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
)

// Mutex states, the classic three-state futex lock: unlocked, locked with
// no known waiters, locked with waiters that must be woken on unlock.
const (
	mutexUnlocked     uint32 = 0
	mutexLockedNoWait uint32 = 1
	mutexLockedWaiter uint32 = 2
)

// regionMutex is the cross-process mutual-exclusion primitive living in the
// shared region's header preamble. It serializes concurrent senders.
type regionMutex struct {
	word   *uint32
	name   string
	logger Logger
}

// TryLock attempts to acquire the mutex, giving up after timeout. It never
// raises: on an unexpected futex error it logs via Logger.MutexBug and
// reports failure to acquire rather than propagating the OS error.
func (m *regionMutex) TryLock(timeout time.Duration) bool {
	if atomic.CompareAndSwapUint32(m.word, mutexUnlocked, mutexLockedNoWait) {
		return true
	}
	deadline := time.Now().Add(timeout)
	for {
		// Announce that a waiter exists so the holder knows to wake us.
		// Every reacquire attempt, including ones after a wait, goes
		// through this same swap-to-mutexLockedWaiter path rather than a
		// plain CAS to mutexLockedNoWait: other waiters may still be
		// parked on mutexLockedWaiter, and Unlock only calls futexWake
		// when it observes that state, so dropping back to
		// mutexLockedNoWait here would strand them.
		old := atomic.SwapUint32(m.word, mutexLockedWaiter)
		if old == mutexUnlocked {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		err := futexWaitTimeout(m.word, mutexLockedWaiter, remaining)
		if err != nil && err != ErrFutexTimeout {
			m.logger.MutexBug(err, "regionMutex.TryLock:"+m.name)
			return false
		}
		if time.Now().After(deadline) {
			return false
		}
	}
}

// Unlock releases the mutex, waking one waiter if any was announced.
func (m *regionMutex) Unlock() {
	old := atomic.SwapUint32(m.word, mutexUnlocked)
	if old == mutexLockedWaiter {
		if _, err := futexWake(m.word, 1); err != nil {
			m.logger.MutexBug(err, "regionMutex.Unlock:"+m.name)
		}
	}
}
